package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/localstore"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/golang-jwt/jwt/v5"
)

// Session is the auth token and profile held by the client.
type Session struct {
	Token string
	User  *types.User
}

// Authenticated reports whether a token is held.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Store is a read-through cache over the persisted token and user keys. Each
// key is read from the backend at most once per Store lifetime; afterwards the
// cached value (including "nothing stored") is authoritative.
type Store struct {
	backend localstore.Store
	logg    *logger.Logger

	mu         sync.Mutex
	token      string
	tokenReady bool
	user       *types.User
	userReady  bool
}

func NewStore(backend localstore.Store, logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{backend: backend, logg: logg}
}

// Token returns the cached token, loading it on first use.
func (s *Store) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadToken(ctx)
}

func (s *Store) loadToken(ctx context.Context) (string, error) {
	if s.tokenReady {
		return s.token, nil
	}
	value, _, err := s.backend.Get(ctx, localstore.KeyToken)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	s.token = strings.TrimSpace(value)
	s.tokenReady = true
	return s.token, nil
}

// SetToken caches and persists token. An empty token removes the persisted key
// so that absence, never an empty string, means logged out.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token = strings.TrimSpace(token)
	var err error
	if token == "" {
		err = s.backend.Delete(ctx, localstore.KeyToken)
	} else {
		err = s.backend.Set(ctx, localstore.KeyToken, token)
	}
	if err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.token, s.tokenReady = token, true
	return nil
}

// User returns the cached profile, loading it on first use. A persisted value
// that cannot be decoded is treated as no user and removed.
func (s *Store) User(ctx context.Context) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUser(ctx)
}

func (s *Store) loadUser(ctx context.Context) (*types.User, error) {
	if s.userReady {
		return cloneUser(s.user), nil
	}
	raw, ok, err := s.backend.Get(ctx, localstore.KeyUser)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	s.userReady = true
	if !ok || strings.TrimSpace(raw) == "" || strings.TrimSpace(raw) == "null" {
		return nil, nil
	}

	var user types.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logg.WarnErr(s.logg.WithField(ctx, "key", localstore.KeyUser), "discarding corrupt persisted user", err)
		if delErr := s.backend.Delete(ctx, localstore.KeyUser); delErr != nil {
			s.logg.WarnErr(ctx, "failed to remove corrupt persisted user", delErr)
		}
		return nil, nil
	}
	s.user = &user
	return cloneUser(s.user), nil
}

// SetUser caches and persists the profile. A nil user removes the persisted key.
func (s *Store) SetUser(ctx context.Context, user *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user == nil {
		if err := s.backend.Delete(ctx, localstore.KeyUser); err != nil {
			return fmt.Errorf("persist user: %w", err)
		}
		s.user, s.userReady = nil, true
		return nil
	}

	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.backend.Set(ctx, localstore.KeyUser, string(payload)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	s.user, s.userReady = cloneUser(user), true
	return nil
}

// ClearAuth forgets the token and user in memory and in the backend. It is
// safe to call when nothing is stored.
func (s *Store) ClearAuth(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token, s.tokenReady = "", true
	s.user, s.userReady = nil, true
	if err := s.backend.Delete(ctx, localstore.KeyToken, localstore.KeyUser); err != nil {
		return fmt.Errorf("clear auth: %w", err)
	}
	return nil
}

// Snapshot returns the current token and user together.
func (s *Store) Snapshot(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.loadToken(ctx)
	if err != nil {
		return Session{}, err
	}
	user, err := s.loadUser(ctx)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

// Save stores a freshly issued token and profile.
func (s *Store) Save(ctx context.Context, token string, user *types.User) error {
	if err := s.SetToken(ctx, token); err != nil {
		return err
	}
	return s.SetUser(ctx, user)
}

// BearerToken satisfies the API client's token source.
func (s *Store) BearerToken(ctx context.Context) (string, error) {
	return s.Token(ctx)
}

// TokenExpired reports whether token is a JWT whose exp claim is in the past.
// The signature is not verified; opaque tokens are never considered expired.
func TokenExpired(token string, now time.Time) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

func cloneUser(user *types.User) *types.User {
	if user == nil {
		return nil
	}
	clone := *user
	return &clone
}
