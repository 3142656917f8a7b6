package wishlist

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// API is the wishlist surface of the storefront API.
type API interface {
	Wishlist(ctx context.Context) (json.RawMessage, error)
	AddWishlist(ctx context.Context, productID string) error
	RemoveWishlist(ctx context.Context, productID string) error
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	API    API
	Logger *logger.Logger
}

// Service holds the signed-in user's wishlist. There is no anonymous wishlist;
// the set is empty until Refresh succeeds and is emptied by Clear.
type Service struct {
	api  API
	logg *logger.Logger

	mu  sync.RWMutex
	ids []string
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist api is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{api: params.API, logg: logg, ids: []string{}}, nil
}

// Refresh loads the wishlist from the server. On failure the current set is
// kept and the error returned.
func (s *Service) Refresh(ctx context.Context) ([]string, error) {
	raw, err := s.api.Wishlist(ctx)
	if err != nil {
		s.logg.WarnErr(s.logg.WithComponent(ctx, "wishlist"), "wishlist fetch failed", err)
		return s.IDs(), err
	}
	ids := Normalize(raw)
	s.mu.Lock()
	s.ids = ids
	s.mu.Unlock()
	return append([]string(nil), ids...), nil
}

// IDs returns a copy of the wishlist. Never nil.
func (s *Service) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Service) Contains(productID string) bool {
	productID = strings.TrimSpace(productID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.ids {
		if id == productID {
			return true
		}
	}
	return false
}

// Toggle adds or removes productID on the server and mirrors the change
// locally once the server accepts it. It reports whether the product is now
// on the wishlist.
func (s *Service) Toggle(ctx context.Context, productID string) (bool, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	if s.Contains(productID) {
		if err := s.api.RemoveWishlist(ctx, productID); err != nil {
			return true, err
		}
		s.mu.Lock()
		s.ids = without(s.ids, productID)
		s.mu.Unlock()
		return false, nil
	}

	if err := s.api.AddWishlist(ctx, productID); err != nil {
		return false, err
	}
	s.mu.Lock()
	if !containsID(s.ids, productID) {
		s.ids = append(s.ids, productID)
	}
	s.mu.Unlock()
	return true, nil
}

// Clear forgets the wishlist locally, e.g. on logout.
func (s *Service) Clear() {
	s.mu.Lock()
	s.ids = []string{}
	s.mu.Unlock()
}

func without(ids []string, target string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func containsID(ids []string, target string) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
