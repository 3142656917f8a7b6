package bootstrap

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/session"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
	"golang.org/x/sync/errgroup"
)

// API is the part of the storefront API used during reconciliation.
type API interface {
	Profile(ctx context.Context) (*types.User, error)
	Cart(ctx context.Context) ([]types.CartLine, error)
}

// Sessions is the persisted auth state.
type Sessions interface {
	Snapshot(ctx context.Context) (session.Session, error)
	SetUser(ctx context.Context, user *types.User) error
	ClearAuth(ctx context.Context) error
}

// Carts is the local cart owner.
type Carts interface {
	Current(ctx context.Context) (cart.Cart, error)
	Replace(ctx context.Context, c cart.Cart) (cart.Cart, error)
	Reset(ctx context.Context) error
}

// Wishlist is refreshed for signed-in users and cleared on sign-out.
type Wishlist interface {
	Refresh(ctx context.Context) ([]string, error)
	Clear()
}

// Path records which branch reconciliation took.
type Path string

const (
	PathAnonymous    Path = "anonymous"
	PathTrustedLocal Path = "trusted_local"
	PathValidated    Path = "validated"
	PathExpiredToken Path = "expired_token"
)

// Outcome describes a finished reconciliation.
type Outcome struct {
	Path         Path
	User         *types.User
	Cart         cart.Cart
	AuthCleared  bool
	CartReplaced bool
	ProfileErr   error
	CartErr      error
	WishlistErr  error
}

// Authenticated reports whether a user survived reconciliation.
func (o Outcome) Authenticated() bool {
	return o.User != nil
}

type MachineParams struct {
	Gate     *Gate
	API      API
	Sessions Sessions
	Carts    Carts
	Wishlist Wishlist
	Logger   *logger.Logger
	Now      func() time.Time
}

// Machine reconciles persisted session and cart state with the server once
// per process. Run moves it out of Uninitialized; background fetches move it
// from TrustingLocal to Ready.
type Machine struct {
	gate     *Gate
	api      API
	sessions Sessions
	carts    Carts
	wishlist Wishlist
	logg     *logger.Logger
	now      func() time.Time

	once    sync.Once
	done    chan struct{}
	mu      sync.Mutex
	outcome Outcome
	runErr  error
}

func NewMachine(params MachineParams) (*Machine, error) {
	switch {
	case params.API == nil:
		return nil, errors.New("bootstrap api is required")
	case params.Sessions == nil:
		return nil, errors.New("bootstrap session store is required")
	case params.Carts == nil:
		return nil, errors.New("bootstrap cart manager is required")
	}
	gate := params.Gate
	if gate == nil {
		gate = NewGate()
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Machine{
		gate:     gate,
		api:      params.API,
		sessions: params.Sessions,
		carts:    params.Carts,
		wishlist: params.Wishlist,
		logg:     logg,
		now:      now,
		done:     make(chan struct{}),
	}, nil
}

func (m *Machine) Gate() *Gate {
	return m.gate
}

func (m *Machine) State() State {
	return m.gate.State()
}

// Ready is closed once reconciliation has finished.
func (m *Machine) Ready() <-chan struct{} {
	return m.done
}

// Run starts reconciliation. It returns as soon as the local state has been
// adopted: in the trusted path the background fetches continue after Run
// returns and Wait reports their result. Only the first call does any work.
// ctx must outlive the background fetches.
func (m *Machine) Run(ctx context.Context) (State, error) {
	m.once.Do(func() {
		m.start(m.logg.WithComponent(ctx, "bootstrap"))
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.State(), m.runErr
}

// Wait blocks until reconciliation is Ready and returns its outcome.
func (m *Machine) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-m.done:
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome, m.runErr
}

func (m *Machine) start(ctx context.Context) {
	snap, err := m.sessions.Snapshot(ctx)
	if err != nil {
		m.fail(ctx, Outcome{Path: PathAnonymous}, err)
		return
	}
	local, err := m.carts.Current(ctx)
	if err != nil {
		m.fail(ctx, Outcome{Path: PathAnonymous, User: snap.User}, err)
		return
	}

	switch {
	case !snap.Authenticated():
		if snap.User != nil {
			m.logg.Warn(ctx, "dropping persisted user without a token")
			if err := m.sessions.ClearAuth(ctx); err != nil {
				m.logg.WarnErr(ctx, "failed to clear orphaned user", err)
			}
		}
		m.finish(ctx, Outcome{Path: PathAnonymous, Cart: local})

	case session.TokenExpired(snap.Token, m.now()):
		out := Outcome{Path: PathExpiredToken}
		m.signOut(ctx, &out)
		m.finish(ctx, out)

	case snap.User.HasProfileShape():
		m.gate.set(TrustingLocal)
		m.logg.Info(m.logg.WithUserID(ctx, string(snap.User.ID)), "trusting locally persisted session")
		out := Outcome{Path: PathTrustedLocal, User: snap.User, Cart: local}
		go m.settle(ctx, out, true)

	default:
		m.validate(ctx, local)
	}
}

// validate handles a token without a usable profile: the profile is fetched
// before anything is trusted.
func (m *Machine) validate(ctx context.Context, local cart.Cart) {
	out := Outcome{Path: PathValidated, Cart: local}
	user, err := m.api.Profile(ctx)
	switch {
	case err == nil && user.HasProfileShape():
		if err := m.sessions.SetUser(ctx, user); err != nil {
			m.logg.WarnErr(ctx, "failed to persist validated profile", err)
		}
		out.User = user
		m.gate.set(TrustingLocal)
		go m.settle(ctx, out, false)
	case err == nil:
		err = pkgerrors.New(pkgerrors.CodeMalformedResponse, "profile response has no email")
		fallthrough
	default:
		out.ProfileErr = err
		if pkgerrors.IsAuthInvalid(err) {
			m.signOut(ctx, &out)
		} else {
			m.logg.WarnErr(ctx, "profile validation failed; keeping token", err)
		}
		m.finish(ctx, out)
	}
}

// settle runs the background fetches of the trusted path and applies their
// combined result. Any explicit 401 signs the user out; transport failures
// keep the local session.
func (m *Machine) settle(ctx context.Context, out Outcome, refreshProfile bool) {
	var (
		group       errgroup.Group
		profile     *types.User
		serverLines []types.CartLine
	)

	if refreshProfile {
		group.Go(func() error {
			profile, out.ProfileErr = m.api.Profile(ctx)
			return nil
		})
	}
	group.Go(func() error {
		serverLines, out.CartErr = m.api.Cart(ctx)
		return nil
	})
	if m.wishlist != nil {
		group.Go(func() error {
			_, out.WishlistErr = m.wishlist.Refresh(ctx)
			return nil
		})
	}
	_ = group.Wait()

	if pkgerrors.IsAuthInvalid(out.ProfileErr) || pkgerrors.IsAuthInvalid(out.CartErr) || pkgerrors.IsAuthInvalid(out.WishlistErr) {
		m.signOut(ctx, &out)
		m.finish(ctx, out)
		return
	}

	if out.ProfileErr != nil {
		m.logg.WarnErr(ctx, "profile refresh failed; keeping local user", out.ProfileErr)
	} else if profile.HasProfileShape() {
		if err := m.sessions.SetUser(ctx, profile); err != nil {
			m.logg.WarnErr(ctx, "failed to persist refreshed profile", err)
		} else {
			out.User = profile
		}
	}

	if out.CartErr != nil {
		m.logg.WarnErr(ctx, "server cart fetch failed; keeping local cart", out.CartErr)
	} else {
		replaced, err := m.carts.Replace(ctx, cart.New(serverLines))
		if err != nil {
			m.logg.Error(ctx, "failed to persist server cart", err)
		} else {
			out.Cart, out.CartReplaced = replaced, true
		}
	}
	m.finish(ctx, out)
}

func (m *Machine) signOut(ctx context.Context, out *Outcome) {
	m.logg.Info(ctx, "session rejected; signing out")
	if err := m.sessions.ClearAuth(ctx); err != nil {
		m.logg.Error(ctx, "failed to clear auth", err)
	}
	if err := m.carts.Reset(ctx); err != nil {
		m.logg.Error(ctx, "failed to reset cart", err)
	}
	if m.wishlist != nil {
		m.wishlist.Clear()
	}
	out.User = nil
	out.Cart = cart.Clear()
	out.AuthCleared = true
}

// fail finishes reconciliation when local state cannot be read. The process
// continues anonymously and Run reports the error.
func (m *Machine) fail(ctx context.Context, out Outcome, err error) {
	m.logg.Error(ctx, "failed to read local state", err)
	m.mu.Lock()
	m.runErr = err
	m.mu.Unlock()
	m.finish(ctx, out)
}

func (m *Machine) finish(ctx context.Context, out Outcome) {
	m.mu.Lock()
	m.outcome = out
	m.mu.Unlock()
	m.gate.set(Ready)
	close(m.done)
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"path":          string(out.Path),
		"authenticated": out.Authenticated(),
		"cart_lines":    out.Cart.Len(),
	}), "bootstrap ready")
}
