package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront/internal/localstore"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

// Syncer propagates a cart snapshot to the server.
type Syncer interface {
	Sync(ctx context.Context, c Cart) SyncResult
}

// Mutation is the result of a user cart action.
type Mutation struct {
	Cart Cart
	Sync SyncResult
}

type ManagerParams struct {
	Store  localstore.Store
	Syncer Syncer
	Logger *logger.Logger
}

// Manager owns the local cart. Mutations are serialized: each one persists
// its snapshot before the next begins, then hands it to the syncer.
type Manager struct {
	store  localstore.Store
	syncer Syncer
	logg   *logger.Logger

	mu      sync.Mutex
	current Cart
	loaded  bool
}

func NewManager(params ManagerParams) (*Manager, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart state store is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Manager{store: params.Store, syncer: params.Syncer, logg: logg}, nil
}

// Current returns the cart, loading the persisted copy on first use.
func (m *Manager) Current(ctx context.Context) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

func (m *Manager) load(ctx context.Context) (Cart, error) {
	if m.loaded {
		return m.current, nil
	}
	raw, ok, err := m.store.Get(ctx, localstore.KeyCart)
	if err != nil {
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	m.loaded = true
	if !ok || strings.TrimSpace(raw) == "" {
		m.current = Cart{}
		return m.current, nil
	}
	var lines []types.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		m.logg.WarnErr(m.logg.WithComponent(ctx, "cart"), "discarding corrupt persisted cart", err)
		m.current = Cart{}
		return m.current, nil
	}
	m.current = New(lines)
	return m.current, nil
}

func (m *Manager) Add(ctx context.Context, product types.Product, qty int, variant *Variant) (Mutation, error) {
	if product.ID.Empty() {
		return Mutation{}, fmt.Errorf("product id is required")
	}
	return m.mutate(ctx, func(c Cart) Cart {
		return Add(c, product, qty, variant)
	})
}

func (m *Manager) UpdateQuantity(ctx context.Context, productID string, variant *Variant, qty int) (Mutation, error) {
	return m.mutate(ctx, func(c Cart) Cart {
		return UpdateQuantity(c, productID, variant, qty)
	})
}

func (m *Manager) Remove(ctx context.Context, productID string, variant *Variant) (Mutation, error) {
	return m.mutate(ctx, func(c Cart) Cart {
		return Remove(c, productID, variant)
	})
}

// Clear empties the cart as a user action, so the empty cart is synced.
func (m *Manager) Clear(ctx context.Context) (Mutation, error) {
	return m.mutate(ctx, func(Cart) Cart {
		return Clear()
	})
}

// Replace installs a server-authoritative cart without syncing it back.
func (m *Manager) Replace(ctx context.Context, c Cart) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.persist(ctx, c); err != nil {
		return m.current, err
	}
	m.current, m.loaded = c, true
	return c, nil
}

// Reset empties the cart without syncing, e.g. on logout.
func (m *Manager) Reset(ctx context.Context) error {
	_, err := m.Replace(ctx, Clear())
	return err
}

func (m *Manager) mutate(ctx context.Context, fn func(Cart) Cart) (Mutation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.load(ctx)
	if err != nil {
		return Mutation{}, err
	}
	next := fn(current)
	if err := m.persist(ctx, next); err != nil {
		return Mutation{Cart: current}, err
	}
	m.current = next

	res := SyncResult{Outcome: OutcomeSkippedNotReady}
	if m.syncer != nil {
		res = m.syncer.Sync(ctx, next)
	}
	return Mutation{Cart: next, Sync: res}, nil
}

func (m *Manager) persist(ctx context.Context, c Cart) error {
	payload, err := json.Marshal(c.Lines())
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := m.store.Set(ctx, localstore.KeyCart, string(payload)); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}
