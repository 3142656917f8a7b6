package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/angelmondragon/storefront/internal/localstore"
	"github.com/angelmondragon/storefront/pkg/types"
)

type recordingSaver struct {
	mu    sync.Mutex
	calls [][]types.CartLine
	err   error
}

func (r *recordingSaver) SaveCart(_ context.Context, lines []types.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, lines)
	return r.err
}

func (r *recordingSaver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type gateFunc func() bool

func (g gateFunc) SyncAllowed() bool { return g() }

type fixedUser struct {
	user *types.User
}

func (f fixedUser) User(context.Context) (*types.User, error) {
	return f.user, nil
}

var signedIn = fixedUser{user: &types.User{ID: "u1", Email: "a@b.c"}}

func newTestManager(t *testing.T, store localstore.Store, syncer Syncer) *Manager {
	t.Helper()
	m, err := NewManager(ManagerParams{Store: store, Syncer: syncer})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func openGate() gateFunc { return func() bool { return true } }

func TestManagerPersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	saver := &recordingSaver{}
	syncer := NewSynchronizer(SynchronizerParams{Saver: saver, Gate: openGate(), Users: signedIn})
	m := newTestManager(t, store, syncer)

	mut, err := m.Add(ctx, product("p1", 100), 1, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if mut.Sync.Outcome != OutcomeSynced {
		t.Fatalf("expected synced, got %s", mut.Sync.Outcome)
	}

	if _, err := m.Add(ctx, product("p1", 100), 1, nil); err != nil {
		t.Fatalf("second add: %v", err)
	}

	var persisted []types.CartLine
	if err := json.Unmarshal([]byte(store.Raw(localstore.KeyCart)), &persisted); err != nil {
		t.Fatalf("decode persisted cart: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Quantity != 2 {
		t.Fatalf("expected one line with quantity 2, got %+v", persisted)
	}

	mut, err = m.UpdateQuantity(ctx, "p1", nil, 0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !mut.Cart.Empty() || store.Raw(localstore.KeyCart) != "[]" {
		t.Fatalf("quantity 0 should empty the cart, persisted %q", store.Raw(localstore.KeyCart))
	}

	if saver.Calls() != 3 {
		t.Fatalf("expected 3 pushes, got %d", saver.Calls())
	}
	if len(saver.calls[1]) != 1 {
		t.Fatalf("the full cart is sent, not a diff: %+v", saver.calls[1])
	}
	if len(saver.calls[2]) != 0 {
		t.Fatalf("expected empty push after removal, got %+v", saver.calls[2])
	}
}

func TestManagerReloadsPersistedCart(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	first := newTestManager(t, store, nil)
	if _, err := first.Add(ctx, product("p1", 100), 2, &Variant{Size: "M"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	second := newTestManager(t, store, nil)
	c, err := second.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	line, ok := c.Find("p1", &Variant{Size: "m"})
	if !ok || line.Quantity != 2 {
		t.Fatalf("expected reloaded line with quantity 2, got %+v ok=%v", line, ok)
	}
}

func TestManagerToleratesCorruptCart(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	if err := store.Set(ctx, localstore.KeyCart, "{broken"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c, err := newTestManager(t, store, nil).Current(ctx)
	if err != nil || !c.Empty() {
		t.Fatalf("corrupt cart should read as empty: len=%d err=%v", c.Len(), err)
	}
}

func TestSyncSkippedWhenGateClosed(t *testing.T) {
	ctx := context.Background()
	saver := &recordingSaver{}
	syncer := NewSynchronizer(SynchronizerParams{Saver: saver, Gate: gateFunc(func() bool { return false }), Users: signedIn})
	m := newTestManager(t, localstore.NewMemory(), syncer)

	mut, err := m.Add(ctx, product("p1", 100), 1, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if mut.Sync.Outcome != OutcomeSkippedNotReady || saver.Calls() != 0 {
		t.Fatalf("expected skipped_not_ready without a push, got %s calls=%d", mut.Sync.Outcome, saver.Calls())
	}
}

func TestSyncSkippedWhenAnonymous(t *testing.T) {
	ctx := context.Background()
	saver := &recordingSaver{}
	syncer := NewSynchronizer(SynchronizerParams{Saver: saver, Gate: openGate(), Users: fixedUser{}})
	m := newTestManager(t, localstore.NewMemory(), syncer)

	mut, err := m.Add(ctx, product("p1", 100), 1, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if mut.Sync.Outcome != OutcomeSkippedAnonymous || !mut.Sync.Skipped() {
		t.Fatalf("expected skipped_anonymous, got %s", mut.Sync.Outcome)
	}
	if saver.Calls() != 0 {
		t.Fatalf("anonymous cart must not be pushed")
	}
}

func TestSyncFailureKeepsLocalCart(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	saver := &recordingSaver{err: errors.New("connection reset")}
	syncer := NewSynchronizer(SynchronizerParams{Saver: saver, Gate: openGate(), Users: signedIn})
	m := newTestManager(t, store, syncer)

	mut, err := m.Add(ctx, product("p1", 100), 1, nil)
	if err != nil {
		t.Fatalf("sync failures are not mutation failures: %v", err)
	}
	if mut.Sync.Outcome != OutcomeFailed || mut.Sync.Err == nil {
		t.Fatalf("expected failed sync with error, got %s err=%v", mut.Sync.Outcome, mut.Sync.Err)
	}
	if mut.Cart.Len() != 1 {
		t.Fatalf("expected 1 line, got %d", mut.Cart.Len())
	}

	current, err := m.Current(ctx)
	if err != nil || current.Len() != 1 {
		t.Fatalf("local cart should keep the line: len=%d err=%v", current.Len(), err)
	}

	// the next mutation retries implicitly with the full cart
	saver.err = nil
	mut, err = m.Add(ctx, product("p2", 100), 1, nil)
	if err != nil {
		t.Fatalf("add p2: %v", err)
	}
	if mut.Sync.Outcome != OutcomeSynced || len(saver.calls[1]) != 2 {
		t.Fatalf("expected full cart push, got %s with %d lines", mut.Sync.Outcome, len(saver.calls[1]))
	}
}

func TestReplaceAndResetDoNotSync(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()
	saver := &recordingSaver{}
	syncer := NewSynchronizer(SynchronizerParams{Saver: saver, Gate: openGate(), Users: signedIn})
	m := newTestManager(t, store, syncer)

	server := New([]Line{{Product: product("p9", 10), Quantity: 4}})
	c, err := m.Replace(ctx, server)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if c.TotalQuantity() != 4 {
		t.Fatalf("expected 4 items, got %d", c.TotalQuantity())
	}
	if err := m.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if saver.Calls() != 0 {
		t.Fatalf("replace and reset must not push, got %d calls", saver.Calls())
	}
	if got := store.Raw(localstore.KeyCart); got != "[]" {
		t.Fatalf("expected empty persisted cart, got %q", got)
	}
}

type failingStore struct {
	*localstore.Memory
}

func (f failingStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestPersistFailureIsReturned(t *testing.T) {
	saver := &recordingSaver{}
	syncer := NewSynchronizer(SynchronizerParams{Saver: saver, Gate: openGate(), Users: signedIn})
	m := newTestManager(t, failingStore{localstore.NewMemory()}, syncer)

	if _, err := m.Add(context.Background(), product("p1", 100), 1, nil); err == nil {
		t.Fatalf("expected persist error")
	}
	if saver.Calls() != 0 {
		t.Fatalf("unpersisted cart must not be pushed")
	}

	c, err := m.Current(context.Background())
	if err != nil || !c.Empty() {
		t.Fatalf("failed add should leave the cart empty: len=%d err=%v", c.Len(), err)
	}
}
