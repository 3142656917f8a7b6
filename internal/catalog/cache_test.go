package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/internal/localstore"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/shopspring/decimal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// countingFetcher serves responses in order, repeating the last one. Only the
// first call waits on gate when it is set.
type countingFetcher struct {
	calls     int32
	responses [][]types.Product
	err       error
	gate      chan struct{}
}

func newFetcher(responses ...[]types.Product) *countingFetcher {
	return &countingFetcher{responses: responses}
}

func (f *countingFetcher) Products(ctx context.Context) ([]types.Product, error) {
	n := int(atomic.AddInt32(&f.calls, 1))
	if n == 1 && f.gate != nil {
		<-f.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, nil
	}
	return f.responses[min(n, len(f.responses))-1], nil
}

func (f *countingFetcher) Calls() int {
	return int(atomic.LoadInt32(&f.calls))
}

func (f *countingFetcher) waitForCall(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.Calls() < n {
		if time.Now().After(deadline) {
			t.Fatalf("fetcher reached %d calls, want %d", f.Calls(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func sampleProducts() []types.Product {
	return []types.Product{
		{ID: "p1", Name: "Cotton Kurta", Category: "Ethnic", Price: decimal.NewFromInt(799)},
		{ID: "p2", Name: "Denim Jacket", Description: "washed blue", Category: "Western", Price: decimal.NewFromInt(1999)},
	}
}

func newTestCache(t *testing.T, fetcher Fetcher, clock *fakeClock) (*Cache, *localstore.Memory) {
	t.Helper()
	store := localstore.NewMemory()
	cache, err := NewCache(CacheParams{Store: store, Fetcher: fetcher, Now: clock.Now})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return cache, store
}

func TestFetchWithinTTLSkipsNetwork(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	fetcher := newFetcher(sampleProducts())
	cache, store := newTestCache(t, fetcher, clock)
	ctx := context.Background()

	first := cache.Fetch(ctx)
	if first.Err != nil || first.Source != SourceNetwork {
		t.Fatalf("first fetch: source=%s err=%v", first.Source, first.Err)
	}
	if fetcher.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", fetcher.Calls())
	}
	if got := store.Raw(localstore.KeyProductsCacheTime); got != "1700000000000" {
		t.Fatalf("unexpected cache time %q", got)
	}

	clock.Advance(299_999 * time.Millisecond)
	second := cache.Fetch(ctx)
	if second.Source != SourceCache || fetcher.Calls() != 1 {
		t.Fatalf("no network call inside the TTL: source=%s calls=%d", second.Source, fetcher.Calls())
	}
	if len(second.Products) != 2 {
		t.Fatalf("expected 2 cached products, got %d", len(second.Products))
	}
	if second.Products[1].ID != first.Products[1].ID || !second.Products[1].Price.Equal(first.Products[1].Price) {
		t.Fatalf("cached product differs: %+v vs %+v", second.Products[1], first.Products[1])
	}

	clock.Advance(time.Millisecond)
	third := cache.Fetch(ctx)
	if third.Source != SourceNetwork || fetcher.Calls() != 2 {
		t.Fatalf("a read at exactly the TTL goes to the network: source=%s calls=%d", third.Source, fetcher.Calls())
	}
}

func TestFetchFailureReturnsEmptyWithoutStaleFallback(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	fetcher := newFetcher(sampleProducts())
	cache, _ := newTestCache(t, fetcher, clock)
	ctx := context.Background()

	if got := len(cache.Products(ctx)); got != 2 {
		t.Fatalf("expected 2 products, got %d", got)
	}

	clock.Advance(DefaultTTL)
	fetcher.err = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("connection refused"), "GET products")
	res := cache.Fetch(ctx)
	if res.Source != SourceFailed {
		t.Fatalf("expected failed source, got %s", res.Source)
	}
	if res.Products == nil || len(res.Products) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", res.Products)
	}
	if !pkgerrors.IsTransport(res.Err) {
		t.Fatalf("expected transport error, got %v", res.Err)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	fetcher := newFetcher(sampleProducts())
	cache, store := newTestCache(t, fetcher, clock)
	ctx := context.Background()

	cache.Fetch(ctx)
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if store.Has(localstore.KeyProductsCache) || store.Has(localstore.KeyProductsCacheTime) {
		t.Fatalf("invalidate should drop both cache keys")
	}

	cache.Fetch(ctx)
	if fetcher.Calls() != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", fetcher.Calls())
	}
}

func TestInvalidateDuringFetchDiscardsInFlightResponse(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	stale := []types.Product{{ID: "p1", Name: "old", Price: decimal.NewFromInt(100)}}
	current := []types.Product{{ID: "p1", Name: "new", Price: decimal.NewFromInt(120)}}
	fetcher := newFetcher(stale, current)
	fetcher.gate = make(chan struct{})
	cache, store := newTestCache(t, fetcher, clock)
	ctx := context.Background()

	done := make(chan Result, 1)
	go func() { done <- cache.Fetch(ctx) }()
	fetcher.waitForCall(t, 1)

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(fetcher.gate)
	if res := <-done; res.Source != SourceNetwork {
		t.Fatalf("in-flight caller should still get its response, got %s", res.Source)
	}
	if store.Has(localstore.KeyProductsCache) || store.Has(localstore.KeyProductsCacheTime) {
		t.Fatalf("response fetched before invalidate must not be cached")
	}

	res := cache.Fetch(ctx)
	if res.Source != SourceNetwork || fetcher.Calls() != 2 {
		t.Fatalf("expected a fresh network fetch: source=%s calls=%d", res.Source, fetcher.Calls())
	}
	if len(res.Products) != 1 || res.Products[0].Name != "new" {
		t.Fatalf("expected post-invalidate catalog, got %+v", res.Products)
	}

	cached := cache.Fetch(ctx)
	if cached.Source != SourceCache || cached.Products[0].Name != "new" {
		t.Fatalf("expected the new catalog from cache, got source=%s %+v", cached.Source, cached.Products)
	}
}

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	fetcher := newFetcher(sampleProducts())
	fetcher.gate = make(chan struct{})
	cache, _ := newTestCache(t, fetcher, clock)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.Fetch(ctx)
		}(i)
	}
	fetcher.waitForCall(t, 1)
	time.Sleep(10 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	if fetcher.Calls() != 1 {
		t.Fatalf("expected one shared fetch, got %d", fetcher.Calls())
	}
	for i, res := range results {
		if len(res.Products) != 2 {
			t.Fatalf("caller %d got %d products", i, len(res.Products))
		}
	}
}

func TestCanceledCallerDoesNotFailSharedFetch(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	fetcher := newFetcher(sampleProducts())
	fetcher.gate = make(chan struct{})
	cache, _ := newTestCache(t, fetcher, clock)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := make(chan Result, 1)
	go func() { leader <- cache.Fetch(leaderCtx) }()
	fetcher.waitForCall(t, 1)

	follower := make(chan Result, 1)
	go func() { follower <- cache.Fetch(context.Background()) }()
	time.Sleep(10 * time.Millisecond)
	cancel()
	close(fetcher.gate)

	for name, ch := range map[string]chan Result{"leader": leader, "follower": follower} {
		res := <-ch
		if res.Err != nil || len(res.Products) != 2 {
			t.Fatalf("%s: expected products despite canceled leader, got n=%d err=%v", name, len(res.Products), res.Err)
		}
	}
}

func TestCorruptCacheIsRefetched(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	fetcher := newFetcher(sampleProducts())
	cache, store := newTestCache(t, fetcher, clock)
	ctx := context.Background()

	if err := store.Set(ctx, localstore.KeyProductsCache, "not json"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if err := store.Set(ctx, localstore.KeyProductsCacheTime, "1700000000000"); err != nil {
		t.Fatalf("seed cache time: %v", err)
	}

	res := cache.Fetch(ctx)
	if res.Source != SourceNetwork || fetcher.Calls() != 1 {
		t.Fatalf("corrupt cache should be refetched: source=%s calls=%d", res.Source, fetcher.Calls())
	}
}

func TestProductAndSearch(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	cache, _ := newTestCache(t, newFetcher(sampleProducts()), clock)
	ctx := context.Background()

	product, err := cache.Product(ctx, "p2")
	if err != nil || product.Name != "Denim Jacket" {
		t.Fatalf("product p2: %+v err=%v", product, err)
	}

	if _, err := cache.Product(ctx, "missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	cases := []struct {
		query, category string
		want            int
	}{
		{"BLUE", "", 1},
		{"", "ethnic", 1},
		{"", "", 2},
		{"kurta", "western", 0},
	}
	for _, tc := range cases {
		if got := len(cache.Search(ctx, tc.query, tc.category).Products); got != tc.want {
			t.Fatalf("search(%q, %q): got %d want %d", tc.query, tc.category, got, tc.want)
		}
	}
}

func TestNewCacheValidatesParams(t *testing.T) {
	if _, err := NewCache(CacheParams{Fetcher: newFetcher()}); err == nil {
		t.Fatalf("expected error without store")
	}
	if _, err := NewCache(CacheParams{Store: localstore.NewMemory()}); err == nil {
		t.Fatalf("expected error without fetcher")
	}
}
