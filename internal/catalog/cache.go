package catalog

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/localstore"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/types"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched catalog is served without a network call.
const DefaultTTL = 5 * time.Minute

// Fetcher loads the full catalog from the storefront API.
type Fetcher interface {
	Products(ctx context.Context) ([]types.Product, error)
}

// Source tells where a Result came from.
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
	SourceFailed  Source = "failed"
)

// Result is the outcome of a catalog read. Products is never nil; on a failed
// fetch it is empty and Err holds the cause.
type Result struct {
	Products  []types.Product
	FetchedAt time.Time
	Source    Source
	Err       error
}

// CacheParams groups the dependencies of a catalog cache.
type CacheParams struct {
	Store   localstore.Store
	Fetcher Fetcher
	TTL     time.Duration
	Now     func() time.Time
	Logger  *logger.Logger
	Metrics *metrics.ClientMetrics
}

// Cache serves the catalog from local state while it is fresh and refetches
// it once it expires or is invalidated. Concurrent misses share one fetch.
type Cache struct {
	store   localstore.Store
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	logg    *logger.Logger
	metrics *metrics.ClientMetrics

	group singleflight.Group
	// writeMu orders cache writes against Invalidate.
	writeMu sync.Mutex
	// generation is bumped by Invalidate; a refresh started under an older
	// generation does not write back.
	generation uint64
}

func NewCache(params CacheParams) (*Cache, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog state store is required")
	}
	if params.Fetcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog fetcher is required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Cache{
		store:   params.Store,
		fetcher: params.Fetcher,
		ttl:     ttl,
		now:     now,
		logg:    logg,
		metrics: params.Metrics,
	}, nil
}

// Fetch returns the catalog. A fresh cached copy is returned without a network
// call. Otherwise the catalog is refetched; a failed refetch yields an empty
// list rather than stale data.
func (c *Cache) Fetch(ctx context.Context) Result {
	if products, fetchedAt, ok := c.fresh(ctx); ok {
		c.metrics.CatalogResult("hit")
		return Result{Products: products, FetchedAt: fetchedAt, Source: SourceCache}
	}
	c.metrics.CatalogResult("miss")

	// The shared fetch outlives any single caller; the client timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	value, err, _ := c.group.Do("products", func() (any, error) {
		return c.refresh(fetchCtx)
	})
	if err != nil {
		c.metrics.CatalogResult("fetch_error")
		c.logg.WarnErr(c.logg.WithComponent(ctx, "catalog"), "catalog fetch failed", err)
		return Result{Products: []types.Product{}, Source: SourceFailed, Err: err}
	}
	res := value.(Result)
	res.Products = append([]types.Product(nil), res.Products...)
	return res
}

// Products is Fetch without the metadata.
func (c *Cache) Products(ctx context.Context) []types.Product {
	return c.Fetch(ctx).Products
}

// Invalidate drops the cached catalog so the next Fetch goes to the network.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.generation++
	c.group.Forget("products")
	return c.store.Delete(ctx, localstore.KeyProductsCache, localstore.KeyProductsCacheTime)
}

func (c *Cache) fresh(ctx context.Context) ([]types.Product, time.Time, bool) {
	rawTime, ok, err := c.store.Get(ctx, localstore.KeyProductsCacheTime)
	if err != nil || !ok {
		return nil, time.Time{}, false
	}
	millis, err := strconv.ParseInt(strings.TrimSpace(rawTime), 10, 64)
	if err != nil {
		return nil, time.Time{}, false
	}
	fetchedAt := time.UnixMilli(millis)
	if c.now().Sub(fetchedAt) >= c.ttl {
		return nil, time.Time{}, false
	}

	raw, ok, err := c.store.Get(ctx, localstore.KeyProductsCache)
	if err != nil || !ok {
		return nil, time.Time{}, false
	}
	var products []types.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		c.logg.WarnErr(ctx, "ignoring corrupt catalog cache", err)
		return nil, time.Time{}, false
	}
	if products == nil {
		products = []types.Product{}
	}
	return products, fetchedAt, true
}

func (c *Cache) refresh(ctx context.Context) (Result, error) {
	c.writeMu.Lock()
	generation := c.generation
	c.writeMu.Unlock()

	products, err := c.fetcher.Products(ctx)
	if err != nil {
		return Result{}, err
	}
	if products == nil {
		products = []types.Product{}
	}
	fetchedAt := c.now()

	payload, err := json.Marshal(products)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode catalog cache")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if generation != c.generation {
		c.logg.Debug(ctx, "catalog invalidated during fetch; not caching response")
		return Result{Products: products, FetchedAt: fetchedAt, Source: SourceNetwork}, nil
	}
	if err := c.store.Set(ctx, localstore.KeyProductsCache, string(payload)); err != nil {
		c.logg.WarnErr(ctx, "failed to persist catalog cache", err)
	} else if err := c.store.Set(ctx, localstore.KeyProductsCacheTime, strconv.FormatInt(fetchedAt.UnixMilli(), 10)); err != nil {
		c.logg.WarnErr(ctx, "failed to persist catalog cache time", err)
	}
	return Result{Products: products, FetchedAt: fetchedAt, Source: SourceNetwork}, nil
}
