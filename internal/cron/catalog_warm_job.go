package cron

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront/internal/catalog"
)

type catalogFetcher interface {
	Fetch(ctx context.Context) catalog.Result
}

// CatalogWarmJob refetches the catalog once the cached copy goes stale so
// shell reads keep hitting the cache.
type CatalogWarmJob struct {
	catalog catalogFetcher
}

func NewCatalogWarmJob(c catalogFetcher) (*CatalogWarmJob, error) {
	if c == nil {
		return nil, errors.New("catalog required")
	}
	return &CatalogWarmJob{catalog: c}, nil
}

func (j *CatalogWarmJob) Name() string { return "catalog_warm" }

func (j *CatalogWarmJob) Run(ctx context.Context) error {
	res := j.catalog.Fetch(ctx)
	if res.Source == catalog.SourceFailed {
		return res.Err
	}
	return nil
}
