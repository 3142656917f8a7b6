package localstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/security"
)

// Persisted keys. Backends may namespace them physically but callers always use
// these names.
const (
	KeyToken             = "token"
	KeyUser              = "user"
	KeyCart              = "cart"
	KeyProductsCache     = "products_cache"
	KeyProductsCacheTime = "products_cache_time"
)

// Store is a flat string key/value store that survives process restarts.
// A missing key is reported as ("", false, nil), never as an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// Closer releases backend resources.
type Closer func() error

// Open builds the configured backend, wrapping it with at-rest sealing of the
// auth keys when a passphrase is set.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, Closer, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	var (
		store  Store
		closer Closer = func() error { return nil }
	)

	switch strings.ToLower(strings.TrimSpace(cfg.State.Driver)) {
	case config.StateDriverMemory:
		store = NewMemory()
	case config.StateDriverSQLite, config.StateDriverPostgres:
		client, err := db.New(ctx, cfg.State, cfg.DB, logg)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		sqlStore, err := NewSQL(client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		store, closer = sqlStore, client.Close
	case config.StateDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, cfg.State.Namespace, logg)
		if err != nil {
			return nil, nil, err
		}
		store, closer = NewRedis(client), client.Close
	default:
		return nil, nil, fmt.Errorf("unsupported state driver %q", cfg.State.Driver)
	}

	if cfg.State.Sealed() {
		sealer, err := security.NewSealer(cfg.State.Passphrase, cfg.Password)
		if err != nil {
			_ = closer()
			return nil, nil, err
		}
		store = NewSealed(store, sealer, logg, KeyToken, KeyUser)
	}
	return store, closer, nil
}
