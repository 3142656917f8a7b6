package localstore

import (
	"context"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/security"
)

// Sealed encrypts the values of selected keys before they reach the backend.
// Values written before sealing was enabled are passed through unchanged.
// A sealed value that no longer opens is dropped and reported as absent.
type Sealed struct {
	inner  Store
	sealer *security.Sealer
	logg   *logger.Logger
	keys   map[string]struct{}
}

func NewSealed(inner Store, sealer *security.Sealer, logg *logger.Logger, keys ...string) *Sealed {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return &Sealed{inner: inner, sealer: sealer, logg: logg, keys: set}
}

func (s *Sealed) sealed(key string) bool {
	_, ok := s.keys[key]
	return ok
}

func (s *Sealed) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok || !s.sealed(key) || !security.IsSealed(value) {
		return value, ok, err
	}
	plain, err := s.sealer.Open(value)
	if err != nil {
		logCtx := s.logg.WithField(ctx, "key", key)
		s.logg.WarnErr(logCtx, "dropping unreadable sealed value", err)
		if delErr := s.inner.Delete(ctx, key); delErr != nil {
			s.logg.WarnErr(logCtx, "failed to delete unreadable sealed value", delErr)
		}
		return "", false, nil
	}
	return plain, true, nil
}

func (s *Sealed) Set(ctx context.Context, key, value string) error {
	if !s.sealed(key) {
		return s.inner.Set(ctx, key, value)
	}
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *Sealed) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

func (s *Sealed) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}
