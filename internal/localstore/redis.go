package localstore

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront/pkg/redis"
)

// Redis keeps state under namespaced keys with no expiry.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.client.StateKey(key))
	if redis.IsMissing(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read state %q: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.client.StateKey(key), value, 0); err != nil {
		return fmt.Errorf("write state %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	physical := make([]string, 0, len(keys))
	for _, key := range keys {
		physical = append(physical, r.client.StateKey(key))
	}
	return r.client.Del(ctx, physical...)
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
