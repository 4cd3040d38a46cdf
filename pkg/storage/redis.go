package storage

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/artmarket/artmarket-backend/pkg/errors"
	"github.com/artmarket/artmarket-backend/pkg/redis"
)

// Redis stores each entry under am:storage:<namespace>:<key>. A positive ttl
// expires abandoned sessions; zero keeps entries forever.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (b *Redis) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	value, found, err := b.client.Lookup(ctx, b.client.StorageKey(namespace, key))
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read storage entry")
	}
	return value, found, nil
}

func (b *Redis) Set(ctx context.Context, namespace, key, value string) error {
	if err := b.client.Set(ctx, b.client.StorageKey(namespace, key), value, b.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write storage entry")
	}
	return nil
}

func (b *Redis) Delete(ctx context.Context, namespace, key string) error {
	if err := b.client.Del(ctx, b.client.StorageKey(namespace, key)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete storage entry")
	}
	return nil
}

// Close is a no-op; the redis client is owned by the caller.
func (b *Redis) Close() error { return nil }
