// Package storage provides the namespaced key/value backends cart sessions
// persist to.
package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/artmarket/artmarket-backend/pkg/enums"
	"github.com/artmarket/artmarket-backend/pkg/redis"
)

// Backend is a string key/value store partitioned by namespace.
type Backend interface {
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	Set(ctx context.Context, namespace, key, value string) error
	Delete(ctx context.Context, namespace, key string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver enums.StorageDriver
	DB     *gorm.DB
	Redis  *redis.Client
	TTL    time.Duration
}

// Open builds the backend named by opts.Driver.
func Open(opts Options) (Backend, error) {
	switch opts.Driver {
	case enums.StorageDriverMemory:
		return NewMemory(), nil
	case enums.StorageDriverDB, "":
		return NewDB(opts.DB)
	case enums.StorageDriverRedis:
		return NewRedis(opts.Redis, opts.TTL)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", opts.Driver)
	}
}
