package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/artmarket/artmarket-backend/pkg/db/models"
	pkgerrors "github.com/artmarket/artmarket-backend/pkg/errors"
)

// DB persists entries in the storage_entries table.
type DB struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDB(conn *gorm.DB) (*DB, error) {
	if conn == nil {
		return nil, errors.New("gorm db required")
	}
	return &DB{db: conn, now: time.Now}, nil
}

func (b *DB) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	var entry models.StorageEntry
	err := b.db.WithContext(ctx).
		Where(map[string]any{"namespace": namespace, "key": key}).
		Take(&entry).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	case err != nil:
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read storage entry")
	}
	return entry.Value, true, nil
}

func (b *DB) Set(ctx context.Context, namespace, key, value string) error {
	entry := models.StorageEntry{
		Namespace: namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: b.now().UTC(),
	}
	err := b.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write storage entry")
	}
	return nil
}

func (b *DB) Delete(ctx context.Context, namespace, key string) error {
	err := b.db.WithContext(ctx).
		Where(map[string]any{"namespace": namespace, "key": key}).
		Delete(&models.StorageEntry{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete storage entry")
	}
	return nil
}

// Close is a no-op; the connection pool is owned by the db client.
func (b *DB) Close() error { return nil }
