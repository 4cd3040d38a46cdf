package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/artmarket/artmarket-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists checkout receipts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByPaymentReference(ctx context.Context, reference string) (*models.CheckoutReceipt, error)
	Create(ctx context.Context, receipt *models.CheckoutReceipt) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.CheckoutReceipt, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a receipt repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByPaymentReference returns nil, nil when no receipt carries the reference.
func (r *repository) FindByPaymentReference(ctx context.Context, reference string) (*models.CheckoutReceipt, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var receipt models.CheckoutReceipt
	err := r.db.WithContext(ctx).
		Where("payment_reference = ?", reference).
		Take(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}

func (r *repository) Create(ctx context.Context, receipt *models.CheckoutReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *repository) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.CheckoutReceipt, error) {
	if limit <= 0 {
		limit = 20
	}
	var receipts []models.CheckoutReceipt
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&receipts).Error
	return receipts, err
}
