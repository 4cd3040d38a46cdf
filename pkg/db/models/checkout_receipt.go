package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/artmarket/artmarket-backend/pkg/enums"
)

// CheckoutReceipt records a completed checkout: the cart as it stood when the
// payment processor reported success.
type CheckoutReceipt struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SessionID        string              `gorm:"column:session_id;size:255;not null;index"`
	PaymentReference string              `gorm:"column:payment_reference;size:255;not null;uniqueIndex:checkout_receipts_payment_reference_key"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;size:32;not null"`
	Lines            json.RawMessage     `gorm:"column:lines;type:jsonb;not null"`
	ItemCount        int                 `gorm:"column:item_count;not null;default:0"`
	Total            decimal.Decimal     `gorm:"column:total;type:numeric(14,2);not null"`
	Currency         enums.Currency      `gorm:"column:currency;size:3;not null;default:'USD'"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (CheckoutReceipt) TableName() string {
	return "checkout_receipts"
}

func (r *CheckoutReceipt) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
