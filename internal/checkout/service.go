package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/artmarket/artmarket-backend/internal/cart"
	"github.com/artmarket/artmarket-backend/pkg/db"
	"github.com/artmarket/artmarket-backend/pkg/db/models"
	"github.com/artmarket/artmarket-backend/pkg/enums"
	pkgerrors "github.com/artmarket/artmarket-backend/pkg/errors"
	"github.com/artmarket/artmarket-backend/pkg/logger"
)

const receiptReferenceConstraint = "checkout_receipts_payment_reference_key"

// MaxPaymentReferenceLength matches the payment_reference column, in characters.
const MaxPaymentReferenceLength = 255

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartSessions interface {
	Get(ctx context.Context, sessionID string) (*cart.Store, error)
}

// Service turns a session's cart into a receipt once payment succeeds.
type Service interface {
	Summary(ctx context.Context, sessionID string) (*Summary, error)
	Complete(ctx context.Context, sessionID string, input Confirmation) (*Result, error)
	History(ctx context.Context, sessionID string, limit int) ([]models.CheckoutReceipt, error)
}

// Summary is what the checkout page shows before payment.
type Summary struct {
	SessionID string
	Cart      cart.Snapshot
	Currency  enums.Currency
}

// Confirmation is the payment processor's report for a checkout.
type Confirmation struct {
	PaymentReference string
	Status           enums.PaymentStatus
	Amount           *decimal.Decimal
}

// Result carries the receipt; Replayed marks a confirmation seen before.
type Result struct {
	Receipt  *models.CheckoutReceipt
	Replayed bool
}

type service struct {
	tx       txRunner
	repo     Repository
	sessions cartSessions
	currency enums.Currency
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(tx txRunner, repo Repository, sessions cartSessions, currency enums.Currency, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("receipt repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("cart sessions required")
	}
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, fmt.Errorf("invalid currency %q", currency)
	}
	return &service{
		tx:       tx,
		repo:     repo,
		sessions: sessions,
		currency: currency,
		logg:     logg,
	}, nil
}

func (s *service) Summary(ctx context.Context, sessionID string) (*Summary, error) {
	store, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		SessionID: store.SessionID(),
		Cart:      store.Snapshot(),
		Currency:  s.currency,
	}, nil
}

func (s *service) Complete(ctx context.Context, sessionID string, input Confirmation) (*Result, error) {
	reference := strings.TrimSpace(input.PaymentReference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	if utf8.RuneCountInString(reference) > MaxPaymentReferenceLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("payment reference must be at most %d characters", MaxPaymentReferenceLength))
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment status %q", input.Status))
	}
	if input.Status != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment is %s", input.Status))
	}

	store, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByPaymentReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup receipt")
	}
	if existing != nil {
		return s.replay(existing, store.SessionID())
	}

	snapshot := store.Snapshot()
	if len(snapshot.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	total := snapshot.TotalPrice.Round(2)
	if input.Amount != nil && !input.Amount.Round(2).Equal(total) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "paid amount does not match cart total").
			WithDetails(map[string]any{"cart_total": total.StringFixed(2), "paid_amount": input.Amount.StringFixed(2)})
	}

	lines, err := json.Marshal(snapshot.Lines)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode receipt lines")
	}
	receipt := &models.CheckoutReceipt{
		SessionID:        store.SessionID(),
		PaymentReference: reference,
		PaymentStatus:    input.Status,
		Lines:            lines,
		ItemCount:        snapshot.ItemCount,
		Total:            total,
		Currency:         s.currency,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, receipt)
	})
	if err != nil {
		if db.IsUniqueViolation(err, receiptReferenceConstraint) {
			// a concurrent confirmation with the same reference won
			existing, lookupErr := s.repo.FindByPaymentReference(ctx, reference)
			if lookupErr == nil && existing != nil {
				return s.replay(existing, store.SessionID())
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist receipt")
	}

	store.RemoveLines(ctx, snapshot.Lines)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"receipt_id":        receipt.ID.String(),
			"payment_reference": reference,
			"total":             total.StringFixed(2),
		})
		s.logg.Info(logCtx, "checkout.completed")
	}
	return &Result{Receipt: receipt}, nil
}

func (s *service) replay(receipt *models.CheckoutReceipt, sessionID string) (*Result, error) {
	if receipt.SessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment reference belongs to another session")
	}
	return &Result{Receipt: receipt, Replayed: true}, nil
}

func (s *service) History(ctx context.Context, sessionID string, limit int) ([]models.CheckoutReceipt, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	receipts, err := s.repo.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list receipts")
	}
	return receipts, nil
}

var _ txRunner = (*db.Client)(nil)
