package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artmarket/artmarket-backend/api/middleware"
	"github.com/artmarket/artmarket-backend/api/responses"
	"github.com/artmarket/artmarket-backend/api/validators"
	cartsvc "github.com/artmarket/artmarket-backend/internal/cart"
	checkoutsvc "github.com/artmarket/artmarket-backend/internal/checkout"
	"github.com/artmarket/artmarket-backend/pkg/db/models"
	"github.com/artmarket/artmarket-backend/pkg/enums"
	pkgerrors "github.com/artmarket/artmarket-backend/pkg/errors"
	"github.com/artmarket/artmarket-backend/pkg/logger"
)

type completeCheckoutRequest struct {
	PaymentReference string           `json:"payment_reference" validate:"required,max=255"`
	Status           string           `json:"status" validate:"required"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
}

type checkoutSummaryResponse struct {
	Lines      []cartsvc.Line `json:"lines"`
	TotalPrice json.Number    `json:"total_price"`
	ItemCount  int            `json:"item_count"`
	Currency   enums.Currency `json:"currency"`
}

type receiptResponse struct {
	ID               string          `json:"id"`
	PaymentReference string          `json:"payment_reference"`
	Status           string          `json:"status"`
	Lines            json.RawMessage `json:"lines"`
	ItemCount        int             `json:"item_count"`
	Total            json.Number     `json:"total"`
	Currency         enums.Currency  `json:"currency"`
	CreatedAt        time.Time       `json:"created_at"`
	Replayed         bool            `json:"replayed,omitempty"`
}

func newReceiptResponse(receipt *models.CheckoutReceipt, replayed bool) receiptResponse {
	return receiptResponse{
		ID:               receipt.ID.String(),
		PaymentReference: receipt.PaymentReference,
		Status:           receipt.PaymentStatus.String(),
		Lines:            receipt.Lines,
		ItemCount:        receipt.ItemCount,
		Total:            json.Number(receipt.Total.StringFixed(2)),
		Currency:         receipt.Currency,
		CreatedAt:        receipt.CreatedAt,
		Replayed:         replayed,
	}
}

// CheckoutSummary shows the cart about to be paid for.
func CheckoutSummary(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := summary.Cart.Lines
		if lines == nil {
			lines = []cartsvc.Line{}
		}
		responses.WriteSuccess(w, checkoutSummaryResponse{
			Lines:      lines,
			TotalPrice: json.Number(summary.Cart.TotalPrice.String()),
			ItemCount:  summary.Cart.ItemCount,
			Currency:   summary.Currency,
		})
	}
}

// CheckoutComplete records the payment processor's confirmation. A new receipt
// answers 201; a replayed payment reference answers 200 with the original.
func CheckoutComplete(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload completeCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Complete(r.Context(), sessionID, checkoutsvc.Confirmation{
			PaymentReference: strings.TrimSpace(payload.PaymentReference),
			Status:           enums.PaymentStatus(strings.ToLower(strings.TrimSpace(payload.Status))),
			Amount:           payload.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, newReceiptResponse(result.Receipt, result.Replayed))
	}
}

// CheckoutReceipts lists the session's most recent receipts.
func CheckoutReceipts(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipts, err := svc.History(r.Context(), sessionID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]receiptResponse, 0, len(receipts))
		for i := range receipts {
			out = append(out, newReceiptResponse(&receipts[i], false))
		}
		responses.WriteSuccess(w, out)
	}
}

func sessionIDFromRequest(r *http.Request) (string, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	return sessionID, nil
}
