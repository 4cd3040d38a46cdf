package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/artmarket/artmarket-backend/api/middleware"
	cartsvc "github.com/artmarket/artmarket-backend/internal/cart"
	checkoutsvc "github.com/artmarket/artmarket-backend/internal/checkout"
	"github.com/artmarket/artmarket-backend/pkg/config"
	"github.com/artmarket/artmarket-backend/pkg/db"
	"github.com/artmarket/artmarket-backend/pkg/db/models"
	"github.com/artmarket/artmarket-backend/pkg/enums"
	pkgerrors "github.com/artmarket/artmarket-backend/pkg/errors"
	"github.com/artmarket/artmarket-backend/pkg/storage"
	"github.com/artmarket/artmarket-backend/pkg/types"
)

const testSession = "user:7a6c0d56-3a1f-4a0b-9f59-0b8a9e1c2d3e"

type checkoutHarness struct {
	sessions *cartsvc.Sessions
	svc      checkoutsvc.Service
}

func newCheckoutHarness(t *testing.T) *checkoutHarness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.CheckoutReceipt{}))

	sessions, err := cartsvc.NewSessions(cartsvc.SessionsParams{Storage: storage.NewMemory()})
	require.NoError(t, err)
	svc, err := checkoutsvc.NewService(db.Wrap(conn), checkoutsvc.NewRepository(conn), sessions, enums.CurrencyUSD, nil)
	require.NoError(t, err)
	return &checkoutHarness{sessions: sessions, svc: svc}
}

func (h *checkoutHarness) seed(t *testing.T, raw string) {
	t.Helper()
	store, err := h.sessions.Get(context.Background(), testSession)
	require.NoError(t, err)
	item, err := cartsvc.ParseItem(json.RawMessage(raw))
	require.NoError(t, err)
	store.AddItem(context.Background(), item, enums.PurchasableTypeArtwork)
}

func withSession(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithSessionID(req.Context(), testSession))
}

func TestCheckoutSummary(t *testing.T) {
	h := newCheckoutHarness(t)
	h.seed(t, `{"id":"a1","price":"40.25","title":"Tide"}`)

	resp := httptest.NewRecorder()
	CheckoutSummary(h.svc, nil).ServeHTTP(resp, withSession(httptest.NewRequest(http.MethodGet, "/api/v1/checkout", nil)))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var env struct {
		Data struct {
			Lines      []map[string]any `json:"lines"`
			TotalPrice json.Number      `json:"total_price"`
			ItemCount  int              `json:"item_count"`
			Currency   string           `json:"currency"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "40.25", env.Data.TotalPrice.String())
	assert.Equal(t, 1, env.Data.ItemCount)
	assert.Equal(t, "USD", env.Data.Currency)
	require.Len(t, env.Data.Lines, 1)
	assert.Equal(t, "Tide", env.Data.Lines[0]["title"])
}

func TestCheckoutCompleteCreatesThenReplays(t *testing.T) {
	h := newCheckoutHarness(t)
	h.seed(t, `{"id":"a1","price":40}`)
	handler := CheckoutComplete(h.svc, nil)

	body := `{"payment_reference":"pi_42","status":"PAID","amount":"40.00"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/complete", strings.NewReader(body))))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var env struct {
		Data receiptResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "pi_42", env.Data.PaymentReference)
	assert.Equal(t, "40.00", env.Data.Total.String())
	assert.False(t, env.Data.Replayed)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/complete", strings.NewReader(body))))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var replay struct {
		Data receiptResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&replay))
	assert.True(t, replay.Data.Replayed)
	assert.Equal(t, env.Data.ID, replay.Data.ID)

	resp = httptest.NewRecorder()
	CheckoutReceipts(h.svc, nil).ServeHTTP(resp, withSession(httptest.NewRequest(http.MethodGet, "/api/v1/checkout/receipts?limit=5", nil)))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var list struct {
		Data []receiptResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list.Data, 1)
}

func TestCheckoutCompleteErrors(t *testing.T) {
	h := newCheckoutHarness(t)
	handler := CheckoutComplete(h.svc, nil)

	cases := []struct {
		name   string
		seed   bool
		body   string
		status int
		code   pkgerrors.Code
	}{
		{name: "missing reference", body: `{"status":"paid"}`, status: http.StatusBadRequest, code: pkgerrors.CodeValidation},
		{name: "empty cart", body: `{"payment_reference":"pi_1","status":"paid"}`, status: http.StatusBadRequest, code: pkgerrors.CodeValidation},
		{name: "not paid", seed: true, body: `{"payment_reference":"pi_2","status":"failed"}`, status: http.StatusUnprocessableEntity, code: pkgerrors.CodeStateConflict},
		{name: "reference too long", seed: true, body: `{"payment_reference":"` + strings.Repeat("r", 256) + `","status":"paid"}`, status: http.StatusBadRequest, code: pkgerrors.CodeValidation},
		{name: "amount mismatch", seed: true, body: `{"payment_reference":"pi_3","status":"paid","amount":1}`, status: http.StatusConflict, code: pkgerrors.CodeConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.seed {
				h.seed(t, `{"id":"a1","price":40}`)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/complete", strings.NewReader(tc.body))))
			require.Equal(t, tc.status, resp.Code, resp.Body.String())

			var env types.ErrorEnvelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
			assert.Equal(t, string(tc.code), env.Error.Code)
		})
	}
}

func TestCheckoutRequiresSession(t *testing.T) {
	h := newCheckoutHarness(t)
	resp := httptest.NewRecorder()
	CheckoutSummary(h.svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/checkout", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthEndpoints(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get(envHeader))

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{}, "redis": nil}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"db":"ok"`)

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{err: errors.New("down")}}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
