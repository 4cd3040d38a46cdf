package cart

import (
	"context"
	"net/http"

	"github.com/artmarket/artmarket-backend/api/middleware"
	"github.com/artmarket/artmarket-backend/api/responses"
	"github.com/artmarket/artmarket-backend/api/validators"
	cartsvc "github.com/artmarket/artmarket-backend/internal/cart"
	"github.com/artmarket/artmarket-backend/pkg/enums"
	pkgerrors "github.com/artmarket/artmarket-backend/pkg/errors"
	"github.com/artmarket/artmarket-backend/pkg/logger"
)

// Sessions hands out the live cart store of a session.
type Sessions interface {
	Get(ctx context.Context, sessionID string) (*cartsvc.Store, error)
}

type lineMutation func(store *cartsvc.Store, ctx context.Context, id cartsvc.LineID, typ enums.PurchasableType) cartsvc.Snapshot

// CartFetch returns the session's cart.
func CartFetch(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeForRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store.Snapshot()))
	}
}

// CartAddItem adds one unit of an item, creating its line when needed.
func CartAddItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeForRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, typ, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(store.AddItem(r.Context(), item, typ)))
	}
}

func CartRemoveItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return lineHandler(sessions, logg, (*cartsvc.Store).RemoveItem)
}

func CartIncreaseQuantity(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return lineHandler(sessions, logg, (*cartsvc.Store).IncreaseQuantity)
}

// CartDecreaseQuantity removes the line once its quantity would drop below one.
func CartDecreaseQuantity(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return lineHandler(sessions, logg, (*cartsvc.Store).DecreaseQuantity)
}

func CartClear(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeForRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store.Clear(r.Context())))
	}
}

func lineHandler(sessions Sessions, logg *logger.Logger, mutate lineMutation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := storeForRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, typ, err := lineKeyFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(mutate(store, r.Context(), id, typ)))
	}
}

func storeForRequest(r *http.Request, sessions Sessions) (*cartsvc.Store, error) {
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart sessions unavailable")
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	return sessions.Get(r.Context(), sessionID)
}
