package cart

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	cartsvc "github.com/artmarket/artmarket-backend/internal/cart"
	"github.com/artmarket/artmarket-backend/pkg/enums"
	pkgerrors "github.com/artmarket/artmarket-backend/pkg/errors"
)

// AddItemRequest is the body of POST /api/v1/cart/items. Type defaults to
// artwork; item is the free-form object shown by the browsing page.
type AddItemRequest struct {
	Type string          `json:"type" validate:"omitempty,max=32"`
	Item json.RawMessage `json:"item" validate:"required"`
}

func (r AddItemRequest) toInput() (cartsvc.Item, enums.PurchasableType, error) {
	typ, err := parseType(r.Type)
	if err != nil {
		return cartsvc.Item{}, "", err
	}
	item, err := cartsvc.ParseItem(r.Item)
	if err != nil {
		return cartsvc.Item{}, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item").
			WithDetails(map[string]string{"item": err.Error()})
	}
	return item, typ, nil
}

func parseType(raw string) (enums.PurchasableType, error) {
	if strings.TrimSpace(raw) == "" {
		return enums.DefaultPurchasableType, nil
	}
	typ, err := enums.ParsePurchasableType(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchasable type").
			WithDetails(map[string]string{"type": "must be artwork or equipment"})
	}
	return typ, nil
}

// lineKeyFromPath reads the {type}/{id} segments addressing one cart line.
func lineKeyFromPath(r *http.Request) (cartsvc.LineID, enums.PurchasableType, error) {
	typ, err := enums.ParsePurchasableType(chi.URLParam(r, "type"))
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid purchasable type").
			WithDetails(map[string]string{"type": "must be artwork or equipment"})
	}
	id := cartsvc.LineID(strings.TrimSpace(chi.URLParam(r, "id")))
	if err := id.Validate(); err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line id").
			WithDetails(map[string]string{"id": err.Error()})
	}
	return id, typ, nil
}
