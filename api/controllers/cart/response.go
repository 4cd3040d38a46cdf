package cart

import (
	"encoding/json"

	cartsvc "github.com/artmarket/artmarket-backend/internal/cart"
)

// CartResponse is the cart as rendered by the cart page.
type CartResponse struct {
	Lines      []cartsvc.Line `json:"lines"`
	TotalPrice json.Number    `json:"total_price"`
	ItemCount  int            `json:"item_count"`
}

func newCartResponse(snapshot cartsvc.Snapshot) CartResponse {
	lines := snapshot.Lines
	if lines == nil {
		lines = []cartsvc.Line{}
	}
	return CartResponse{
		Lines:      lines,
		TotalPrice: json.Number(snapshot.TotalPrice.String()),
		ItemCount:  snapshot.ItemCount,
	}
}
