package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/artmarket/artmarket-backend/pkg/enums"
)

const (
	fieldID       = "id"
	fieldType     = "type"
	fieldPrice    = "price"
	fieldQuantity = "quantity"
)

// MaxLineIDLength bounds an id, in characters.
const MaxLineIDLength = 255

// Numeric values outside these bounds are not treated as numbers. Summing a
// decimal rescales it to exponent 0, so an exponent like 1e100000000 would
// materialize a hundred-million-digit integer.
const (
	maxNumericTextLength = 64
	maxNumericExponent   = 28
	maxNumericDigits     = 38
)

var (
	errPriceNotNumeric = errors.New("price is not numeric")
	errPriceOutOfRange = errors.New("price is out of range")
)

// LineID identifies a purchasable within its type. String ids are trimmed.
// Numeric ids are normalized to their shortest decimal form, so 1, 1.0, 1e0
// and "1" address the same line; the string "1.0" stays distinct.
type LineID string

// Validate rejects blank and over-long ids.
func (id LineID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return fmt.Errorf("item id is required")
	}
	if utf8.RuneCountInString(string(id)) > MaxLineIDLength {
		return fmt.Errorf("item id must be at most %d characters", MaxLineIDLength)
	}
	return nil
}

// String implements fmt.Stringer.
func (id LineID) String() string {
	return string(id)
}

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *LineID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return fmt.Errorf("decode line id: %w", err)
	}

	switch v := value.(type) {
	case string:
		*id = LineID(strings.TrimSpace(v))
	case json.Number:
		*id = LineID(normalizeNumericID(v.String()))
	default:
		return fmt.Errorf("line id must be a string or number, got %T", value)
	}
	return nil
}

func normalizeNumericID(literal string) string {
	amount, err := parseBoundedDecimal(literal)
	if err != nil {
		return literal
	}
	return amount.String()
}

// parseBoundedDecimal parses text as a decimal whose size is safe to compute
// with.
func parseBoundedDecimal(text string) (decimal.Decimal, error) {
	if len(text) > maxNumericTextLength {
		if strings.Trim(text, "0123456789+-.eE") == "" {
			return decimal.Zero, errPriceOutOfRange
		}
		return decimal.Zero, errPriceNotNumeric
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, errPriceNotNumeric
	}
	exp := amount.Exponent()
	if exp > maxNumericExponent || exp < -maxNumericExponent || amount.NumDigits() > maxNumericDigits {
		return decimal.Zero, errPriceOutOfRange
	}
	return amount, nil
}

// Price keeps the unit price exactly as it was supplied. Catalog data is not
// trusted to be numeric, so the numeric view is derived on demand.
type Price struct {
	raw json.RawMessage
}

// NewPrice builds a Price from a decimal amount.
func NewPrice(amount decimal.Decimal) Price {
	return Price{raw: json.RawMessage(amount.String())}
}

// RawPrice wraps an arbitrary JSON value as a Price.
func RawPrice(raw json.RawMessage) Price {
	if len(raw) == 0 {
		return Price{}
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return Price{raw: cp}
}

// Raw returns the JSON value as supplied.
func (p Price) Raw() json.RawMessage {
	return p.raw
}

// Decimal reports the numeric value of the price. JSON numbers and numeric
// strings are numeric; anything else (missing, null, text, objects) is not,
// and neither is a number too large or too precise to sum safely.
func (p Price) Decimal() (decimal.Decimal, bool) {
	amount, err := p.parse()
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

func (p Price) parse() (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(p.raw)
	if len(trimmed) == 0 {
		return decimal.Zero, errPriceNotNumeric
	}

	text := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return decimal.Zero, errPriceNotNumeric
		}
		text = strings.TrimSpace(s)
	}
	if text == "" {
		return decimal.Zero, errPriceNotNumeric
	}
	return parseBoundedDecimal(text)
}

// Amount returns the numeric price, or zero when the price is not numeric.
func (p Price) Amount() decimal.Decimal {
	amount, _ := p.Decimal()
	return amount
}

// MarshalJSON writes the original value back out.
func (p Price) MarshalJSON() ([]byte, error) {
	if len(bytes.TrimSpace(p.raw)) == 0 {
		return []byte("null"), nil
	}
	return p.raw, nil
}

// UnmarshalJSON captures the raw value without interpreting it.
func (p *Price) UnmarshalJSON(data []byte) error {
	*p = RawPrice(data)
	return nil
}

// Item is what browsing pages hand to AddItem: an id, a price and any display
// fields they want echoed back on the cart line.
type Item struct {
	ID      LineID
	Price   Price
	Details map[string]json.RawMessage
}

// ParseItem decodes a free-form JSON object into an Item. The object must carry
// a valid id; type and quantity keys are owned by the cart and are discarded.
// A price that is numeric but out of range is rejected.
func ParseItem(raw json.RawMessage) (Item, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Item{}, fmt.Errorf("item must be a JSON object: %w", err)
	}
	if fields == nil {
		return Item{}, fmt.Errorf("item must be a JSON object")
	}

	var item Item
	rawID, ok := fields[fieldID]
	if !ok {
		return Item{}, fmt.Errorf("item id is required")
	}
	if err := json.Unmarshal(rawID, &item.ID); err != nil {
		return Item{}, err
	}
	if err := item.ID.Validate(); err != nil {
		return Item{}, err
	}
	item.Price = RawPrice(fields[fieldPrice])
	if _, err := item.Price.parse(); errors.Is(err, errPriceOutOfRange) {
		return Item{}, fmt.Errorf("item %w", err)
	}

	for key, value := range fields {
		switch key {
		case fieldID, fieldPrice, fieldType, fieldQuantity:
			continue
		}
		if item.Details == nil {
			item.Details = make(map[string]json.RawMessage, len(fields))
		}
		item.Details[key] = value
	}
	return item, nil
}

// Line is one distinct purchasable in the cart.
type Line struct {
	ID       LineID
	Type     enums.PurchasableType
	Price    Price
	Quantity int
	Details  map[string]json.RawMessage
}

// Subtotal is price × quantity with non-numeric prices counted as zero.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Amount().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// DetailString returns a display field when it holds a JSON string.
func (l Line) DetailString(key string) (string, bool) {
	raw, ok := l.Details[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (l Line) matches(id LineID, typ enums.PurchasableType) bool {
	return l.ID == id && l.Type == typ
}

func (l Line) clone() Line {
	out := l
	out.Price = RawPrice(l.Price.raw)
	if l.Details != nil {
		out.Details = make(map[string]json.RawMessage, len(l.Details))
		for k, v := range l.Details {
			out.Details[k] = v
		}
	}
	return out
}

// MarshalJSON flattens the display fields next to the cart-owned fields, which
// is the layout stored under the cartItems key.
func (l Line) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.Details)+4)
	for k, v := range l.Details {
		out[k] = v
	}
	out[fieldID] = l.ID
	out[fieldType] = l.Type
	out[fieldPrice] = l.Price
	out[fieldQuantity] = l.Quantity
	return json.Marshal(out)
}

// UnmarshalJSON reads one stored line. Unreadable type or quantity values are
// left at their zero value and cleaned up when the cart is normalized.
func (l *Line) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("cart line must be a JSON object")
	}

	var line Line
	if raw, ok := fields[fieldID]; ok {
		if err := json.Unmarshal(raw, &line.ID); err != nil {
			return err
		}
	}
	if raw, ok := fields[fieldType]; ok {
		var typ string
		if err := json.Unmarshal(raw, &typ); err == nil {
			line.Type = enums.PurchasableType(typ)
		}
	}
	line.Price = RawPrice(fields[fieldPrice])
	if raw, ok := fields[fieldQuantity]; ok {
		var qty json.Number
		if err := json.Unmarshal(raw, &qty); err == nil {
			if n, err := qty.Int64(); err == nil {
				line.Quantity = int(n)
			}
		}
	}

	for key, value := range fields {
		switch key {
		case fieldID, fieldType, fieldPrice, fieldQuantity:
			continue
		}
		if line.Details == nil {
			line.Details = make(map[string]json.RawMessage, len(fields))
		}
		line.Details[key] = value
	}

	*l = line
	return nil
}
