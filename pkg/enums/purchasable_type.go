package enums

import (
	"fmt"
	"strings"
)

// PurchasableType distinguishes catalogs whose item ids may collide.
type PurchasableType string

const (
	PurchasableTypeArtwork   PurchasableType = "artwork"
	PurchasableTypeEquipment PurchasableType = "equipment"
)

// DefaultPurchasableType is applied when a caller does not name a type.
const DefaultPurchasableType = PurchasableTypeArtwork

var validPurchasableTypes = []PurchasableType{
	PurchasableTypeArtwork,
	PurchasableTypeEquipment,
}

// String implements fmt.Stringer.
func (p PurchasableType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchasableType.
func (p PurchasableType) IsValid() bool {
	for _, candidate := range validPurchasableTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// OrDefault returns the artwork type for an empty value.
func (p PurchasableType) OrDefault() PurchasableType {
	if strings.TrimSpace(string(p)) == "" {
		return DefaultPurchasableType
	}
	return p
}

// ParsePurchasableType converts raw input into a PurchasableType.
func ParsePurchasableType(value string) (PurchasableType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPurchasableTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchasable type %q", value)
}
