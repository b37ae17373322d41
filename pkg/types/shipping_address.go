package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

const ShippingAddressVersion = 1

// ShippingAddress is stored in orders.shipping_address.
type ShippingAddress struct {
	Version       int     `json:"version" validate:"required"`
	RecipientName string  `json:"recipient_name" validate:"required,max=200"`
	Line1         string  `json:"line1" validate:"required,max=200"`
	Line2         *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City          string  `json:"city" validate:"required,max=120"`
	Region        string  `json:"region,omitempty" validate:"omitempty,max=120"`
	PostalCode    string  `json:"postal_code" validate:"required,max=20"`
	Country       string  `json:"country" validate:"required,iso3166_1_alpha2"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,max=40"`
}

// Normalize trims whitespace and upper-cases the country code.
func (a ShippingAddress) Normalize() ShippingAddress {
	a.RecipientName = strings.TrimSpace(a.RecipientName)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.Region = strings.TrimSpace(a.Region)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Version == 0 {
		a.Version = ShippingAddressVersion
	}
	return a
}

func (a ShippingAddress) Validate() error {
	if a.Version != ShippingAddressVersion {
		return &UnsupportedVersionError{Kind: "shipping_address", Version: a.Version}
	}
	if err := blobValidator.Struct(a); err != nil {
		return fmt.Errorf("shipping_address: %w", err)
	}
	return nil
}

// DecodeShippingAddress parses and validates a stored shipping_address blob.
func DecodeShippingAddress(raw []byte) (ShippingAddress, error) {
	version, err := probeVersion(raw)
	if err != nil {
		return ShippingAddress{}, err
	}
	if version != ShippingAddressVersion {
		return ShippingAddress{}, &UnsupportedVersionError{Kind: "shipping_address", Version: version}
	}
	var addr ShippingAddress
	if err := json.Unmarshal(raw, &addr); err != nil {
		return ShippingAddress{}, fmt.Errorf("decode shipping_address: %w", err)
	}
	if err := addr.Validate(); err != nil {
		return ShippingAddress{}, err
	}
	return addr, nil
}
