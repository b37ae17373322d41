package types

import (
	"encoding/json"
	"fmt"
)

const PaymentInfoVersion = 1

// PaymentMethod tags the variant carried by PaymentInfo.
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodCardOnFile   PaymentMethod = "card_on_file"
)

// PaymentInfo is the seller payout configuration stored in sellers.payment_info.
// Exactly one variant matching Method is set.
type PaymentInfo struct {
	Version      int                  `json:"version" validate:"required"`
	Method       PaymentMethod        `json:"method" validate:"required,oneof=bank_transfer paypal card_on_file"`
	BankTransfer *BankTransferDetails `json:"bank_transfer,omitempty"`
	PayPal       *PayPalDetails       `json:"paypal,omitempty"`
	CardOnFile   *CardOnFileDetails   `json:"card_on_file,omitempty"`
}

type BankTransferDetails struct {
	AccountHolder string `json:"account_holder" validate:"required,max=200"`
	BankName      string `json:"bank_name" validate:"required,max=200"`
	AccountLast4  string `json:"account_last4" validate:"required,len=4,numeric"`
	RoutingNumber string `json:"routing_number,omitempty" validate:"omitempty,max=34"`
}

type PayPalDetails struct {
	Email string `json:"email" validate:"required,email"`
}

type CardOnFileDetails struct {
	Brand    string `json:"brand" validate:"required,max=40"`
	Last4    string `json:"last4" validate:"required,len=4,numeric"`
	ExpMonth int    `json:"exp_month" validate:"required,min=1,max=12"`
	ExpYear  int    `json:"exp_year" validate:"required,min=2000,max=2200"`
}

// Validate checks the field rules and that the variant matches Method.
func (p PaymentInfo) Validate() error {
	if p.Version != PaymentInfoVersion {
		return &UnsupportedVersionError{Kind: "payment_info", Version: p.Version}
	}
	if err := blobValidator.Struct(p); err != nil {
		return fmt.Errorf("payment_info: %w", err)
	}

	set := 0
	for _, present := range []bool{p.BankTransfer != nil, p.PayPal != nil, p.CardOnFile != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("payment_info: exactly one payment variant is required, got %d", set)
	}

	var matches bool
	switch p.Method {
	case PaymentMethodBankTransfer:
		matches = p.BankTransfer != nil
	case PaymentMethodPayPal:
		matches = p.PayPal != nil
	case PaymentMethodCardOnFile:
		matches = p.CardOnFile != nil
	}
	if !matches {
		return fmt.Errorf("payment_info: %s details missing", p.Method)
	}
	return nil
}

// DecodePaymentInfo parses and validates a stored payment_info blob.
func DecodePaymentInfo(raw []byte) (PaymentInfo, error) {
	version, err := probeVersion(raw)
	if err != nil {
		return PaymentInfo{}, err
	}
	if version != PaymentInfoVersion {
		return PaymentInfo{}, &UnsupportedVersionError{Kind: "payment_info", Version: version}
	}
	var info PaymentInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return PaymentInfo{}, fmt.Errorf("decode payment_info: %w", err)
	}
	if err := info.Validate(); err != nil {
		return PaymentInfo{}, err
	}
	return info, nil
}
