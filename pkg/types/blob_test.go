package types

import (
	"errors"
	"testing"
)

func TestPaymentInfoValidateVariants(t *testing.T) {
	cases := []struct {
		name    string
		info    PaymentInfo
		wantErr bool
	}{
		{
			name: "paypal",
			info: PaymentInfo{Version: 1, Method: PaymentMethodPayPal, PayPal: &PayPalDetails{Email: "shop@example.com"}},
		},
		{
			name: "bank transfer",
			info: PaymentInfo{Version: 1, Method: PaymentMethodBankTransfer, BankTransfer: &BankTransferDetails{
				AccountHolder: "Jo", BankName: "First", AccountLast4: "1234",
			}},
		},
		{
			name:    "method without details",
			info:    PaymentInfo{Version: 1, Method: PaymentMethodCardOnFile, PayPal: &PayPalDetails{Email: "shop@example.com"}},
			wantErr: true,
		},
		{
			name: "two variants",
			info: PaymentInfo{
				Version: 1, Method: PaymentMethodPayPal,
				PayPal:     &PayPalDetails{Email: "shop@example.com"},
				CardOnFile: &CardOnFileDetails{Brand: "visa", Last4: "4242", ExpMonth: 1, ExpYear: 2030},
			},
			wantErr: true,
		},
		{
			name:    "bad email",
			info:    PaymentInfo{Version: 1, Method: PaymentMethodPayPal, PayPal: &PayPalDetails{Email: "nope"}},
			wantErr: true,
		},
		{
			name:    "unknown method",
			info:    PaymentInfo{Version: 1, Method: "crypto"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.info.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDecodePaymentInfoRejectsUnknownVersion(t *testing.T) {
	_, err := DecodePaymentInfo([]byte(`{"version":7,"method":"paypal","paypal":{"email":"a@b.co"}}`))
	var versionErr *UnsupportedVersionError
	if !errors.As(err, &versionErr) || versionErr.Version != 7 {
		t.Fatalf("expected unsupported version error, got %v", err)
	}

	if _, err := DecodePaymentInfo([]byte(`{"method":"paypal"}`)); err == nil {
		t.Fatalf("expected unversioned blob to be rejected")
	}
}

func TestDecodeShippingAddress(t *testing.T) {
	addr, err := DecodeShippingAddress([]byte(`{"version":1,"recipient_name":"Ada","line1":"1 Main St","city":"Austin","postal_code":"73301","country":"US"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.City != "Austin" {
		t.Fatalf("unexpected city %q", addr.City)
	}

	if _, err := DecodeShippingAddress([]byte(`{"version":1,"line1":"1 Main St"}`)); err == nil {
		t.Fatalf("expected missing fields to fail")
	}
}

func TestShippingAddressNormalize(t *testing.T) {
	addr := ShippingAddress{RecipientName: " Ada ", Line1: "1 Main", City: "Austin", PostalCode: "73301", Country: "us"}.Normalize()
	if addr.Version != ShippingAddressVersion || addr.Country != "US" || addr.RecipientName != "Ada" {
		t.Fatalf("unexpected normalized address %+v", addr)
	}
	if err := addr.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
