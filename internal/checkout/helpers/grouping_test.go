package helpers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

func TestGroupOrdersBySeller(t *testing.T) {
	t.Parallel()
	sellerA := uuid.New()
	sellerB := uuid.New()
	orders := []models.Order{
		{ID: uuid.New(), SellerID: sellerA},
		{ID: uuid.New(), SellerID: sellerB},
		{ID: uuid.New(), SellerID: sellerA},
	}

	sellers, grouped := GroupOrdersBySeller(orders)
	if len(sellers) != 2 || sellers[0] != sellerA || sellers[1] != sellerB {
		t.Fatalf("unexpected seller order %v", sellers)
	}
	if len(grouped[sellerA]) != 2 {
		t.Fatalf("expected 2 orders for sellerA, got %d", len(grouped[sellerA]))
	}
	if len(grouped[sellerB]) != 1 {
		t.Fatalf("expected 1 order for sellerB, got %d", len(grouped[sellerB]))
	}
}

func TestComputeTotalsBySeller(t *testing.T) {
	t.Parallel()
	seller := uuid.New()
	other := uuid.New()
	orders := []models.Order{
		{ID: uuid.New(), SellerID: seller, Quantity: 2, TotalPrice: decimal.RequireFromString("20.00")},
		{ID: uuid.New(), SellerID: other, Quantity: 1, TotalPrice: decimal.RequireFromString("0.10")},
		{ID: uuid.New(), SellerID: seller, Quantity: 3, TotalPrice: decimal.RequireFromString("0.60")},
	}

	totals := ComputeTotalsBySeller(orders)
	if len(totals) != 2 {
		t.Fatalf("expected 2 sellers, got %d", len(totals))
	}
	if totals[0].SellerID != seller || totals[0].Subtotal != "20.60" || totals[0].ItemCount != 5 || len(totals[0].OrderIDs) != 2 {
		t.Fatalf("unexpected totals %+v", totals[0])
	}
	if totals[1].Subtotal != "0.10" {
		t.Fatalf("unexpected subtotal %s", totals[1].Subtotal)
	}
	if got := GrandTotal(orders).StringFixed(2); got != "20.70" {
		t.Fatalf("expected grand total 20.70, got %s", got)
	}
}
