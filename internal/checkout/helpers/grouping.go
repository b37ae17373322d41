package helpers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
)

// GroupOrdersBySeller groups the provided orders by their seller, keeping
// first-seen seller order.
func GroupOrdersBySeller(orders []models.Order) ([]uuid.UUID, map[uuid.UUID][]models.Order) {
	grouped := make(map[uuid.UUID][]models.Order, len(orders))
	var sellers []uuid.UUID
	for _, order := range orders {
		if _, ok := grouped[order.SellerID]; !ok {
			sellers = append(sellers, order.SellerID)
		}
		grouped[order.SellerID] = append(grouped[order.SellerID], order)
	}
	return sellers, grouped
}

// SellerTotals captures the per-seller totals of one checkout.
type SellerTotals struct {
	SellerID  uuid.UUID   `json:"seller_id"`
	OrderIDs  []uuid.UUID `json:"order_ids"`
	ItemCount int         `json:"item_count"`
	Subtotal  string      `json:"subtotal"`
}

// ComputeTotalsBySeller sums order totals per seller.
func ComputeTotalsBySeller(orders []models.Order) []SellerTotals {
	sellers, grouped := GroupOrdersBySeller(orders)
	out := make([]SellerTotals, 0, len(sellers))
	for _, sellerID := range sellers {
		totals := SellerTotals{SellerID: sellerID}
		subtotal := decimal.Zero
		for _, order := range grouped[sellerID] {
			totals.OrderIDs = append(totals.OrderIDs, order.ID)
			totals.ItemCount += order.Quantity
			subtotal = subtotal.Add(order.TotalPrice)
		}
		totals.Subtotal = money.String(subtotal)
		out = append(out, totals)
	}
	return out
}

// GrandTotal sums every order total.
func GrandTotal(orders []models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, order := range orders {
		total = total.Add(order.TotalPrice)
	}
	return money.Normalize(total)
}
