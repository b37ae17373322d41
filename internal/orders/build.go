package orders

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

const (
	ConstraintQuantity   = "orders_quantity_check"
	ConstraintTotalPrice = "orders_total_price_check"
)

// Build snapshots product price into a pending order for buyerID. Stock is
// not consulted.
func Build(buyerID uuid.UUID, product models.Product, quantity int, address types.ShippingAddress, notes *string) (models.Order, error) {
	if quantity <= 0 || quantity > money.MaxQuantity {
		return models.Order{}, db.Violation(db.ConstraintDetails{
			Constraint: ConstraintQuantity,
			Table:      "orders",
			Field:      "quantity",
			Value:      fmt.Sprint(quantity),
		})
	}
	address = address.Normalize()
	if err := address.Validate(); err != nil {
		return models.Order{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address").
			WithDetails(map[string]any{"field": "shipping_address"})
	}

	unit := money.Normalize(product.Price)
	order := models.Order{
		BuyerID:         buyerID,
		SellerID:        product.SellerID,
		ProductID:       product.ID,
		Quantity:        quantity,
		UnitPrice:       unit,
		TotalPrice:      money.Total(unit, quantity),
		Status:          enums.OrderStatusPending,
		ShippingAddress: datatypes.NewJSONType(address),
		Notes:           notes,
	}
	if err := CheckTotal(order.UnitPrice, order.Quantity, order.TotalPrice); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// CheckTotal enforces total == unit * quantity at two decimal places.
// The total must also fit the column.
func CheckTotal(unit decimal.Decimal, quantity int, total decimal.Decimal) error {
	if money.Equal(money.Total(unit, quantity), total) && money.InRange(total) {
		return nil
	}
	return db.Violation(db.ConstraintDetails{
		Constraint: ConstraintTotalPrice,
		Table:      "orders",
		Field:      "total_price",
		Value:      money.String(total),
	})
}
