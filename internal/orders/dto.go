package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

// OrderDTO is the API shape of an order. Money is rendered with two decimals.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	BuyerID         uuid.UUID             `json:"buyer_id"`
	SellerID        uuid.UUID             `json:"seller_id"`
	ProductID       uuid.UUID             `json:"product_id"`
	Quantity        int                   `json:"quantity"`
	UnitPrice       string                `json:"unit_price"`
	TotalPrice      string                `json:"total_price"`
	Status          enums.OrderStatus     `json:"status"`
	NextStatuses    []enums.OrderStatus   `json:"next_statuses"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	Notes           *string               `json:"notes,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func FromModel(o models.Order) OrderDTO {
	return OrderDTO{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		ProductID:       o.ProductID,
		Quantity:        o.Quantity,
		UnitPrice:       money.String(o.UnitPrice),
		TotalPrice:      money.String(o.TotalPrice),
		Status:          o.Status,
		NextStatuses:    o.Status.NextStatuses(),
		ShippingAddress: o.ShippingAddress.Data(),
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// CreateOrderInput places a single-product order. UnitPrice and TotalPrice are
// optional echoes of what the client displayed; when present they must match
// the product's current price and unit * quantity.
type CreateOrderInput struct {
	ProductID       uuid.UUID             `json:"product_id" validate:"required"`
	Quantity        int                   `json:"quantity" validate:"required,max=10000"`
	UnitPrice       *decimal.Decimal      `json:"unit_price,omitempty"`
	TotalPrice      *decimal.Decimal      `json:"total_price,omitempty"`
	ShippingAddress types.ShippingAddress `json:"shipping_address" validate:"required"`
	Notes           *string               `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type UpdateStatusInput struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

// Party selects which side of the order the caller is listing as. The zero
// value lists both sides.
type Party = enums.OrderParty

const (
	PartyAny    = enums.OrderPartyAny
	PartyBuyer  = enums.OrderPartyBuyer
	PartySeller = enums.OrderPartySeller
)

type ListInput struct {
	As         Party
	Status     *enums.OrderStatus
	Pagination pagination.Params
}
