package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

// Order snapshots quantity and price of a product at creation time.
type Order struct {
	ID              uuid.UUID                                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BuyerID         uuid.UUID                                 `gorm:"column:buyer_id;type:uuid;not null;index:idx_orders_buyer_id" json:"buyer_id"`
	SellerID        uuid.UUID                                 `gorm:"column:seller_id;type:uuid;not null;index:idx_orders_seller_id" json:"seller_id"`
	ProductID       uuid.UUID                                 `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Quantity        int                                       `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice       decimal.Decimal                           `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	TotalPrice      decimal.Decimal                           `gorm:"column:total_price;type:numeric(12,2);not null" json:"total_price"`
	Status          enums.OrderStatus                         `gorm:"column:status;type:order_status;not null;default:pending" json:"status"`
	ShippingAddress datatypes.JSONType[types.ShippingAddress] `gorm:"column:shipping_address;type:jsonb;not null" json:"shipping_address"`
	Notes           *string                                   `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt       time.Time                                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                                 `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// AfterFind validates the stored shipping address against its schema version.
func (o *Order) AfterFind(tx *gorm.DB) error {
	return o.ShippingAddress.Data().Validate()
}
