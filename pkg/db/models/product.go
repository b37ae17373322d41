package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a listing owned by a seller profile.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID    uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index:idx_products_seller_id" json:"seller_id"`
	Title       string          `gorm:"column:title;not null" json:"title"`
	Description string          `gorm:"column:description;not null;default:''" json:"description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock       int             `gorm:"column:stock;not null;default:0" json:"stock"`
	Category    string          `gorm:"column:category;not null" json:"category"`
	ImageURL    *string         `gorm:"column:image_url" json:"image_url,omitempty"`
	VideoURL    *string         `gorm:"column:video_url" json:"video_url,omitempty"`
	IsActive    bool            `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
