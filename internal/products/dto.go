package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
)

// ProductDTO is the persisted product. Price is rendered with two decimals.
type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	SellerID    uuid.UUID `json:"seller_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	ImageURL    *string   `json:"image_url,omitempty"`
	VideoURL    *string   `json:"video_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FromModel(p models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Title:       p.Title,
		Description: p.Description,
		Price:       money.String(p.Price),
		Stock:       p.Stock,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		VideoURL:    p.VideoURL,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// CreateProductInput lists the writable fields of a new product. The seller is
// always the caller.
type CreateProductInput struct {
	Title       string          `json:"title" validate:"required,min=1,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price" validate:"decimal_places=2"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category" validate:"required,max=100"`
	ImageURL    *string         `json:"image_url,omitempty" validate:"omitempty,url,max=2048"`
	VideoURL    *string         `json:"video_url,omitempty" validate:"omitempty,url,max=2048"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

// UpdateProductInput is a partial update; nil fields are left untouched.
type UpdateProductInput struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,decimal_places=2"`
	Stock       *int             `json:"stock,omitempty"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	ImageURL    *string          `json:"image_url,omitempty" validate:"omitempty,url,max=2048"`
	VideoURL    *string          `json:"video_url,omitempty" validate:"omitempty,url,max=2048"`
	IsActive    *bool            `json:"is_active,omitempty"`
}
