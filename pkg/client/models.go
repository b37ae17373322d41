package client

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

// Page is one cursor page of results.
type Page[T any] = pagination.Page[T]

type PageParams struct {
	Limit  int
	Cursor string
}

// Profile carries the caller-visible profile. Seller is set only when Role
// is seller.
type Profile struct {
	ID        uuid.UUID      `json:"id"`
	FullName  string         `json:"full_name"`
	Role      enums.UserRole `json:"role"`
	Email     string         `json:"email"`
	Phone     *string        `json:"phone,omitempty"`
	Bio       *string        `json:"bio,omitempty"`
	AvatarURL *string        `json:"avatar_url,omitempty"`
	Wishlist  []uuid.UUID    `json:"wishlist"`
	Seller    *Seller        `json:"seller,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Seller struct {
	ID          uuid.UUID          `json:"id"`
	ProfileID   uuid.UUID          `json:"profile_id"`
	StoreName   string             `json:"store_name"`
	Description *string            `json:"description,omitempty"`
	Address     *string            `json:"address,omitempty"`
	PaymentInfo *types.PaymentInfo `json:"payment_info,omitempty"`
	Verified    bool               `json:"verified"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type Product struct {
	ID          uuid.UUID       `json:"id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    *string         `json:"image_url,omitempty"`
	VideoURL    *string         `json:"video_url,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CartItem struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Product   *Product        `json:"product,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Cart struct {
	Items    []CartItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID              uuid.UUID             `json:"id"`
	BuyerID         uuid.UUID             `json:"buyer_id"`
	SellerID        uuid.UUID             `json:"seller_id"`
	ProductID       uuid.UUID             `json:"product_id"`
	Quantity        int                   `json:"quantity"`
	UnitPrice       decimal.Decimal       `json:"unit_price"`
	TotalPrice      decimal.Decimal       `json:"total_price"`
	Status          enums.OrderStatus     `json:"status"`
	NextStatuses    []enums.OrderStatus   `json:"next_statuses"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	Notes           *string               `json:"notes,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

type SellerTotals struct {
	SellerID  uuid.UUID       `json:"seller_id"`
	OrderIDs  []uuid.UUID     `json:"order_ids"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CheckoutResult struct {
	Orders  []Order         `json:"orders"`
	Sellers []SellerTotals  `json:"sellers"`
	Total   decimal.Decimal `json:"total"`
}

type Message struct {
	ID          uuid.UUID         `json:"id"`
	SenderID    uuid.UUID         `json:"sender_id"`
	RecipientID uuid.UUID         `json:"recipient_id"`
	ProductID   *uuid.UUID        `json:"product_id,omitempty"`
	ParentID    *uuid.UUID        `json:"parent_id,omitempty"`
	Kind        enums.MessageKind `json:"kind"`
	Content     string            `json:"content"`
	IsRead      bool              `json:"is_read"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type LikeSummary struct {
	ProductID uuid.UUID `json:"product_id"`
	Count     int64     `json:"count"`
	LikedByMe bool      `json:"liked_by_me"`
}

type Comment struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type WishlistItem struct {
	ID        uuid.UUID `json:"id"`
	Product   Product   `json:"product"`
	CreatedAt time.Time `json:"created_at"`
}

type WishlistToggle struct {
	ProductID  uuid.UUID   `json:"product_id"`
	Wishlisted bool        `json:"wishlisted"`
	Wishlist   []uuid.UUID `json:"wishlist"`
}

type Avatar struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	AvatarURL string `json:"avatar_url"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Tokens
	Profile Profile `json:"profile"`
	Seller  *Seller `json:"seller,omitempty"`
}

type RegisterInput struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FullName  string  `json:"full_name,omitempty"`
	Role      string  `json:"role,omitempty"`
	StoreName string  `json:"store_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

type UpdateProfileInput struct {
	FullName  *string `json:"full_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type BecomeSellerInput struct {
	StoreName   string  `json:"store_name"`
	Description *string `json:"description,omitempty"`
	Address     *string `json:"address,omitempty"`
}

type UpdateSellerInput struct {
	StoreName   *string            `json:"store_name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Address     *string            `json:"address,omitempty"`
	PaymentInfo *types.PaymentInfo `json:"payment_info,omitempty"`
}

type ProductFilters struct {
	Category string
	SellerID *uuid.UUID
	Query    string
}

type CreateProductInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    *string         `json:"image_url,omitempty"`
	VideoURL    *string         `json:"video_url,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

type UpdateProductInput struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	Category    *string          `json:"category,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
	VideoURL    *string          `json:"video_url,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

type CreateOrderInput struct {
	ProductID       uuid.UUID             `json:"product_id"`
	Quantity        int                   `json:"quantity"`
	UnitPrice       *decimal.Decimal      `json:"unit_price,omitempty"`
	TotalPrice      *decimal.Decimal      `json:"total_price,omitempty"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	Notes           *string               `json:"notes,omitempty"`
}

// OrderFilters narrows ListOrders. As is "buyer", "seller" or empty for both.
type OrderFilters struct {
	As     string
	Status *enums.OrderStatus
}

type CheckoutInput struct {
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	Notes           *string               `json:"notes,omitempty"`
}

type SendMessageInput struct {
	RecipientID uuid.UUID  `json:"recipient_id"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Content     string     `json:"content"`
}
