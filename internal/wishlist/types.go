package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/internal/products"
)

// WishlistItemDTO wraps the product included in a wishlist row.
type WishlistItemDTO struct {
	ID        uuid.UUID           `json:"id"`
	Product   products.ProductDTO `json:"product"`
	CreatedAt time.Time           `json:"created_at"`
}

// WishlistIDsDTO is a lightweight projection containing only product IDs.
type WishlistIDsDTO struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// ToggleResult reports the state after a toggle, for both the entry table and
// the profile array.
type ToggleResult struct {
	ProductID  uuid.UUID   `json:"product_id"`
	Wishlisted bool        `json:"wishlisted"`
	Wishlist   []uuid.UUID `json:"wishlist"`
}

type StatusDTO struct {
	ProductID  uuid.UUID `json:"product_id"`
	Wishlisted bool      `json:"wishlisted"`
}
