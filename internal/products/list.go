package products

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	Category string     `json:"category,omitempty"`
	SellerID *uuid.UUID `json:"seller_id,omitempty"`
	Query    string     `json:"q,omitempty"`
}

// ListInput captures the inputs needed to paginate and filter products.
type ListInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}
