package sellers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

// SellerDTO is the store extension of a seller profile. PaymentInfo is only
// populated for the owner.
type SellerDTO struct {
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

// FromModel maps a seller row. owner controls whether payout data is exposed.
func FromModel(m models.Seller, owner bool) SellerDTO {
	dto := SellerDTO{
		ID:          m.ID,
		ProfileID:   m.ProfileID,
		StoreName:   m.StoreName,
		Description: m.Description,
		Address:     m.Address,
		Verified:    m.Verified,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if owner && m.PaymentInfo != nil {
		info := m.PaymentInfo.Data()
		dto.PaymentInfo = &info
	}
	return dto
}

// UpdateSellerInput lists the client-writable store settings. verified is not one of them.
type UpdateSellerInput struct {
	StoreName   *string            `json:"store_name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string            `json:"description,omitempty" validate:"omitempty,max=2000"`
	Address     *string            `json:"address,omitempty" validate:"omitempty,max=500"`
	PaymentInfo *types.PaymentInfo `json:"payment_info,omitempty"`
}

// ListParams filters the public seller directory.
type ListParams struct {
	Query    string
	Verified *bool
	Limit    int
	Cursor   string
}
