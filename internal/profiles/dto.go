package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/internal/sellers"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// ProfileDTO is a profile with its role variant: Seller is present exactly
// when Role is seller.
type ProfileDTO struct {
	ID        uuid.UUID          `json:"id"`
	FullName  string             `json:"full_name"`
	Role      enums.UserRole     `json:"role"`
	Email     string             `json:"email"`
	Phone     *string            `json:"phone,omitempty"`
	Bio       *string            `json:"bio,omitempty"`
	AvatarURL *string            `json:"avatar_url,omitempty"`
	Wishlist  []uuid.UUID        `json:"wishlist"`
	Seller    *sellers.SellerDTO `json:"seller,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// FromModel builds the DTO. seller is dropped for buyer profiles.
func FromModel(p models.Profile, seller *models.Seller, self bool) ProfileDTO {
	dto := ProfileDTO{
		ID:        p.ID,
		FullName:  p.FullName,
		Role:      p.Role,
		Email:     p.Email,
		Phone:     p.Phone,
		Bio:       p.Bio,
		AvatarURL: p.AvatarURL,
		Wishlist:  []uuid.UUID(p.Wishlist),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if dto.Wishlist == nil {
		dto.Wishlist = []uuid.UUID{}
	}
	if p.Role == enums.UserRoleSeller && seller != nil {
		s := sellers.FromModel(*seller, self)
		dto.Seller = &s
	}
	return dto
}

// UpdateProfileInput lists the client-writable profile fields. Role changes go
// through BecomeSeller and BackToBuyer.
type UpdateProfileInput struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url,max=2048"`
}

type BecomeSellerInput struct {
	StoreName   string  `json:"store_name" validate:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
}
