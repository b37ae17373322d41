package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Profile extends an Identity one-to-one and shares its primary key.
type Profile struct {
	ID        uuid.UUID                      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FullName  string                         `gorm:"column:full_name;not null" json:"full_name"`
	Role      enums.UserRole                 `gorm:"column:role;type:user_role;not null;default:buyer" json:"role"`
	Email     string                         `gorm:"column:email;not null" json:"email"`
	Phone     *string                        `gorm:"column:phone" json:"phone,omitempty"`
	Bio       *string                        `gorm:"column:bio" json:"bio,omitempty"`
	AvatarURL *string                        `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	Wishlist  datatypes.JSONSlice[uuid.UUID] `gorm:"column:wishlist;type:jsonb;not null;default:'[]'" json:"wishlist"`
	CreatedAt time.Time                      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time                      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// HasWishlisted reports whether productID is part of the denormalized wishlist array.
func (p Profile) HasWishlisted(productID uuid.UUID) bool {
	for _, id := range p.Wishlist {
		if id == productID {
			return true
		}
	}
	return false
}
