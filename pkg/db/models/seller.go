package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

// Seller is the optional store extension of a seller profile.
type Seller struct {
	ID          uuid.UUID                              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProfileID   uuid.UUID                              `gorm:"column:profile_id;type:uuid;not null;uniqueIndex:sellers_profile_id_key" json:"profile_id"`
	StoreName   string                                 `gorm:"column:store_name;not null" json:"store_name"`
	Description *string                                `gorm:"column:description" json:"description,omitempty"`
	Address     *string                                `gorm:"column:address" json:"address,omitempty"`
	PaymentInfo *datatypes.JSONType[types.PaymentInfo] `gorm:"column:payment_info;type:jsonb" json:"payment_info,omitempty"`
	Verified    bool                                   `gorm:"column:verified;not null;default:false" json:"verified"`
	CreatedAt   time.Time                              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time                              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Seller) TableName() string { return "sellers" }

func (s *Seller) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// AfterFind rejects stored payment blobs that no longer match a known schema version.
func (s *Seller) AfterFind(tx *gorm.DB) error {
	if s.PaymentInfo == nil {
		return nil
	}
	return s.PaymentInfo.Data().Validate()
}
