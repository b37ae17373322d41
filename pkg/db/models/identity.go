package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IdentityMetadata is the signup payload stored alongside an identity.
type IdentityMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	Role      string `json:"role,omitempty"`
	StoreName string `json:"store_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Identity is the authenticated principal. Every other row is owned through it.
type Identity struct {
	ID           uuid.UUID                            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string                               `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string                               `gorm:"column:password_hash;not null" json:"-"`
	Metadata     datatypes.JSONType[IdentityMetadata] `gorm:"column:raw_user_meta_data;type:jsonb;not null" json:"metadata"`
	LastSignInAt *time.Time                           `gorm:"column:last_sign_in_at" json:"last_sign_in_at,omitempty"`
	CreatedAt    time.Time                            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Identity) TableName() string { return "identities" }

func (i *Identity) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
