package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Message is directed from one profile to another, optionally about a product
// and optionally threaded under a parent message.
type Message struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SenderID    uuid.UUID  `gorm:"column:sender_id;type:uuid;not null;index:idx_messages_sender_id" json:"sender_id"`
	RecipientID uuid.UUID  `gorm:"column:recipient_id;type:uuid;not null;index:idx_messages_recipient_id" json:"recipient_id"`
	ProductID   *uuid.UUID `gorm:"column:product_id;type:uuid" json:"product_id,omitempty"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid" json:"parent_id,omitempty"`
	Content     string     `gorm:"column:content;not null" json:"content"`
	IsRead      bool       `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string { return "messages" }

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

func (m Message) Kind() enums.MessageKind {
	if m.ProductID != nil {
		return enums.MessageKindProductInquiry
	}
	return enums.MessageKindDirect
}
