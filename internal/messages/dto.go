package messages

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

const MaxContentLength = 5000

type MessageDTO struct {
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

func FromModel(m models.Message) MessageDTO {
	return MessageDTO{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		ProductID:   m.ProductID,
		ParentID:    m.ParentID,
		Kind:        m.Kind(),
		Content:     m.Content,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// SendMessageInput sends a direct message, or a product inquiry when
// ProductID is set. ParentID threads the message under an earlier one of the
// same conversation.
type SendMessageInput struct {
	RecipientID uuid.UUID  `json:"recipient_id" validate:"required"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Content     string     `json:"content" validate:"required,max=5000"`
}

type InboxInput struct {
	UnreadOnly bool
	Pagination pagination.Params
}

type UnreadCountDTO struct {
	Unread int64 `json:"unread"`
}
