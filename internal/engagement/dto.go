package engagement

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

const MaxCommentLength = 2000

// LikeSummary is the like state of one product as seen by the caller.
type LikeSummary struct {
	ProductID uuid.UUID `json:"product_id"`
	Count     int64     `json:"count"`
	LikedByMe bool      `json:"liked_by_me"`
}

type CommentDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func CommentFromModel(c models.ProductComment) CommentDTO {
	return CommentDTO{
		ID:        c.ID,
		UserID:    c.UserID,
		ProductID: c.ProductID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

type CreateCommentInput struct {
	Content string `json:"content" validate:"required,max=2000"`
}
