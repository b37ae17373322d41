package messages

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *Repository) FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListInbox returns one page of messages visible through scope.
func (r *Repository) ListInbox(ctx context.Context, scope func(*gorm.DB) *gorm.DB, callerID uuid.UUID, input InboxInput, cursor *pagination.Cursor) ([]models.Message, error) {
	q := r.db.WithContext(ctx).Model(&models.Message{}).Scopes(scope)
	if input.UnreadOnly {
		q = q.Where("messages.recipient_id = ? AND messages.is_read = ?", callerID, false)
	}
	var rows []models.Message
	if err := pagination.Apply(q, "messages", cursor, input.Pagination.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListConversation returns one page of messages exchanged between a and b.
func (r *Repository) ListConversation(ctx context.Context, scope func(*gorm.DB) *gorm.DB, a, b uuid.UUID, params pagination.Params, cursor *pagination.Cursor) ([]models.Message, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Scopes(scope).
		Where("((messages.sender_id = ? AND messages.recipient_id = ?) OR (messages.sender_id = ? AND messages.recipient_id = ?))", a, b, b, a)
	var rows []models.Message
	if err := pagination.Apply(q, "messages", cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkRead flips is_read; no other column is touched.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Update("is_read", true).Error
}

func (r *Repository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}
