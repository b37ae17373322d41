package outbox

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// last_error is capped so a chatty broker cannot bloat the table.
const lastErrorLimit = 1024

var errNoTx = errors.New("transaction required")

// Repository reads and settles outbox rows. Every write takes the caller's
// transaction; only Pending runs on its own connection.
type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) Append(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Create(&event).Error
}

// ClaimBatch returns up to limit unpublished rows, oldest first. On postgres
// the rows stay locked until tx ends and other relays skip them.
func (r *Repository) ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	q := db.ForUpdateSkipLocked(pending(tx, maxAttempts)).Order("created_at, id").Limit(limit)
	var rows []models.OutboxEvent
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) MarkPublished(tx *gorm.DB, id uuid.UUID) error {
	return settle(tx, id, map[string]any{"published_at": db.Now()})
}

// RecordFailure counts one more attempt and keeps the reason.
func (r *Repository) RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error {
	return settle(tx, id, map[string]any{
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    clip(cause),
	})
}

// Park exhausts the row's attempts so ClaimBatch never returns it again.
func (r *Repository) Park(tx *gorm.DB, id uuid.UUID, cause error, attempts int) error {
	return settle(tx, id, map[string]any{
		"attempt_count": attempts,
		"last_error":    clip(cause),
	})
}

func (r *Repository) Pending(maxAttempts int) (int64, error) {
	var n int64
	err := pending(r.db.Model(&models.OutboxEvent{}), maxAttempts).Count(&n).Error
	return n, err
}

func pending(q *gorm.DB, maxAttempts int) *gorm.DB {
	return q.Where("published_at IS NULL").Where("attempt_count < ?", maxAttempts)
}

func settle(tx *gorm.DB, id uuid.UUID, cols map[string]any) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(cols).Error
}

func clip(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > lastErrorLimit {
		msg = msg[:lastErrorLimit]
	}
	return msg
}
