package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// OutboxEvent is one row of outbox_events. Rows are written next to the state
// change they announce and are only ever touched again by the relay.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	AggregateType enums.OutboxAggregateType `gorm:"type:aggregate_type_enum;not null"`
	AggregateID   uuid.UUID                 `gorm:"type:uuid;not null"`
	EventType     enums.OutboxEventType     `gorm:"type:event_type_enum;not null"`
	// Payload holds a serialized outbox.PayloadEnvelope.
	Payload   json.RawMessage `gorm:"type:jsonb;not null"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`

	PublishedAt  *time.Time
	AttemptCount int `gorm:"not null;default:0"`
	LastError    *string
}

func (OutboxEvent) TableName() string { return "outbox_events" }

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// Aggregate is the "type:id" key rows of one aggregate are ordered by.
func (e OutboxEvent) Aggregate() string {
	return string(e.AggregateType) + ":" + e.AggregateID.String()
}
