package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OutboxQueued    = "queued"
	OutboxRunning   = "running"
	OutboxSucceeded = "succeeded"
	OutboxFailed    = "failed"
)

// EventAnalyticsRollup carries a loyalty.AnalyticsDelta payload.
const EventAnalyticsRollup = "analytics_rollup"

// OutboxEvent is written in the same transaction as the change that produced
// it and drained asynchronously by the outbox worker.
type OutboxEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventType   string         `gorm:"column:event_type;not null;index" json:"event_type"`
	AggregateID uuid.UUID      `gorm:"type:uuid;column:aggregate_id;not null;index" json:"aggregate_id"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Attempts    int            `gorm:"column:attempts;not null" json:"attempts"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	AvailableAt time.Time      `gorm:"column:available_at;not null;index" json:"available_at"`
	LockedAt    *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	ProcessedAt *time.Time     `gorm:"column:processed_at" json:"processed_at,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (OutboxEvent) TableName() string { return "loyalty_outbox" }

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = OutboxQueued
	}
	if e.AvailableAt.IsZero() {
		e.AvailableAt = time.Now().UTC()
	}
	return nil
}
