package model

import "time"

// ProcessedEvent is one row of the webhook idempotency ledger
type ProcessedEvent struct {
	EventID     string    `gorm:"primaryKey;size:255" json:"event_id"`
	EventType   string    `gorm:"not null;size:100;index" json:"event_type"`
	ProcessedAt time.Time `gorm:"default:now()" json:"processed_at"`
}

// TableName specifies the table name for GORM
func (ProcessedEvent) TableName() string {
	return "processed_events"
}
