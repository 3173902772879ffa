package models

import (
	"encoding/json"
	"time"

	"github.com/olegbarsky/tradeport-backend/pkg/enums"
)

// OutboxDeadLetter keeps outbox rows the publisher gave up on, with
// the error that made them undeliverable.
type OutboxDeadLetter struct {
	ID           uint                  `gorm:"column:id;primaryKey"`
	EventID      string                `gorm:"column:event_id;index"`
	EventType    enums.OutboxEventType `gorm:"column:event_type;not null"`
	Payload      json.RawMessage       `gorm:"column:payload;not null"`
	ErrorMessage *string               `gorm:"column:error_message"`
	FailedAt     time.Time             `gorm:"column:failed_at;autoCreateTime"`
}
