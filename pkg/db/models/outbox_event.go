package models

import (
	"encoding/json"
	"time"

	"github.com/olegbarsky/tradeport-backend/pkg/enums"
)

// OutboxEvent is a domain event recorded in the same transaction as
// the change it describes. A separate publisher drains pending rows
// to Pub/Sub and marks them published.
type OutboxEvent struct {
	ID            uint                      `gorm:"column:id;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uint                      `gorm:"column:aggregate_id;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;not null"`
	Status        enums.OutboxStatus        `gorm:"column:status;not null;default:pending;index"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
}
