package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
	"gorm.io/gorm"
)

// Outbox publish statuses for WorkOrderEventRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// WorkOrderEventRecord is the transactional outbox row. It is written in the same
// transaction as the mutation it describes and published after commit by the dispatcher.
type WorkOrderEventRecord struct {
	ID               int                `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	WorkOrderId      int                `gorm:"not null;index" json:"work_order_id"`
	EventType        WorkOrderEventType `gorm:"size:40;not null" json:"event_type"`
	Payload          []byte             `gorm:"type:blob" json:"payload"`
	CorrelationId    string             `gorm:"size:64;index" json:"correlation_id"`
	PublishStatus    string             `gorm:"size:20;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishAttempts  int                `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time         `gorm:"index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time         `json:"locked_at"`
	LockedBy         *string            `gorm:"size:100" json:"locked_by"`
	LastPublishError *string            `gorm:"type:text" json:"last_publish_error"`
	PublishedAt      *time.Time         `json:"published_at"`
	PubSubMessageId  *string            `gorm:"size:255" json:"pubsub_message_id"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

// recordWorkOrderEvent must be called with the caller's transaction.
func recordWorkOrderEvent(tx *gorm.DB, workOrderId int, eventType WorkOrderEventType, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := WorkOrderEventRecord{
		WorkOrderId:   workOrderId,
		EventType:     eventType,
		Payload:       data,
		CorrelationId: utils.CorrelationIdOrNew(tx.Statement.Context),
		PublishStatus: OutboxPublishStatusPending,
	}
	return tx.Create(&record).Error
}

func ConvertToEventMessage(record WorkOrderEventRecord) config.WorkOrderEventMessage {
	return config.WorkOrderEventMessage{
		ID:            record.ID,
		WorkOrderId:   record.WorkOrderId,
		EventType:     string(record.EventType),
		Payload:       json.RawMessage(record.Payload),
		CorrelationId: record.CorrelationId,
		OccurredAt:    record.CreatedAt,
	}
}

// ReplayWorkOrderEvent puts a FAILED or DEAD event back in the dispatch queue.
func ReplayWorkOrderEvent(ctx context.Context, id int) (*WorkOrderEventRecord, error) {
	if _, err := authorizeContext(ctx, ActionReplayEvent); err != nil {
		return nil, err
	}
	db := config.GetDB().WithContext(ctx)
	var record WorkOrderEventRecord
	if err := db.First(&record, id).Error; err != nil {
		return nil, utils.TranslateNotFound(err, "event", id)
	}
	if record.PublishStatus != OutboxPublishStatusFailed && record.PublishStatus != OutboxPublishStatusDead {
		return nil, utils.NewConflict("event %d is %s and cannot be replayed", id, record.PublishStatus)
	}
	now := time.Now().UTC()
	res := db.Model(&WorkOrderEventRecord{}).
		Where("id = ? AND publish_status = ?", id, record.PublishStatus).
		Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusFailed,
			"publish_attempts":   0,
			"next_attempt_at":    &now,
			"locked_at":          nil,
			"locked_by":          nil,
			"last_publish_error": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, utils.NewConflict("event %d changed while being replayed", id)
	}
	if err := db.First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
