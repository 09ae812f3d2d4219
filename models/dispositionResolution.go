package models

import (
	"fmt"
	"time"

	"github.com/mmdatafocus/workorder_backend/utils"
	"gorm.io/gorm"
)

// DispositionResolution marks a material line as already dispositioned. The unique
// index is what makes a second issue or request of the same line fail.
type DispositionResolution struct {
	ID              int             `gorm:"primary_key" json:"id"`
	WorkOrderId     int             `gorm:"not null;uniqueIndex:idx_disposition_line,priority:1" json:"work_order_id"`
	LineKey         string          `gorm:"size:64;not null;uniqueIndex:idx_disposition_line,priority:2" json:"line_key"`
	DispositionType DispositionType `gorm:"size:30;not null;uniqueIndex:idx_disposition_line,priority:3" json:"disposition_type"`
	DocumentId      int             `gorm:"not null;index" json:"document_id"`
	CreatedById     int             `gorm:"not null" json:"created_by_id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func BomLineKey(workOrderItemId int, bomItemId int) string {
	return fmt.Sprintf("bom:%d:%d", workOrderItemId, bomItemId)
}

func AmendmentLineKey(amendmentId int) string {
	return fmt.Sprintf("amendment:%d", amendmentId)
}

// countItemBomResolutions counts markers on any BOM line of one work order item.
func countItemBomResolutions(tx *gorm.DB, workOrderId int, workOrderItemId int) (int64, error) {
	var count int64
	err := tx.Model(&DispositionResolution{}).
		Where("work_order_id = ? AND line_key LIKE ?", workOrderId, fmt.Sprintf("bom:%d:%%", workOrderItemId)).
		Count(&count).Error
	return count, err
}

func listResolutions(tx *gorm.DB, workOrderId int) ([]DispositionResolution, error) {
	var markers []DispositionResolution
	err := tx.Where("work_order_id = ?", workOrderId).Order("id").Find(&markers).Error
	return markers, err
}

func isResolved(tx *gorm.DB, workOrderId int, lineKey string, dispositionType DispositionType) (bool, error) {
	var count int64
	err := tx.Model(&DispositionResolution{}).
		Where("work_order_id = ? AND line_key = ? AND disposition_type = ?", workOrderId, lineKey, dispositionType).
		Count(&count).Error
	return count > 0, err
}

// markResolved inserts the marker; a duplicate means another request won the race.
func markResolved(tx *gorm.DB, workOrderId int, lineKey string, dispositionType DispositionType, documentId int, actor utils.Actor) error {
	marker := DispositionResolution{
		WorkOrderId:     workOrderId,
		LineKey:         lineKey,
		DispositionType: dispositionType,
		DocumentId:      documentId,
		CreatedById:     actor.Id,
	}
	if err := tx.Create(&marker).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return utils.NewConflict("line %s already has a %s", lineKey, dispositionType)
		}
		return err
	}
	return nil
}
