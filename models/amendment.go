package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/shopspring/decimal"
)

// WorkOrderAmendment is extra material requested outside the BOM, drawn from a
// named warehouse.
type WorkOrderAmendment struct {
	ID          int             `gorm:"primary_key" json:"id"`
	WorkOrderId int             `gorm:"not null;index" json:"work_order_id"`
	ItemId      int             `gorm:"not null;index" json:"item_id"`
	WarehouseId int             `gorm:"not null" json:"warehouse_id"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedById int             `gorm:"not null" json:"created_by_id"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`

	TotalStock *decimal.Decimal `gorm:"-" json:"total_stock,omitempty"`
}

type NewAmendment struct {
	ItemId      int             `json:"item_id" binding:"required" validate:"required,gt=0"`
	WarehouseId int             `json:"warehouse_id" binding:"required" validate:"required,gt=0"`
	Quantity    decimal.Decimal `json:"quantity"`
	Notes       string          `json:"notes"`
}

func AddAmendment(ctx context.Context, workOrderId int, input *NewAmendment) (*WorkOrderAmendment, error) {
	actor, err := authorizeContext(ctx, ActionManageAmendment)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.RequirePositive("quantity", input.Quantity); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := utils.ValidateResourceId[Item](ctx, db, "item", input.ItemId); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Warehouse](ctx, db, "warehouse", input.WarehouseId); err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	wo, err := utils.FetchModelForUpdate[WorkOrder](tx, workOrderId)
	if err != nil {
		tx.Rollback()
		return nil, utils.TranslateNotFound(err, "work order", workOrderId)
	}
	amendment := WorkOrderAmendment{
		WorkOrderId: wo.ID,
		ItemId:      input.ItemId,
		WarehouseId: input.WarehouseId,
		Quantity:    input.Quantity,
		Notes:       strings.TrimSpace(input.Notes),
		CreatedById: actor.Id,
	}
	if err := tx.Create(&amendment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recordWorkOrderEvent(tx, wo.ID, WorkOrderEventAmendmentAdded, amendment); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &amendment, nil
}

// RemoveAmendment hard-deletes an amendment. An amendment with a posted material
// issue must be reversed first; its purchase request markers go with it.
func RemoveAmendment(ctx context.Context, id int) (*WorkOrderAmendment, error) {
	if _, err := authorizeContext(ctx, ActionManageAmendment); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	var amendment WorkOrderAmendment
	if err := tx.First(&amendment, id).Error; err != nil {
		tx.Rollback()
		return nil, utils.TranslateNotFound(err, "amendment", id)
	}
	wo, err := utils.FetchModelForUpdate[WorkOrder](tx, amendment.WorkOrderId)
	if err != nil {
		tx.Rollback()
		return nil, utils.TranslateNotFound(err, "work order", amendment.WorkOrderId)
	}
	lineKey := AmendmentLineKey(amendment.ID)
	issued, err := isResolved(tx, wo.ID, lineKey, DispositionTypeMaterialIssue)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if issued {
		tx.Rollback()
		return nil, utils.NewConflict("amendment %d has been issued; reverse the material issue first", amendment.ID)
	}
	if err := tx.Where("work_order_id = ? AND line_key = ?", wo.ID, lineKey).Delete(&DispositionResolution{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&amendment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recordWorkOrderEvent(tx, wo.ID, WorkOrderEventAmendmentRemoved, amendment); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &amendment, nil
}

// ListAmendments returns the amendments of a work order with total_stock filled in.
func ListAmendments(ctx context.Context, workOrderId int) ([]*WorkOrderAmendment, error) {
	db := config.GetDB()
	if err := utils.ValidateResourceId[WorkOrder](ctx, db, "work order", workOrderId); err != nil {
		return nil, err
	}
	var results []*WorkOrderAmendment
	if err := db.WithContext(ctx).Where("work_order_id = ?", workOrderId).Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	itemIds := make([]int, 0, len(results))
	for _, a := range results {
		itemIds = append(itemIds, a.ItemId)
	}
	snapshot, err := loadStockSnapshot(db.WithContext(ctx), itemIds)
	if err != nil {
		return nil, err
	}
	for _, a := range results {
		total := TotalStock(snapshot[a.ItemId])
		a.TotalStock = &total
	}
	return results, nil
}
