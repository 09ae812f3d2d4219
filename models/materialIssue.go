package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MaterialIssue struct {
	ID           int                 `gorm:"primary_key" json:"id"`
	IssueNumber  string              `gorm:"size:30;not null;uniqueIndex" json:"issue_number"`
	SequenceNo   int                 `gorm:"not null" json:"sequence_no"`
	WorkOrderId  int                 `gorm:"not null;index" json:"work_order_id"`
	Status       MaterialIssueStatus `gorm:"size:20;not null;index" json:"status"`
	IssuedById   int                 `gorm:"not null" json:"issued_by_id"`
	IssuedAt     time.Time           `gorm:"not null" json:"issued_at"`
	ReversedById *int                `json:"reversed_by_id"`
	ReversedAt   *time.Time          `json:"reversed_at"`
	Lines        []MaterialIssueLine `gorm:"foreignKey:MaterialIssueId" json:"lines"`
	CreatedAt    time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// MaterialIssueLine is the quantity of one selected line taken from one warehouse.
type MaterialIssueLine struct {
	ID              int             `gorm:"primary_key" json:"id"`
	MaterialIssueId int             `gorm:"not null;index" json:"material_issue_id"`
	LineKey         string          `gorm:"size:64;not null" json:"line_key"`
	SourceType      LineSourceType  `gorm:"size:20;not null" json:"source_type"`
	WorkOrderItemId *int            `json:"work_order_item_id"`
	BomItemId       *int            `json:"bom_item_id"`
	AmendmentId     *int            `gorm:"index" json:"amendment_id"`
	ItemId          int             `gorm:"not null;index" json:"item_id"`
	WarehouseId     int             `gorm:"not null" json:"warehouse_id"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

// GenerateMaterialIssue issues stock for each selected line independently. Each
// line re-checks live stock under row locks and either posts fully or fails on its
// own; failed lines leave no trace. The document is only kept when at least one
// line was issued.
func GenerateMaterialIssue(ctx context.Context, workOrderId int, selection *DispositionSelection) (*DispositionResult, error) {
	actor, err := authorizeContext(ctx, ActionIssueMaterial)
	if err != nil {
		return nil, err
	}
	if err := selection.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	wo, err := utils.FetchModelForUpdate[WorkOrder](tx, workOrderId)
	if err != nil {
		tx.Rollback()
		return nil, utils.TranslateNotFound(err, "work order", workOrderId)
	}
	lines, failed, err := resolveSelection(tx, wo.ID, selection)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	result := &DispositionResult{
		WorkOrderId:     wo.ID,
		DispositionType: DispositionTypeMaterialIssue,
		Lines:           failed,
	}
	if len(lines) == 0 {
		tx.Rollback()
		return result, nil
	}

	issueNumber, seqNo, err := NextDocumentNumber(tx, DocumentPrefixMaterialIssue)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	issue := MaterialIssue{
		IssueNumber: issueNumber,
		SequenceNo:  seqNo,
		WorkOrderId: wo.ID,
		Status:      MaterialIssueStatusPosted,
		IssuedById:  actor.Id,
		IssuedAt:    time.Now().UTC(),
	}
	if err := tx.Create(&issue).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for i, line := range lines {
		savepoint := fmt.Sprintf("mi_line_%d", i)
		if err := tx.SavePoint(savepoint).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		allocations, err := issueLine(tx, wo.ID, &issue, line, actor)
		if err != nil {
			if !isLineError(err) {
				tx.Rollback()
				return nil, err
			}
			if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
				tx.Rollback()
				return nil, rbErr
			}
			result.Lines = append(result.Lines, line.failure(err))
			continue
		}
		lineResult := line.result(DispositionLineIssued, line.required)
		lineResult.Allocations = allocations
		result.Lines = append(result.Lines, lineResult)
	}

	if result.SucceededCount() == 0 {
		tx.Rollback()
		return result, nil
	}
	if !wo.HasMaterialIssue {
		if err := bumpWorkOrderVersion(tx, wo, map[string]interface{}{"has_material_issue": true}); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := recordWorkOrderEvent(tx, wo.ID, WorkOrderEventMaterialIssued, map[string]interface{}{
		"material_issue_id": issue.ID,
		"issue_number":      issue.IssueNumber,
		"lines":             result.Lines,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	result.DocumentId = &issue.ID
	result.DocumentNumber = issue.IssueNumber
	return result, nil
}

// issueLine posts one line inside the caller's savepoint.
func issueLine(tx *gorm.DB, workOrderId int, issue *MaterialIssue, line dispositionLine, actor utils.Actor) ([]Allocation, error) {
	resolved, err := isResolved(tx, workOrderId, line.key, DispositionTypeMaterialIssue)
	if err != nil {
		return nil, err
	}
	if resolved {
		return nil, utils.NewConflict("line %s has already been issued", line.key)
	}

	stocks, err := lockItemStocks(tx, line.itemId)
	if err != nil {
		return nil, err
	}
	snapshot := stocksToSnapshot(stocks)
	rec := ReconcileLine(line.required, snapshot)
	if rec.Classification != ClassificationSufficient {
		return nil, utils.NewInsufficientStock("line %s: required %s, available %s (shortfall %s)",
			line.key, rec.Required.String(), rec.Available.String(), rec.Shortfall.String())
	}
	allocations, err := PlanAllocation(line.required, snapshot, line.preferredWarehouseId)
	if err != nil {
		return nil, err
	}
	for _, a := range allocations {
		if err := decrementStock(tx, a.StockId, a.Quantity); err != nil {
			return nil, err
		}
		row := MaterialIssueLine{
			MaterialIssueId: issue.ID,
			LineKey:         line.key,
			SourceType:      line.sourceType,
			WorkOrderItemId: line.workOrderItemId,
			BomItemId:       line.bomItemId,
			AmendmentId:     line.amendmentId,
			ItemId:          line.itemId,
			WarehouseId:     a.WarehouseId,
			Quantity:        a.Quantity,
		}
		if err := tx.Create(&row).Error; err != nil {
			return nil, err
		}
		movement := StockMovement{
			ItemId:        line.itemId,
			WarehouseId:   a.WarehouseId,
			Quantity:      a.Quantity.Neg(),
			ReferenceType: StockReferenceMaterialIssue,
			ReferenceId:   issue.ID,
			Reference:     issue.IssueNumber,
			CreatedById:   actor.Id,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return nil, err
		}
	}
	if err := markResolved(tx, workOrderId, line.key, DispositionTypeMaterialIssue, issue.ID, actor); err != nil {
		return nil, err
	}
	return allocations, nil
}

// ReverseMaterialIssue puts the issued quantities back into the warehouses they
// came from and frees the lines for a new issue.
func ReverseMaterialIssue(ctx context.Context, id int) (*MaterialIssue, error) {
	actor, err := authorizeContext(ctx, ActionReverseMaterialIssue)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	var header MaterialIssue
	if err := tx.First(&header, id).Error; err != nil {
		tx.Rollback()
		return nil, utils.TranslateNotFound(err, "material issue", id)
	}
	// work order first, same lock order as GenerateMaterialIssue
	wo, err := utils.FetchModelForUpdate[WorkOrder](tx, header.WorkOrderId)
	if err != nil {
		tx.Rollback()
		return nil, utils.TranslateNotFound(err, "work order", header.WorkOrderId)
	}
	issue, err := utils.FetchModelForUpdate[MaterialIssue](tx, id)
	if err != nil {
		tx.Rollback()
		return nil, utils.TranslateNotFound(err, "material issue", id)
	}
	if issue.Status == MaterialIssueStatusReversed {
		tx.Rollback()
		return nil, utils.NewConflict("material issue %s is already reversed", issue.IssueNumber)
	}
	var lines []MaterialIssueLine
	if err := tx.Where("material_issue_id = ?", issue.ID).Order("id").Find(&lines).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, l := range lines {
		stock, err := lockOrCreateStock(tx, l.ItemId, l.WarehouseId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := incrementStock(tx, stock.ID, l.Quantity); err != nil {
			tx.Rollback()
			return nil, err
		}
		movement := StockMovement{
			ItemId:        l.ItemId,
			WarehouseId:   l.WarehouseId,
			Quantity:      l.Quantity,
			ReferenceType: StockReferenceIssueReversal,
			ReferenceId:   issue.ID,
			Reference:     issue.IssueNumber,
			CreatedById:   actor.Id,
		}
		if err := tx.Create(&movement).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	now := time.Now().UTC()
	res := tx.Model(&MaterialIssue{}).
		Where("id = ? AND status = ?", issue.ID, MaterialIssueStatusPosted).
		Updates(map[string]interface{}{
			"status":         MaterialIssueStatusReversed,
			"reversed_by_id": actor.Id,
			"reversed_at":    now,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		tx.Rollback()
		return nil, utils.NewConflict("material issue %s is already reversed", issue.IssueNumber)
	}
	if err := tx.Where("document_id = ? AND disposition_type = ?", issue.ID, DispositionTypeMaterialIssue).
		Delete(&DispositionResolution{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	var stillPosted int64
	if err := tx.Model(&MaterialIssue{}).
		Where("work_order_id = ? AND status = ?", wo.ID, MaterialIssueStatusPosted).
		Count(&stillPosted).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := bumpWorkOrderVersion(tx, wo, map[string]interface{}{"has_material_issue": stillPosted > 0}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recordWorkOrderEvent(tx, wo.ID, WorkOrderEventMaterialIssueReversed, map[string]interface{}{
		"material_issue_id": issue.ID,
		"issue_number":      issue.IssueNumber,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	issue.Status = MaterialIssueStatusReversed
	issue.ReversedById = &actor.Id
	issue.ReversedAt = &now
	issue.Lines = lines
	return issue, nil
}

func GetMaterialIssue(ctx context.Context, id int) (*MaterialIssue, error) {
	issue, err := utils.FetchModel[MaterialIssue](ctx, id, "Lines")
	if err != nil {
		return nil, utils.TranslateNotFound(err, "material issue", id)
	}
	return issue, nil
}

func ListMaterialIssues(ctx context.Context, workOrderId int) ([]*MaterialIssue, error) {
	db := config.GetDB()
	if err := utils.ValidateResourceId[WorkOrder](ctx, db, "work order", workOrderId); err != nil {
		return nil, err
	}
	var results []*MaterialIssue
	err := db.WithContext(ctx).Preload("Lines", orderById).
		Where("work_order_id = ?", workOrderId).
		Order("id").
		Find(&results).Error
	return results, err
}
