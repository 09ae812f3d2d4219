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

type PurchaseRequest struct {
	ID            int                   `gorm:"primary_key" json:"id"`
	RequestNumber string                `gorm:"size:30;not null;uniqueIndex" json:"request_number"`
	SequenceNo    int                   `gorm:"not null" json:"sequence_no"`
	WorkOrderId   int                   `gorm:"not null;index" json:"work_order_id"`
	Status        PurchaseRequestStatus `gorm:"size:20;not null" json:"status"`
	RequestedById int                   `gorm:"not null" json:"requested_by_id"`
	RequestedAt   time.Time             `gorm:"not null" json:"requested_at"`
	Lines         []PurchaseRequestLine `gorm:"foreignKey:PurchaseRequestId" json:"lines"`
	CreatedAt     time.Time             `gorm:"autoCreateTime" json:"created_at"`
}

// PurchaseRequestLine carries the shortfall of one line at request time.
type PurchaseRequestLine struct {
	ID                int             `gorm:"primary_key" json:"id"`
	PurchaseRequestId int             `gorm:"not null;index" json:"purchase_request_id"`
	LineKey           string          `gorm:"size:64;not null" json:"line_key"`
	SourceType        LineSourceType  `gorm:"size:20;not null" json:"source_type"`
	WorkOrderItemId   *int            `json:"work_order_item_id"`
	BomItemId         *int            `json:"bom_item_id"`
	AmendmentId       *int            `gorm:"index" json:"amendment_id"`
	ItemId            int             `gorm:"not null;index" json:"item_id"`
	RequiredQuantity  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"required_quantity"`
	AvailableQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"available_quantity"`
	Quantity          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

// GeneratePurchaseRequest raises one purchase request covering the shortfall of
// every selected Insufficient line. Sufficient lines are reported as skipped and
// left for a material issue; so are lines that were already issued.
func GeneratePurchaseRequest(ctx context.Context, workOrderId int, selection *DispositionSelection) (*DispositionResult, error) {
	actor, err := authorizeContext(ctx, ActionRequestPurchase)
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
		DispositionType: DispositionTypePurchaseRequest,
		Lines:           failed,
	}
	if len(lines) == 0 {
		tx.Rollback()
		return result, nil
	}

	requestNumber, seqNo, err := NextDocumentNumber(tx, DocumentPrefixPurchaseRequest)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	request := PurchaseRequest{
		RequestNumber: requestNumber,
		SequenceNo:    seqNo,
		WorkOrderId:   wo.ID,
		Status:        PurchaseRequestStatusOpen,
		RequestedById: actor.Id,
		RequestedAt:   time.Now().UTC(),
	}
	if err := tx.Create(&request).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for i, line := range lines {
		savepoint := fmt.Sprintf("pr_line_%d", i)
		if err := tx.SavePoint(savepoint).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		lineResult, err := requestLine(tx, wo.ID, &request, line, actor)
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
		result.Lines = append(result.Lines, lineResult)
	}

	if result.SucceededCount() == 0 {
		tx.Rollback()
		return result, nil
	}
	if err := recordWorkOrderEvent(tx, wo.ID, WorkOrderEventPurchaseRequested, map[string]interface{}{
		"purchase_request_id": request.ID,
		"request_number":      request.RequestNumber,
		"lines":               result.Lines,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	result.DocumentId = &request.ID
	result.DocumentNumber = request.RequestNumber
	return result, nil
}

func requestLine(tx *gorm.DB, workOrderId int, request *PurchaseRequest, line dispositionLine, actor utils.Actor) (DispositionLineResult, error) {
	resolved, err := isResolved(tx, workOrderId, line.key, DispositionTypePurchaseRequest)
	if err != nil {
		return DispositionLineResult{}, err
	}
	if resolved {
		return DispositionLineResult{}, utils.NewConflict("line %s has already been requested", line.key)
	}
	issued, err := isResolved(tx, workOrderId, line.key, DispositionTypeMaterialIssue)
	if err != nil {
		return DispositionLineResult{}, err
	}
	if issued {
		skipped := line.result(DispositionLineSkipped, decimal.Zero)
		skipped.Message = "line has already been issued"
		return skipped, nil
	}
	snapshot, err := loadStockSnapshot(tx, []int{line.itemId})
	if err != nil {
		return DispositionLineResult{}, err
	}
	rec := ReconcileLine(line.required, snapshot[line.itemId])
	if rec.Classification == ClassificationSufficient {
		skipped := line.result(DispositionLineSkipped, decimal.Zero)
		skipped.Message = fmt.Sprintf("stock is sufficient (required %s, available %s)", rec.Required.String(), rec.Available.String())
		return skipped, nil
	}
	row := PurchaseRequestLine{
		PurchaseRequestId: request.ID,
		LineKey:           line.key,
		SourceType:        line.sourceType,
		WorkOrderItemId:   line.workOrderItemId,
		BomItemId:         line.bomItemId,
		AmendmentId:       line.amendmentId,
		ItemId:            line.itemId,
		RequiredQuantity:  rec.Required,
		AvailableQuantity: rec.Available,
		Quantity:          rec.Shortfall,
	}
	if err := tx.Create(&row).Error; err != nil {
		return DispositionLineResult{}, err
	}
	if err := markResolved(tx, workOrderId, line.key, DispositionTypePurchaseRequest, request.ID, actor); err != nil {
		return DispositionLineResult{}, err
	}
	return line.result(DispositionLineRequested, rec.Shortfall), nil
}

func ListPurchaseRequests(ctx context.Context, workOrderId int) ([]*PurchaseRequest, error) {
	db := config.GetDB()
	if err := utils.ValidateResourceId[WorkOrder](ctx, db, "work order", workOrderId); err != nil {
		return nil, err
	}
	var results []*PurchaseRequest
	err := db.WithContext(ctx).Preload("Lines", orderById).
		Where("work_order_id = ?", workOrderId).
		Order("id").
		Find(&results).Error
	return results, err
}
