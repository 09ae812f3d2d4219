package models

import (
	"fmt"

	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BomLineRef struct {
	WorkOrderItemId int `json:"work_order_item_id" validate:"required,gt=0"`
	BomItemId       int `json:"bom_item_id" validate:"required,gt=0"`
}

// DispositionSelection names the lines a material issue or purchase request covers.
type DispositionSelection struct {
	BomLines     []BomLineRef `json:"bom_lines" validate:"dive"`
	AmendmentIds []int        `json:"amendment_ids" validate:"dive,gt=0"`
}

func (s *DispositionSelection) validate() error {
	if s == nil || (len(s.BomLines) == 0 && len(s.AmendmentIds) == 0) {
		return utils.NewValidationError("select at least one bom line or amendment")
	}
	if err := utils.ValidateStruct(s); err != nil {
		return err
	}
	s.BomLines = utils.UniqueSlice(s.BomLines)
	s.AmendmentIds = utils.UniqueSlice(s.AmendmentIds)
	return nil
}

type DispositionLineStatus string

const (
	DispositionLineIssued    DispositionLineStatus = "issued"
	DispositionLineRequested DispositionLineStatus = "requested"
	DispositionLineSkipped   DispositionLineStatus = "skipped"
	DispositionLineFailed    DispositionLineStatus = "failed"
)

type DispositionLineResult struct {
	LineKey         string                `json:"line_key"`
	SourceType      LineSourceType        `json:"source_type"`
	WorkOrderItemId *int                  `json:"work_order_item_id,omitempty"`
	BomItemId       *int                  `json:"bom_item_id,omitempty"`
	AmendmentId     *int                  `json:"amendment_id,omitempty"`
	ItemId          int                   `json:"item_id,omitempty"`
	Status          DispositionLineStatus `json:"status"`
	Quantity        decimal.Decimal       `json:"quantity"`
	Allocations     []Allocation          `json:"allocations,omitempty"`
	ErrorKind       utils.ErrorKind       `json:"error_kind,omitempty"`
	Message         string                `json:"message,omitempty"`
}

// DispositionResult reports every selected line. DocumentId is nil when no line
// succeeded, in which case no document was created.
type DispositionResult struct {
	WorkOrderId     int                     `json:"work_order_id"`
	DispositionType DispositionType         `json:"disposition_type"`
	DocumentId      *int                    `json:"document_id"`
	DocumentNumber  string                  `json:"document_number,omitempty"`
	Lines           []DispositionLineResult `json:"lines"`
}

func (r *DispositionResult) SucceededCount() int {
	n := 0
	for _, l := range r.Lines {
		if l.Status == DispositionLineIssued || l.Status == DispositionLineRequested {
			n++
		}
	}
	return n
}

// FirstFailureKind is the error kind of the first failed line, empty when none failed.
func (r *DispositionResult) FirstFailureKind() utils.ErrorKind {
	for _, l := range r.Lines {
		if l.Status == DispositionLineFailed {
			return l.ErrorKind
		}
	}
	return ""
}

// dispositionLine is a selected line resolved against the work order.
type dispositionLine struct {
	key                  string
	sourceType           LineSourceType
	workOrderItemId      *int
	bomItemId            *int
	amendmentId          *int
	itemId               int
	required             decimal.Decimal
	preferredWarehouseId int
}

func (l dispositionLine) result(status DispositionLineStatus, qty decimal.Decimal) DispositionLineResult {
	return DispositionLineResult{
		LineKey:         l.key,
		SourceType:      l.sourceType,
		WorkOrderItemId: l.workOrderItemId,
		BomItemId:       l.bomItemId,
		AmendmentId:     l.amendmentId,
		ItemId:          l.itemId,
		Status:          status,
		Quantity:        qty,
	}
}

func (l dispositionLine) failure(err error) DispositionLineResult {
	r := l.result(DispositionLineFailed, decimal.Zero)
	r.ErrorKind = utils.KindOf(err)
	r.Message = err.Error()
	return r
}

// resolveSelection turns the selection into lines with their required quantity.
// References that do not belong to the work order come back as failed results
// so the remaining lines still get processed.
func resolveSelection(tx *gorm.DB, workOrderId int, selection *DispositionSelection) ([]dispositionLine, []DispositionLineResult, error) {
	var lines []dispositionLine
	var failed []DispositionLineResult

	for _, ref := range selection.BomLines {
		woItemId, bomItemId := ref.WorkOrderItemId, ref.BomItemId
		line := dispositionLine{
			key:             BomLineKey(woItemId, bomItemId),
			sourceType:      LineSourceBom,
			workOrderItemId: &woItemId,
			bomItemId:       &bomItemId,
		}
		var item WorkOrderItem
		err := tx.Where("id = ? AND work_order_id = ?", woItemId, workOrderId).First(&item).Error
		if err != nil {
			if err = utils.TranslateNotFound(err, "work order item", woItemId); utils.KindOf(err) != utils.KindNotFound {
				return nil, nil, err
			}
			failed = append(failed, line.failure(err))
			continue
		}
		if item.BomId == nil {
			failed = append(failed, line.failure(utils.NewValidationError("work order item %d has no bom", woItemId)))
			continue
		}
		var bomItem BomItem
		err = tx.Where("id = ? AND bom_id = ?", bomItemId, *item.BomId).First(&bomItem).Error
		if err != nil {
			if err = utils.TranslateNotFound(err, fmt.Sprintf("bom item (bom %d)", *item.BomId), bomItemId); utils.KindOf(err) != utils.KindNotFound {
				return nil, nil, err
			}
			failed = append(failed, line.failure(err))
			continue
		}
		line.itemId = bomItem.ItemId
		line.required = RequiredQuantity(bomItem.QuantityRequired, item.Quantity)
		lines = append(lines, line)
	}

	for _, id := range selection.AmendmentIds {
		amendmentId := id
		line := dispositionLine{
			key:         AmendmentLineKey(id),
			sourceType:  LineSourceAmendment,
			amendmentId: &amendmentId,
		}
		var amendment WorkOrderAmendment
		err := tx.Where("id = ? AND work_order_id = ?", id, workOrderId).First(&amendment).Error
		if err != nil {
			if err = utils.TranslateNotFound(err, "amendment", id); utils.KindOf(err) != utils.KindNotFound {
				return nil, nil, err
			}
			failed = append(failed, line.failure(err))
			continue
		}
		line.itemId = amendment.ItemId
		line.required = amendment.Quantity
		line.preferredWarehouseId = amendment.WarehouseId
		lines = append(lines, line)
	}
	return lines, failed, nil
}

// isLineError reports whether err belongs to a single line rather than the whole batch.
func isLineError(err error) bool {
	switch utils.KindOf(err) {
	case utils.KindConflict, utils.KindInsufficientStock, utils.KindValidation, utils.KindNotFound:
		return true
	}
	return false
}
