package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
	"gorm.io/gorm"
)

type StatusTransitionInput struct {
	Department        Department       `json:"department" binding:"required"`
	ToStatus          string           `json:"to_status" binding:"required"`
	Notes             string           `json:"notes"`
	ExpectedVersion   *int             `json:"expected_version"`
	BomBindings       []ItemBomBinding `json:"bom_bindings"`
	DrawingRef        *string          `json:"drawing_ref"`
	EstimatedShipDate *time.Time       `json:"estimated_ship_date"`
}

type StatusTransitionResult struct {
	WorkOrder *WorkOrder          `json:"work_order"`
	History   *StatusHistoryEntry `json:"history"`
}

func (input *StatusTransitionInput) validate() error {
	input.ToStatus = strings.TrimSpace(input.ToStatus)
	if !input.Department.IsValid() {
		return utils.NewValidationError("unknown department %q", input.Department)
	}
	if !IsValidStatus(input.Department, input.ToStatus) {
		return utils.NewValidationError("%q is not a %s status", input.ToStatus, input.Department)
	}
	if input.Department != DepartmentEngineering {
		if len(input.BomBindings) > 0 || input.DrawingRef != nil {
			return utils.NewValidationError("bom bindings and drawing reference belong to engineering transitions")
		}
	} else if len(input.BomBindings) > 0 && EngineeringStatus(input.ToStatus) != EngineeringStatusApproved {
		return utils.NewValidationError("bom bindings can only accompany an approval")
	}
	if input.EstimatedShipDate != nil && input.Department != DepartmentManufacture {
		return utils.NewValidationError("estimated ship date belongs to manufacture transitions")
	}
	for i := range input.BomBindings {
		if err := utils.ValidateStruct(&input.BomBindings[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateWorkOrderStatus moves one department track. The work order row is locked,
// the transition validated against the current tracks, and the status change,
// its side effects and the history entry commit together or not at all.
func UpdateWorkOrderStatus(ctx context.Context, workOrderId int, input *StatusTransitionInput) (*StatusTransitionResult, error) {
	if input == nil {
		return nil, utils.NewValidationError("transition input is required")
	}
	if !input.Department.IsValid() {
		return nil, utils.NewValidationError("unknown department %q", input.Department)
	}
	actor, err := authorizeContext(ctx, TransitionAction(input.Department))
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	wo, err := utils.FetchModelForUpdate[WorkOrder](tx, workOrderId)
	if err != nil {
		tx.Rollback()
		return nil, utils.TranslateNotFound(err, "work order", workOrderId)
	}
	if input.ExpectedVersion != nil && *input.ExpectedVersion != wo.Version {
		tx.Rollback()
		return nil, utils.NewConflict("work order %s is at version %d, expected %d", wo.WoNumber, wo.Version, *input.ExpectedVersion)
	}
	state := wo.TrackState()
	if err := ValidateTransition(state, input.Department, input.ToStatus); err != nil {
		tx.Rollback()
		return nil, err
	}
	from := state.CurrentStatus(input.Department)

	updates := map[string]interface{}{}
	switch input.Department {
	case DepartmentEngineering:
		if EngineeringStatus(input.ToStatus) == EngineeringStatusApproved {
			if err := applyBomBindings(tx, wo.ID, input.BomBindings); err != nil {
				tx.Rollback()
				return nil, err
			}
			if err := requireAllItemsBound(tx, wo); err != nil {
				tx.Rollback()
				return nil, err
			}
			if input.DrawingRef != nil {
				updates["drawing_ref"] = utils.NilIfEmpty(strings.TrimSpace(*input.DrawingRef))
			}
		}
		updates["engineering_status"] = input.ToStatus
	case DepartmentInventory:
		if InventoryStatus(input.ToStatus) == InventoryStatusBarangSiap && config.StrictInventoryReadiness() {
			rec, err := buildReconciliation(tx, wo.ID)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			if summary := rec.Summary(); !summary.AllCovered {
				tx.Rollback()
				return nil, utils.NewPreconditionFailed("%d of %d material line(s) are neither sufficient nor issued, %d item(s) have no bom",
					summary.UncoveredLines, summary.TotalLines, summary.UnboundItems)
			}
		}
		updates["inventory_status"] = input.ToStatus
	case DepartmentManufacture:
		if input.EstimatedShipDate != nil {
			updates["estimated_ship_date"] = input.EstimatedShipDate.UTC()
		}
		updates["production_status"] = input.ToStatus
	}
	notes := strings.TrimSpace(input.Notes)
	if notes != "" {
		updates["notes"] = appendDepartmentNote(wo.Notes, input.Department, actor, notes)
	}
	if err := bumpWorkOrderVersion(tx, wo, updates); err != nil {
		tx.Rollback()
		return nil, err
	}
	entry, err := appendStatusHistory(tx, wo.ID, input.Department, from, input.ToStatus, actor, notes)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recordWorkOrderEvent(tx, wo.ID, WorkOrderEventStatusChanged, map[string]interface{}{
		"department":  input.Department,
		"from_status": from,
		"to_status":   input.ToStatus,
		"version":     wo.Version,
		"changed_by":  actor.Id,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	updated, err := GetWorkOrder(ctx, wo.ID)
	if err != nil {
		return nil, err
	}
	return &StatusTransitionResult{WorkOrder: updated, History: entry}, nil
}

// requireAllItemsBound blocks an approval while any item still lacks a BOM.
func requireAllItemsBound(tx *gorm.DB, wo *WorkOrder) error {
	var unbound []WorkOrderItem
	if err := tx.Where("work_order_id = ? AND bom_id IS NULL", wo.ID).Order("id").Find(&unbound).Error; err != nil {
		return err
	}
	if len(unbound) > 0 {
		ids := make([]string, 0, len(unbound))
		for _, item := range unbound {
			ids = append(ids, itoa(item.ID))
		}
		return utils.NewValidationError("work order %s cannot be approved: item(s) %s have no bom", wo.WoNumber, strings.Join(ids, ", "))
	}
	return nil
}

func appendDepartmentNote(existing string, dept Department, actor utils.Actor, notes string) string {
	author := actor.Name
	if author == "" {
		author = actor.Username
	}
	line := fmt.Sprintf("[%s] %s: %s", dept.Label(), author, notes)
	if strings.TrimSpace(existing) == "" {
		return line
	}
	return existing + "\n" + line
}
