package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkOrder struct {
	ID                int                  `gorm:"primary_key" json:"id"`
	WoNumber          string               `gorm:"size:30;not null;uniqueIndex" json:"wo_number"`
	SequenceNo        int                  `gorm:"not null" json:"sequence_no"`
	SalesOrderId      int                  `gorm:"not null;index" json:"sales_order_id"`
	CustomerId        int                  `gorm:"index" json:"customer_id"`
	CustomerName      string               `gorm:"size:255" json:"customer_name"`
	EngineeringStatus EngineeringStatus    `gorm:"size:30;not null;index" json:"engineering_status"`
	InventoryStatus   InventoryStatus      `gorm:"size:30;not null;index" json:"inventory_status"`
	ProductionStatus  ProductionStatus     `gorm:"size:30;not null;index" json:"production_status"`
	EstimatedShipDate *time.Time           `json:"estimated_ship_date"`
	DrawingRef        *string              `gorm:"size:500" json:"drawing_ref"`
	Notes             string               `gorm:"type:text" json:"notes"`
	HasMaterialIssue  bool                 `gorm:"not null;default:false" json:"has_material_issue"`
	Version           int                  `gorm:"not null;default:0" json:"version"`
	CreatedById       int                  `gorm:"not null" json:"created_by_id"`
	CreatedAt         time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
	Items             []WorkOrderItem      `gorm:"foreignKey:WorkOrderId" json:"items"`
	Amendments        []WorkOrderAmendment `gorm:"foreignKey:WorkOrderId" json:"amendments"`

	// read-time fields
	Status    OverallStatus                      `gorm:"-" json:"status"`
	Approvals map[Department]*StatusHistoryEntry `gorm:"-" json:"approvals,omitempty"`
	Readiness *ReconciliationSummary             `gorm:"-" json:"readiness,omitempty"`
}

// WorkOrderItem is one product line copied from the sales order.
type WorkOrderItem struct {
	ID               int             `gorm:"primary_key" json:"id"`
	WorkOrderId      int             `gorm:"not null;index" json:"work_order_id"`
	ProductId        *int            `gorm:"index" json:"product_id"`
	Description      string          `gorm:"type:text" json:"description"`
	Specification    string          `gorm:"type:text" json:"specification"`
	Quantity         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	BomId            *int            `gorm:"index" json:"bom_id"`
	EngineeringNotes string          `gorm:"type:text" json:"engineering_notes"`
	Bom              *Bom            `gorm:"foreignKey:BomId" json:"bom,omitempty"`
}

type NewWorkOrder struct {
	SalesOrderId      int        `json:"sales_order_id" binding:"required" validate:"required,gt=0"`
	Notes             string     `json:"notes"`
	EstimatedShipDate *time.Time `json:"estimated_ship_date"`
}

type WorkOrderFilter struct {
	SalesOrderId      *int               `form:"sales_order_id"`
	EngineeringStatus *EngineeringStatus `form:"engineering_status"`
	InventoryStatus   *InventoryStatus   `form:"inventory_status"`
	ProductionStatus  *ProductionStatus  `form:"production_status"`
	Search            string             `form:"search"`
	Limit             int                `form:"limit"`
	Offset            int                `form:"offset"`
}

func (wo *WorkOrder) deriveStatus() {
	wo.Status = DeriveOverallStatus(wo.EngineeringStatus, wo.InventoryStatus, wo.ProductionStatus)
}

// materialItemIds lists the stock items referenced by bound BOMs and amendments.
func (wo *WorkOrder) materialItemIds() []int {
	var ids []int
	for _, item := range wo.Items {
		if item.Bom == nil {
			continue
		}
		for _, bi := range item.Bom.Items {
			ids = append(ids, bi.ItemId)
		}
	}
	for _, a := range wo.Amendments {
		ids = append(ids, a.ItemId)
	}
	return utils.UniqueSlice(ids)
}

// CreateWorkOrder copies every detail of the sales order into work order items
// and starts all three tracks at their initial status.
func CreateWorkOrder(ctx context.Context, input *NewWorkOrder) (*WorkOrder, error) {
	actor, err := authorizeContext(ctx, ActionCreateWorkOrder)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	order, err := GetSalesOrder(ctx, input.SalesOrderId)
	if err != nil {
		return nil, err
	}
	if len(order.Details) == 0 {
		return nil, utils.NewValidationError("sales order %s has no details", order.OrderNumber)
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	woNumber, seqNo, err := NextDocumentNumber(tx, DocumentPrefixWorkOrder)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	wo := WorkOrder{
		WoNumber:          woNumber,
		SequenceNo:        seqNo,
		SalesOrderId:      order.ID,
		CustomerId:        order.CustomerId,
		CustomerName:      order.CustomerName,
		EngineeringStatus: EngineeringStatusPendingApproval,
		InventoryStatus:   InventoryStatusPendingApproval,
		ProductionStatus:  ProductionStatusTungguAntrian,
		EstimatedShipDate: input.EstimatedShipDate,
		Notes:             strings.TrimSpace(input.Notes),
		CreatedById:       actor.Id,
	}
	for _, d := range order.Details {
		wo.Items = append(wo.Items, WorkOrderItem{
			ProductId:     d.ProductId,
			Description:   d.Description,
			Specification: d.Specification,
			Quantity:      d.Quantity,
		})
	}
	if err := tx.Create(&wo).Error; err != nil {
		tx.Rollback()
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.NewConflict("duplicate work order number %s", woNumber)
		}
		return nil, err
	}
	if err := recordWorkOrderEvent(tx, wo.ID, WorkOrderEventCreated, map[string]interface{}{
		"wo_number":      wo.WoNumber,
		"sales_order_id": wo.SalesOrderId,
		"items":          len(wo.Items),
	}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	wo.deriveStatus()
	return &wo, nil
}

// DeleteWorkOrder removes the work order with its items, amendments, history and
// disposition markers. It refuses while a posted material issue exists; issue and
// request documents themselves are kept.
func DeleteWorkOrder(ctx context.Context, id int) (*WorkOrder, error) {
	actor, err := authorizeContext(ctx, ActionDeleteWorkOrder)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	wo, err := utils.FetchModelForUpdate[WorkOrder](tx, id)
	if err != nil {
		tx.Rollback()
		return nil, utils.TranslateNotFound(err, "work order", id)
	}
	var posted int64
	if err := tx.Model(&MaterialIssue{}).
		Where("work_order_id = ? AND status = ?", id, MaterialIssueStatusPosted).
		Count(&posted).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if posted > 0 {
		tx.Rollback()
		return nil, utils.NewConflict("work order %s has %d posted material issue(s); reverse them before deleting", wo.WoNumber, posted)
	}

	for _, model := range []interface{}{&WorkOrderItem{}, &WorkOrderAmendment{}, &StatusHistoryEntry{}, &DispositionResolution{}} {
		if err := tx.Where("work_order_id = ?", id).Delete(model).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Delete(wo).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recordWorkOrderEvent(tx, wo.ID, WorkOrderEventDeleted, map[string]interface{}{
		"wo_number":  wo.WoNumber,
		"deleted_by": actor.Id,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	wo.deriveStatus()
	return wo, nil
}

// GetWorkOrder returns the work order with items, bound BOMs, amendments,
// total_stock per material line, the latest sign-off per department and a
// readiness summary.
func GetWorkOrder(ctx context.Context, id int) (*WorkOrder, error) {
	db := config.GetDB().WithContext(ctx)
	var wo WorkOrder
	err := db.Preload("Items", orderById).
		Preload("Items.Bom.Items", orderById).
		Preload("Amendments", orderById).
		First(&wo, id).Error
	if err != nil {
		return nil, utils.TranslateNotFound(err, "work order", id)
	}
	if err := enrichWorkOrder(db, &wo); err != nil {
		return nil, err
	}
	return &wo, nil
}

func enrichWorkOrder(db *gorm.DB, wo *WorkOrder) error {
	wo.deriveStatus()

	rec, err := reconcileLoaded(db, wo)
	if err != nil {
		return err
	}
	totals := make(map[int]decimal.Decimal)
	for _, line := range rec.Lines() {
		totals[line.ItemId] = line.Available
	}
	for i := range wo.Items {
		if wo.Items[i].Bom == nil {
			continue
		}
		for j := range wo.Items[i].Bom.Items {
			total := totals[wo.Items[i].Bom.Items[j].ItemId]
			wo.Items[i].Bom.Items[j].TotalStock = &total
		}
	}
	for i := range wo.Amendments {
		total := totals[wo.Amendments[i].ItemId]
		wo.Amendments[i].TotalStock = &total
	}
	summary := rec.Summary()
	wo.Readiness = &summary

	history, err := listStatusHistory(db, wo.ID)
	if err != nil {
		return err
	}
	wo.Approvals = LatestApprovals(history)
	return nil
}

func ListWorkOrders(ctx context.Context, filter *WorkOrderFilter) ([]*WorkOrder, error) {
	if filter == nil {
		filter = &WorkOrderFilter{}
	}
	dbCtx := config.GetDB().WithContext(ctx)
	if filter.SalesOrderId != nil {
		dbCtx = dbCtx.Where("sales_order_id = ?", *filter.SalesOrderId)
	}
	if filter.EngineeringStatus != nil {
		dbCtx = dbCtx.Where("engineering_status = ?", *filter.EngineeringStatus)
	}
	if filter.InventoryStatus != nil {
		dbCtx = dbCtx.Where("inventory_status = ?", *filter.InventoryStatus)
	}
	if filter.ProductionStatus != nil {
		dbCtx = dbCtx.Where("production_status = ?", *filter.ProductionStatus)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		dbCtx = dbCtx.Where("wo_number LIKE ? OR customer_name LIKE ?", "%"+s+"%", "%"+s+"%")
	}
	limit := filter.Limit
	if limit <= 0 || limit > config.SearchLimit {
		limit = config.SearchLimit
	}
	var results []*WorkOrder
	if err := dbCtx.Order("id DESC").Limit(limit).Offset(filter.Offset).Find(&results).Error; err != nil {
		return nil, err
	}
	for _, wo := range results {
		wo.deriveStatus()
	}
	return results, nil
}

type BindBomInput struct {
	BomId            int     `json:"bom_id" binding:"required" validate:"required,gt=0"`
	EngineeringNotes *string `json:"engineering_notes"`
}

// BindWorkOrderItemBom attaches a BOM to one work order item. Bindings are frozen
// once engineering approved the work order.
func BindWorkOrderItemBom(ctx context.Context, workOrderId int, itemId int, input *BindBomInput) (*WorkOrderItem, error) {
	if _, err := authorizeContext(ctx, ActionBindBom); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := utils.ValidateResourceId[Bom](ctx, db, "bom", input.BomId); err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	wo, err := utils.FetchModelForUpdate[WorkOrder](tx, workOrderId)
	if err != nil {
		tx.Rollback()
		return nil, utils.TranslateNotFound(err, "work order", workOrderId)
	}
	if wo.EngineeringStatus == EngineeringStatusApproved {
		tx.Rollback()
		return nil, utils.NewConflict("work order %s is engineering approved; bom bindings are locked", wo.WoNumber)
	}
	binding := ItemBomBinding{WorkOrderItemId: itemId, BomId: input.BomId, EngineeringNotes: input.EngineeringNotes}
	if err := applyBomBindings(tx, wo.ID, []ItemBomBinding{binding}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := bumpWorkOrderVersion(tx, wo, nil); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recordWorkOrderEvent(tx, wo.ID, WorkOrderEventBomBound, binding); err != nil {
		tx.Rollback()
		return nil, err
	}
	var item WorkOrderItem
	if err := tx.Preload("Bom.Items", orderById).First(&item, itemId).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &item, nil
}

type ItemBomBinding struct {
	WorkOrderItemId  int     `json:"work_order_item_id" validate:"required,gt=0"`
	BomId            int     `json:"bom_id" validate:"required,gt=0"`
	EngineeringNotes *string `json:"engineering_notes"`
}

// applyBomBindings writes bindings inside tx; each item must belong to the work order
// and each BOM must exist. An item whose BOM lines were already dispositioned keeps its BOM.
func applyBomBindings(tx *gorm.DB, workOrderId int, bindings []ItemBomBinding) error {
	for _, b := range bindings {
		if b.WorkOrderItemId <= 0 || b.BomId <= 0 {
			return utils.NewValidationError("bom binding needs work_order_item_id and bom_id")
		}
		var item WorkOrderItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND work_order_id = ?", b.WorkOrderItemId, workOrderId).
			First(&item).Error
		if err != nil {
			return utils.TranslateNotFound(err, "work order item", b.WorkOrderItemId)
		}
		var bomCount int64
		if err := tx.Model(&Bom{}).Where("id = ?", b.BomId).Count(&bomCount).Error; err != nil {
			return err
		}
		if bomCount == 0 {
			return utils.NewNotFound("bom %d not found", b.BomId)
		}
		if item.BomId != nil && *item.BomId != b.BomId {
			dispositioned, err := countItemBomResolutions(tx, workOrderId, item.ID)
			if err != nil {
				return err
			}
			if dispositioned > 0 {
				return utils.NewConflict("work order item %d has issued or requested bom lines and keeps its bom", item.ID)
			}
		}
		updates := map[string]interface{}{"bom_id": b.BomId}
		if b.EngineeringNotes != nil {
			updates["engineering_notes"] = strings.TrimSpace(*b.EngineeringNotes)
		}
		if err := tx.Model(&WorkOrderItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
			return err
		}
	}
	return nil
}

// bumpWorkOrderVersion applies updates and increments version, guarded by the
// version the caller read. Zero affected rows means a concurrent writer got there first.
func bumpWorkOrderVersion(tx *gorm.DB, wo *WorkOrder, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now().UTC()
	res := tx.Model(&WorkOrder{}).Where("id = ? AND version = ?", wo.ID, wo.Version).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return utils.NewConflict("work order %s was modified concurrently", wo.WoNumber)
	}
	wo.Version++
	return nil
}
