package models

import (
	"context"
	"sort"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineReconciliation is the classification of one material requirement against stock.
type LineReconciliation struct {
	Required       decimal.Decimal `json:"required"`
	Available      decimal.Decimal `json:"available"`
	Classification Classification  `json:"classification"`
	Shortfall      decimal.Decimal `json:"shortfall"`
}

// RequiredQuantity scales a per-unit BOM quantity by the work order line quantity.
func RequiredQuantity(perUnit decimal.Decimal, parentQty decimal.Decimal) decimal.Decimal {
	return perUnit.Mul(parentQty)
}

// ReconcileLine classifies a requirement against the warehouses holding the item.
// It is pure: no reads, no writes.
func ReconcileLine(required decimal.Decimal, stocks []WarehouseStock) LineReconciliation {
	available := TotalStock(stocks)
	if available.GreaterThanOrEqual(required) {
		return LineReconciliation{
			Required:       required,
			Available:      available,
			Classification: ClassificationSufficient,
			Shortfall:      decimal.Zero,
		}
	}
	return LineReconciliation{
		Required:       required,
		Available:      available,
		Classification: ClassificationInsufficient,
		Shortfall:      required.Sub(available),
	}
}

// ReconciledLine is one material line of a work order with its stock position
// and the dispositions already recorded against it.
type ReconciledLine struct {
	LineKey         string           `json:"line_key"`
	SourceType      LineSourceType   `json:"source_type"`
	WorkOrderItemId *int             `json:"work_order_item_id,omitempty"`
	BomItemId       *int             `json:"bom_item_id,omitempty"`
	AmendmentId     *int             `json:"amendment_id,omitempty"`
	ItemId          int              `json:"item_id"`
	ItemName        string           `json:"item_name,omitempty"`
	WarehouseId     *int             `json:"warehouse_id,omitempty"`
	PerUnitQuantity *decimal.Decimal `json:"per_unit_quantity,omitempty"`
	ParentQuantity  *decimal.Decimal `json:"parent_quantity,omitempty"`
	LineReconciliation
	Stocks    []WarehouseStock `json:"stocks"`
	Issued    bool             `json:"issued"`
	Requested bool             `json:"requested"`
}

type Reconciliation struct {
	WorkOrderId    int              `json:"work_order_id"`
	BomLines       []ReconciledLine `json:"bom_lines"`
	AmendmentLines []ReconciledLine `json:"amendment_lines"`
	UnboundItemIds []int            `json:"unbound_item_ids"`
}

type ReconciliationSummary struct {
	TotalLines        int  `json:"total_lines"`
	SufficientLines   int  `json:"sufficient_lines"`
	InsufficientLines int  `json:"insufficient_lines"`
	IssuedLines       int  `json:"issued_lines"`
	RequestedLines    int  `json:"requested_lines"`
	UncoveredLines    int  `json:"uncovered_lines"`
	UnboundItems      int  `json:"unbound_items"`
	AllCovered        bool `json:"all_covered"`
}

func (r Reconciliation) Lines() []ReconciledLine {
	out := make([]ReconciledLine, 0, len(r.BomLines)+len(r.AmendmentLines))
	out = append(out, r.BomLines...)
	return append(out, r.AmendmentLines...)
}

// Summary counts lines; AllCovered holds when every line is either issued or
// currently Sufficient and no item is waiting for a BOM.
func (r Reconciliation) Summary() ReconciliationSummary {
	s := ReconciliationSummary{UnboundItems: len(r.UnboundItemIds), AllCovered: len(r.UnboundItemIds) == 0}
	for _, l := range r.Lines() {
		s.TotalLines++
		if l.Classification == ClassificationSufficient {
			s.SufficientLines++
		} else {
			s.InsufficientLines++
		}
		if l.Issued {
			s.IssuedLines++
		}
		if l.Requested {
			s.RequestedLines++
		}
		if !l.Issued && l.Classification != ClassificationSufficient {
			s.UncoveredLines++
			s.AllCovered = false
		}
	}
	return s
}

// Reconcile builds the reconciliation of a work order from already loaded rows.
// Items must carry Bom.Items; snapshot is keyed by item id.
func Reconcile(workOrderId int, items []WorkOrderItem, amendments []WorkOrderAmendment, snapshot map[int][]WarehouseStock) Reconciliation {
	rec := Reconciliation{
		WorkOrderId:    workOrderId,
		BomLines:       []ReconciledLine{},
		AmendmentLines: []ReconciledLine{},
		UnboundItemIds: []int{},
	}
	sortedItems := append([]WorkOrderItem(nil), items...)
	sort.SliceStable(sortedItems, func(i, j int) bool { return sortedItems[i].ID < sortedItems[j].ID })
	for _, item := range sortedItems {
		if item.BomId == nil || item.Bom == nil {
			rec.UnboundItemIds = append(rec.UnboundItemIds, item.ID)
			continue
		}
		for _, bomItem := range item.Bom.Items {
			woItemId, bomItemId := item.ID, bomItem.ID
			perUnit, parentQty := bomItem.QuantityRequired, item.Quantity
			stocks := snapshot[bomItem.ItemId]
			rec.BomLines = append(rec.BomLines, ReconciledLine{
				LineKey:            BomLineKey(item.ID, bomItem.ID),
				SourceType:         LineSourceBom,
				WorkOrderItemId:    &woItemId,
				BomItemId:          &bomItemId,
				ItemId:             bomItem.ItemId,
				PerUnitQuantity:    &perUnit,
				ParentQuantity:     &parentQty,
				LineReconciliation: ReconcileLine(RequiredQuantity(perUnit, parentQty), stocks),
				Stocks:             nonNilStocks(stocks),
			})
		}
	}
	for _, a := range amendments {
		amendmentId, warehouseId := a.ID, a.WarehouseId
		stocks := snapshot[a.ItemId]
		rec.AmendmentLines = append(rec.AmendmentLines, ReconciledLine{
			LineKey:            AmendmentLineKey(a.ID),
			SourceType:         LineSourceAmendment,
			AmendmentId:        &amendmentId,
			ItemId:             a.ItemId,
			WarehouseId:        &warehouseId,
			LineReconciliation: ReconcileLine(a.Quantity, stocks),
			Stocks:             nonNilStocks(stocks),
		})
	}
	return rec
}

func nonNilStocks(stocks []WarehouseStock) []WarehouseStock {
	if stocks == nil {
		return []WarehouseStock{}
	}
	return stocks
}

// applyResolutions flags lines that already have a disposition recorded.
func (r *Reconciliation) applyResolutions(markers []DispositionResolution) {
	issued := make(map[string]bool)
	requested := make(map[string]bool)
	for _, m := range markers {
		switch m.DispositionType {
		case DispositionTypeMaterialIssue:
			issued[m.LineKey] = true
		case DispositionTypePurchaseRequest:
			requested[m.LineKey] = true
		}
	}
	for _, lines := range [][]ReconciledLine{r.BomLines, r.AmendmentLines} {
		for i := range lines {
			lines[i].Issued = issued[lines[i].LineKey]
			lines[i].Requested = requested[lines[i].LineKey]
		}
	}
}

// GetWorkOrderReconciliation reconciles every BOM and amendment line of a work order
// against current stock. It reads only.
func GetWorkOrderReconciliation(ctx context.Context, workOrderId int) (*Reconciliation, error) {
	return buildReconciliation(config.GetDB().WithContext(ctx), workOrderId)
}

func buildReconciliation(tx *gorm.DB, workOrderId int) (*Reconciliation, error) {
	var wo WorkOrder
	err := tx.Preload("Items", orderById).
		Preload("Items.Bom.Items", orderById).
		Preload("Amendments", orderById).
		First(&wo, workOrderId).Error
	if err != nil {
		return nil, utils.TranslateNotFound(err, "work order", workOrderId)
	}
	return reconcileLoaded(tx, &wo)
}

// reconcileLoaded expects wo with Items.Bom.Items and Amendments preloaded.
func reconcileLoaded(tx *gorm.DB, wo *WorkOrder) (*Reconciliation, error) {
	snapshot, err := loadStockSnapshot(tx, wo.materialItemIds())
	if err != nil {
		return nil, err
	}
	markers, err := listResolutions(tx, wo.ID)
	if err != nil {
		return nil, err
	}
	rec := Reconcile(wo.ID, wo.Items, wo.Amendments, snapshot)
	rec.applyResolutions(markers)
	return &rec, nil
}

func orderById(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}
