package models_test

import (
	"testing"

	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/shopspring/decimal"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestReconcileLine_Shortfall(t *testing.T) {
	stocks := []models.WarehouseStock{
		{StockId: 1, WarehouseId: 1, Quantity: dec("4")},
		{StockId: 2, WarehouseId: 2, Quantity: dec("3")},
	}
	got := models.ReconcileLine(models.RequiredQuantity(dec("2"), dec("5")), stocks)
	if !got.Required.Equal(dec("10")) {
		t.Fatalf("required = %s, want 10", got.Required)
	}
	if !got.Available.Equal(dec("7")) {
		t.Fatalf("available = %s, want 7", got.Available)
	}
	if got.Classification != models.ClassificationInsufficient {
		t.Fatalf("classification = %s", got.Classification)
	}
	if !got.Shortfall.Equal(dec("3")) {
		t.Fatalf("shortfall = %s, want 3", got.Shortfall)
	}
}

func TestReconcileLine_ExactStockIsSufficient(t *testing.T) {
	stocks := []models.WarehouseStock{{StockId: 1, WarehouseId: 1, Quantity: dec("10")}}
	got := models.ReconcileLine(dec("10"), stocks)
	if got.Classification != models.ClassificationSufficient {
		t.Fatalf("classification = %s", got.Classification)
	}
	if !got.Shortfall.IsZero() {
		t.Fatalf("shortfall = %s, want 0", got.Shortfall)
	}
}

func TestReconcileLine_NoStock(t *testing.T) {
	got := models.ReconcileLine(dec("2.5"), nil)
	if got.Classification != models.ClassificationInsufficient || !got.Shortfall.Equal(dec("2.5")) {
		t.Fatalf("got %+v", got)
	}
}

func TestReconcile_BuildsBomAndAmendmentLines(t *testing.T) {
	bomId := 9
	items := []models.WorkOrderItem{
		{ID: 2, Quantity: dec("1")},
		{ID: 1, Quantity: dec("3"), BomId: &bomId, Bom: &models.Bom{ID: bomId, Items: []models.BomItem{
			{ID: 11, BomId: bomId, ItemId: 100, QuantityRequired: dec("2")},
			{ID: 12, BomId: bomId, ItemId: 101, QuantityRequired: dec("1")},
		}}},
	}
	amendments := []models.WorkOrderAmendment{{ID: 5, ItemId: 101, WarehouseId: 1, Quantity: dec("4")}}
	snapshot := map[int][]models.WarehouseStock{
		100: {{StockId: 1, WarehouseId: 1, Quantity: dec("6")}},
		101: {{StockId: 2, WarehouseId: 1, Quantity: dec("2")}},
	}

	rec := models.Reconcile(77, items, amendments, snapshot)
	if len(rec.BomLines) != 2 || len(rec.AmendmentLines) != 1 {
		t.Fatalf("lines: bom=%d amendment=%d", len(rec.BomLines), len(rec.AmendmentLines))
	}
	if len(rec.UnboundItemIds) != 1 || rec.UnboundItemIds[0] != 2 {
		t.Fatalf("unbound = %v", rec.UnboundItemIds)
	}
	first := rec.BomLines[0]
	if first.LineKey != models.BomLineKey(1, 11) || first.Classification != models.ClassificationSufficient {
		t.Fatalf("first line = %+v", first)
	}
	second := rec.BomLines[1]
	if second.Classification != models.ClassificationInsufficient || !second.Shortfall.Equal(dec("1")) {
		t.Fatalf("second line = %+v", second)
	}
	amendment := rec.AmendmentLines[0]
	if amendment.LineKey != models.AmendmentLineKey(5) || !amendment.Shortfall.Equal(dec("2")) {
		t.Fatalf("amendment line = %+v", amendment)
	}

	summary := rec.Summary()
	if summary.TotalLines != 3 || summary.SufficientLines != 1 || summary.InsufficientLines != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.AllCovered || summary.UnboundItems != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	snapshot := map[int][]models.WarehouseStock{100: {{StockId: 1, WarehouseId: 1, Quantity: dec("6")}}}
	amendments := []models.WorkOrderAmendment{{ID: 1, ItemId: 100, WarehouseId: 1, Quantity: dec("4")}}
	models.Reconcile(1, nil, amendments, snapshot)
	models.Reconcile(1, nil, amendments, snapshot)
	if !snapshot[100][0].Quantity.Equal(dec("6")) {
		t.Fatalf("snapshot changed: %s", snapshot[100][0].Quantity)
	}
}
