package models_test

import (
	"testing"

	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/utils"
)

func TestPlanAllocation_MostStockedFirst(t *testing.T) {
	stocks := []models.WarehouseStock{
		{StockId: 1, WarehouseId: 1, Quantity: dec("3")},
		{StockId: 2, WarehouseId: 2, Quantity: dec("8")},
		{StockId: 3, WarehouseId: 3, Quantity: dec("0")},
	}
	plan, err := models.PlanAllocation(dec("10"), stocks, 0)
	if err != nil {
		t.Fatalf("PlanAllocation: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("plan = %+v", plan)
	}
	if plan[0].WarehouseId != 2 || !plan[0].Quantity.Equal(dec("8")) {
		t.Fatalf("first allocation = %+v", plan[0])
	}
	if plan[1].WarehouseId != 1 || !plan[1].Quantity.Equal(dec("2")) {
		t.Fatalf("second allocation = %+v", plan[1])
	}
}

func TestPlanAllocation_PreferredWarehouse(t *testing.T) {
	stocks := []models.WarehouseStock{
		{StockId: 1, WarehouseId: 1, Quantity: dec("3")},
		{StockId: 2, WarehouseId: 2, Quantity: dec("8")},
	}
	plan, err := models.PlanAllocation(dec("4"), stocks, 1)
	if err != nil {
		t.Fatalf("PlanAllocation: %v", err)
	}
	if len(plan) != 2 || plan[0].WarehouseId != 1 || !plan[0].Quantity.Equal(dec("3")) || !plan[1].Quantity.Equal(dec("1")) {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestPlanAllocation_TieBreaksByWarehouseId(t *testing.T) {
	stocks := []models.WarehouseStock{
		{StockId: 7, WarehouseId: 4, Quantity: dec("5")},
		{StockId: 8, WarehouseId: 2, Quantity: dec("5")},
	}
	plan, err := models.PlanAllocation(dec("5"), stocks, 0)
	if err != nil {
		t.Fatalf("PlanAllocation: %v", err)
	}
	if len(plan) != 1 || plan[0].WarehouseId != 2 {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestPlanAllocation_Errors(t *testing.T) {
	stocks := []models.WarehouseStock{{StockId: 1, WarehouseId: 1, Quantity: dec("3")}}
	if _, err := models.PlanAllocation(dec("4"), stocks, 0); utils.KindOf(err) != utils.KindInsufficientStock {
		t.Fatalf("short: expected InsufficientStock, got %v", err)
	}
	if _, err := models.PlanAllocation(dec("0"), stocks, 0); utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("zero: expected ValidationError, got %v", err)
	}
}
