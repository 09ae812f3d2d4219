package models

import (
	"sort"

	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/shopspring/decimal"
)

// Allocation is the quantity taken from one stock row by a material issue.
type Allocation struct {
	StockId     int             `json:"stock_id"`
	WarehouseId int             `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// PlanAllocation splits required across warehouses, draining the most-stocked
// warehouse first (ties by warehouse id). A positive preferredWarehouseId is
// drained before all others. It fails with InsufficientStock when the
// warehouses together hold less than required.
func PlanAllocation(required decimal.Decimal, stocks []WarehouseStock, preferredWarehouseId int) ([]Allocation, error) {
	if !required.IsPositive() {
		return nil, utils.NewValidationError("required quantity must be greater than zero, got %s", required.String())
	}
	available := TotalStock(stocks)
	if available.LessThan(required) {
		return nil, utils.NewInsufficientStock("required %s, available %s (shortfall %s)",
			required.String(), available.String(), required.Sub(available).String())
	}

	ordered := append([]WarehouseStock(nil), stocks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if preferredWarehouseId > 0 && (a.WarehouseId == preferredWarehouseId) != (b.WarehouseId == preferredWarehouseId) {
			return a.WarehouseId == preferredWarehouseId
		}
		if !a.Quantity.Equal(b.Quantity) {
			return a.Quantity.GreaterThan(b.Quantity)
		}
		return a.WarehouseId < b.WarehouseId
	})

	remaining := required
	var plan []Allocation
	for _, s := range ordered {
		if !remaining.IsPositive() {
			break
		}
		if !s.Quantity.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, s.Quantity)
		plan = append(plan, Allocation{StockId: s.StockId, WarehouseId: s.WarehouseId, Quantity: take})
		remaining = remaining.Sub(take)
	}
	return plan, nil
}
