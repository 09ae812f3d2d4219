package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Stock is the on-hand quantity of one item in one warehouse. Quantity only
// changes through the atomic statements in this file.
type Stock struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ItemId      int             `gorm:"not null;uniqueIndex:idx_stock_item_warehouse,priority:1" json:"item_id"`
	WarehouseId int             `gorm:"not null;uniqueIndex:idx_stock_item_warehouse,priority:2;index" json:"warehouse_id"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	Version     int             `gorm:"not null;default:0" json:"version"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// StockMovement is the append-only ledger of stock changes.
type StockMovement struct {
	ID            int                `gorm:"primary_key" json:"id"`
	ItemId        int                `gorm:"not null;index" json:"item_id"`
	WarehouseId   int                `gorm:"not null;index" json:"warehouse_id"`
	Quantity      decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"quantity"`
	ReferenceType StockReferenceType `gorm:"size:30;not null;index:idx_stock_movement_ref,priority:1" json:"reference_type"`
	ReferenceId   int                `gorm:"not null;index:idx_stock_movement_ref,priority:2" json:"reference_id"`
	Reference     string             `gorm:"size:255" json:"reference"`
	CreatedById   int                `gorm:"not null" json:"created_by_id"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
}

type NewStockReceipt struct {
	ItemId      int             `json:"item_id" binding:"required" validate:"required,gt=0"`
	WarehouseId int             `json:"warehouse_id" binding:"required" validate:"required,gt=0"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reference   string          `json:"reference" validate:"max=255"`
}

// WarehouseStock is one row of a stock snapshot fed to reconciliation.
type WarehouseStock struct {
	StockId     int             `json:"stock_id"`
	WarehouseId int             `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

func stocksToSnapshot(stocks []Stock) []WarehouseStock {
	out := make([]WarehouseStock, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, WarehouseStock{StockId: s.ID, WarehouseId: s.WarehouseId, Quantity: s.Quantity})
	}
	return out
}

// ReceiveStock books a goods receipt: the stock row is created on first use and
// incremented atomically, with a movement row in the same transaction.
func ReceiveStock(ctx context.Context, input *NewStockReceipt) (*Stock, error) {
	actor, err := authorizeContext(ctx, ActionReceiveStock)
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
	stock, err := lockOrCreateStock(tx, input.ItemId, input.WarehouseId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := incrementStock(tx, stock.ID, input.Quantity); err != nil {
		tx.Rollback()
		return nil, err
	}
	movement := StockMovement{
		ItemId:        input.ItemId,
		WarehouseId:   input.WarehouseId,
		Quantity:      input.Quantity,
		ReferenceType: StockReferenceReceipt,
		ReferenceId:   stock.ID,
		Reference:     input.Reference,
		CreatedById:   actor.Id,
	}
	if err := tx.Create(&movement).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.First(stock, stock.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return stock, nil
}

// lockOrCreateStock returns the (item, warehouse) row locked FOR UPDATE, inserting it when missing.
func lockOrCreateStock(tx *gorm.DB, itemId int, warehouseId int) (*Stock, error) {
	var stock Stock
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("item_id = ? AND warehouse_id = ?", itemId, warehouseId).
		First(&stock).Error
	if err == nil {
		return &stock, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	stock = Stock{ItemId: itemId, WarehouseId: warehouseId, Quantity: decimal.Zero}
	if err := tx.Create(&stock).Error; err != nil {
		if !utils.IsDuplicateKeyError(err) {
			return nil, err
		}
		// lost the insert race; the row exists now
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("item_id = ? AND warehouse_id = ?", itemId, warehouseId).
			First(&stock).Error; err != nil {
			return nil, err
		}
	}
	return &stock, nil
}

func incrementStock(tx *gorm.DB, stockId int, qty decimal.Decimal) error {
	return tx.Exec("UPDATE stocks SET quantity = quantity + ?, version = version + 1, updated_at = ? WHERE id = ?",
		qty, time.Now().UTC(), stockId).Error
}

// decrementStock is the floor-checked compare-and-swap: it only succeeds while the
// row still holds at least qty, so two concurrent issues can never overdraw it.
func decrementStock(tx *gorm.DB, stockId int, qty decimal.Decimal) error {
	res := tx.Exec("UPDATE stocks SET quantity = quantity - ?, version = version + 1, updated_at = ? WHERE id = ? AND quantity >= ?",
		qty, time.Now().UTC(), stockId, qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return utils.NewInsufficientStock("stock row %d no longer holds %s", stockId, qty.String())
	}
	return nil
}

// lockItemStocks locks every stock row of an item, most-stocked first.
func lockItemStocks(tx *gorm.DB, itemId int) ([]Stock, error) {
	var stocks []Stock
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("item_id = ?", itemId).
		Order("quantity DESC, id ASC").
		Find(&stocks).Error
	return stocks, err
}

// loadStockSnapshot reads current per-warehouse stock for items, without locks.
func loadStockSnapshot(tx *gorm.DB, itemIds []int) (map[int][]WarehouseStock, error) {
	snapshot := make(map[int][]WarehouseStock)
	itemIds = utils.UniqueSlice(itemIds)
	if len(itemIds) == 0 {
		return snapshot, nil
	}
	var stocks []Stock
	if err := tx.Where("item_id IN ?", itemIds).Order("item_id, quantity DESC, id").Find(&stocks).Error; err != nil {
		return nil, err
	}
	for _, s := range stocks {
		snapshot[s.ItemId] = append(snapshot[s.ItemId], WarehouseStock{
			StockId:     s.ID,
			WarehouseId: s.WarehouseId,
			Quantity:    s.Quantity,
		})
	}
	return snapshot, nil
}

// TotalStock sums quantities across warehouses.
func TotalStock(stocks []WarehouseStock) decimal.Decimal {
	total := decimal.Zero
	for _, s := range stocks {
		total = total.Add(s.Quantity)
	}
	return total
}

func GetItemStocks(ctx context.Context, itemId int) ([]*Stock, error) {
	db := config.GetDB()
	if err := utils.ValidateResourceId[Item](ctx, db, "item", itemId); err != nil {
		return nil, err
	}
	var results []*Stock
	if err := db.WithContext(ctx).Where("item_id = ?", itemId).Order("quantity DESC, id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
