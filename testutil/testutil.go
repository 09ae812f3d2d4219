// Package testutil wires an in-memory SQLite database into config so model and
// API tests run without MySQL or Redis.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTestDB opens a private in-memory database, migrates it and installs it as
// the global connection for the duration of the test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	// one connection: transactions serialize instead of failing with SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	prev := config.GetDB()
	config.UseDB(db)
	config.UseRedis(nil)
	t.Cleanup(func() {
		config.UseDB(prev)
		_ = sqlDB.Close()
	})
	return db
}

// ActorContext returns a context carrying a user with the given role.
func ActorContext(id int, role models.UserRole) context.Context {
	return utils.WithActor(context.Background(), utils.Actor{
		Id:       id,
		Name:     fmt.Sprintf("%s user", role),
		Username: fmt.Sprintf("%s%d", role, id),
		Role:     string(role),
	})
}

// AdminContext is ActorContext for user 1 with the admin role.
func AdminContext() context.Context {
	return ActorContext(1, models.UserRoleAdmin)
}

func Dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// Fixture is a small catalogue: one sales order with a single line, a BOM
// with two components and two warehouses.
type Fixture struct {
	WarehouseA *models.Warehouse
	WarehouseB *models.Warehouse
	Steel      *models.Item
	Bolt       *models.Item
	Bom        *models.Bom
	SalesOrder *models.SalesOrder
}

// SeedFixture builds a Fixture. The sales order line has quantity parentQty and
// the BOM needs steelPerUnit of Steel and boltPerUnit of Bolt per unit.
func SeedFixture(t *testing.T, parentQty, steelPerUnit, boltPerUnit string) *Fixture {
	t.Helper()
	ctx := AdminContext()
	f := &Fixture{}
	var err error
	if f.WarehouseA, err = models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Main"}); err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	if f.WarehouseB, err = models.CreateWarehouse(ctx, &models.NewWarehouse{Name: "Annex"}); err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	if f.Steel, err = models.CreateItem(ctx, &models.NewItem{Code: "STL-01", Name: "Steel plate", Unit: "kg"}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if f.Bolt, err = models.CreateItem(ctx, &models.NewItem{Code: "BLT-01", Name: "Bolt M8", Unit: "pcs"}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	f.Bom, err = models.CreateBom(ctx, &models.NewBom{
		Code: "BOM-FRAME",
		Name: "Frame",
		Items: []models.NewBomItem{
			{ItemId: f.Steel.ID, QuantityRequired: Dec(steelPerUnit)},
			{ItemId: f.Bolt.ID, QuantityRequired: Dec(boltPerUnit)},
		},
	})
	if err != nil {
		t.Fatalf("CreateBom: %v", err)
	}
	f.SalesOrder, err = models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		OrderNumber:  "SO-0001",
		CustomerId:   7,
		CustomerName: "PT Maju",
		Details: []models.NewSalesOrderDetail{
			{Description: "Frame assembly", Specification: "galvanised", Quantity: Dec(parentQty)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}
	return f
}

// Receive books qty of item into warehouse.
func Receive(t *testing.T, itemId, warehouseId int, qty string) {
	t.Helper()
	_, err := models.ReceiveStock(AdminContext(), &models.NewStockReceipt{
		ItemId:      itemId,
		WarehouseId: warehouseId,
		Quantity:    Dec(qty),
		Reference:   "test receipt",
	})
	if err != nil {
		t.Fatalf("ReceiveStock: %v", err)
	}
}

// CreateApprovedWorkOrder creates a work order from the fixture's sales order,
// binds the BOM and approves engineering.
func CreateApprovedWorkOrder(t *testing.T, f *Fixture) *models.WorkOrder {
	t.Helper()
	ctx := AdminContext()
	wo, err := models.CreateWorkOrder(ctx, &models.NewWorkOrder{SalesOrderId: f.SalesOrder.ID})
	if err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}
	bomId := f.Bom.ID
	result, err := models.UpdateWorkOrderStatus(ctx, wo.ID, &models.StatusTransitionInput{
		Department: models.DepartmentEngineering,
		ToStatus:   string(models.EngineeringStatusApproved),
		BomBindings: []models.ItemBomBinding{
			{WorkOrderItemId: wo.Items[0].ID, BomId: bomId},
		},
	})
	if err != nil {
		t.Fatalf("approve engineering: %v", err)
	}
	return result.WorkOrder
}
