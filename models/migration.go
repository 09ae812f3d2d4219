package models

import (
	"github.com/mmdatafocus/workorder_backend/config"
	"gorm.io/gorm"
)

func MigrateTable() {
	if err := AutoMigrate(config.GetDB()); err != nil {
		config.LogError(config.GetLogger(), "Models", "MigrateTable", "auto migrate", nil, err)
		panic(err)
	}
}

// AutoMigrate creates or updates every table owned by this service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Item{},
		&Warehouse{},
		&Stock{},
		&StockMovement{},
		&Bom{},
		&BomItem{},
		&SalesOrder{},
		&SalesOrderDetail{},
		&DocumentSequence{},
		&WorkOrder{},
		&WorkOrderItem{},
		&WorkOrderAmendment{},
		&StatusHistoryEntry{},
		&DispositionResolution{},
		&MaterialIssue{},
		&MaterialIssueLine{},
		&PurchaseRequest{},
		&PurchaseRequestLine{},
		&WorkOrderEventRecord{},
	)
}
