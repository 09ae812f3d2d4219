package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
	"gorm.io/gorm"
)

// StatusHistoryEntry is one department transition. Rows are only ever inserted;
// they disappear solely through the work order's cascade delete.
type StatusHistoryEntry struct {
	ID            int        `gorm:"primary_key" json:"id"`
	WorkOrderId   int        `gorm:"not null;index:idx_status_history_wo,priority:1" json:"work_order_id"`
	Department    Department `gorm:"size:20;not null;index:idx_status_history_wo,priority:2" json:"department"`
	FromStatus    string     `gorm:"size:30;not null" json:"from_status"`
	ToStatus      string     `gorm:"size:30;not null" json:"to_status"`
	ChangedById   int        `gorm:"not null" json:"changed_by_id"`
	ChangedByName string     `gorm:"size:100" json:"changed_by_name"`
	ChangedAt     time.Time  `gorm:"not null" json:"changed_at"`
	Notes         string     `gorm:"type:text" json:"notes"`
}

func (StatusHistoryEntry) BeforeUpdate(tx *gorm.DB) error {
	return utils.NewConflict("status history is append-only")
}

func appendStatusHistory(tx *gorm.DB, workOrderId int, dept Department, from string, to string, actor utils.Actor, notes string) (*StatusHistoryEntry, error) {
	entry := StatusHistoryEntry{
		WorkOrderId:   workOrderId,
		Department:    dept,
		FromStatus:    from,
		ToStatus:      to,
		ChangedById:   actor.Id,
		ChangedByName: actor.Name,
		ChangedAt:     time.Now().UTC(),
		Notes:         notes,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func GetStatusHistory(ctx context.Context, workOrderId int) ([]*StatusHistoryEntry, error) {
	db := config.GetDB()
	if err := utils.ValidateResourceId[WorkOrder](ctx, db, "work order", workOrderId); err != nil {
		return nil, err
	}
	return listStatusHistory(db.WithContext(ctx), workOrderId)
}

func listStatusHistory(tx *gorm.DB, workOrderId int) ([]*StatusHistoryEntry, error) {
	var entries []*StatusHistoryEntry
	err := tx.Where("work_order_id = ?", workOrderId).Order("changed_at, id").Find(&entries).Error
	return entries, err
}

// isSignOff tells which history entries count as a department's approval for audit display.
func isSignOff(dept Department, toStatus string) bool {
	switch dept {
	case DepartmentEngineering:
		return toStatus == string(EngineeringStatusApproved)
	case DepartmentInventory:
		return toStatus != string(InventoryStatusPendingApproval)
	case DepartmentManufacture:
		return true
	}
	return false
}

// LatestApprovals picks the most recent sign-off entry per department from an ordered history.
func LatestApprovals(entries []*StatusHistoryEntry) map[Department]*StatusHistoryEntry {
	latest := make(map[Department]*StatusHistoryEntry)
	for _, e := range entries {
		if !isSignOff(e.Department, e.ToStatus) {
			continue
		}
		prev, ok := latest[e.Department]
		if !ok || e.ChangedAt.After(prev.ChangedAt) || (e.ChangedAt.Equal(prev.ChangedAt) && e.ID > prev.ID) {
			latest[e.Department] = e
		}
	}
	return latest
}
