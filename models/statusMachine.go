package models

import (
	"github.com/mmdatafocus/workorder_backend/utils"
)

// TrackState is the three department statuses of one work order.
type TrackState struct {
	Engineering EngineeringStatus
	Inventory   InventoryStatus
	Production  ProductionStatus
}

func (wo WorkOrder) TrackState() TrackState {
	return TrackState{
		Engineering: wo.EngineeringStatus,
		Inventory:   wo.InventoryStatus,
		Production:  wo.ProductionStatus,
	}
}

var engineeringEdges = map[EngineeringStatus][]EngineeringStatus{
	EngineeringStatusPendingApproval: {EngineeringStatusApproved, EngineeringStatusRevise},
	EngineeringStatusRevise:          {EngineeringStatusPendingApproval, EngineeringStatusApproved},
}

var inventoryEdges = map[InventoryStatus][]InventoryStatus{
	InventoryStatusPendingApproval:   {InventoryStatusBarangSiap, InventoryStatusBarangSiapParsial, InventoryStatusAntrian},
	InventoryStatusAntrian:           {InventoryStatusBarangSiapParsial, InventoryStatusBarangSiap},
	InventoryStatusBarangSiapParsial: {InventoryStatusBarangSiap, InventoryStatusAntrian},
}

// IsValidStatus reports whether status belongs to the vocabulary of dept.
func IsValidStatus(dept Department, status string) bool {
	switch dept {
	case DepartmentEngineering:
		switch EngineeringStatus(status) {
		case EngineeringStatusPendingApproval, EngineeringStatusApproved, EngineeringStatusRevise:
			return true
		}
	case DepartmentInventory:
		switch InventoryStatus(status) {
		case InventoryStatusPendingApproval, InventoryStatusBarangSiap, InventoryStatusBarangSiapParsial, InventoryStatusAntrian:
			return true
		}
	case DepartmentManufacture:
		for _, s := range productionSequence {
			if string(s) == status {
				return true
			}
		}
	}
	return false
}

// NextProductionStatus returns the single step production may move to, false at Terkirim.
func NextProductionStatus(current ProductionStatus) (ProductionStatus, bool) {
	for i, s := range productionSequence {
		if s == current && i+1 < len(productionSequence) {
			return productionSequence[i+1], true
		}
	}
	return "", false
}

// AllowedTransitions lists the statuses dept may move to from state, ignoring the cross-track gate.
func AllowedTransitions(state TrackState, dept Department) []string {
	var out []string
	switch dept {
	case DepartmentEngineering:
		for _, s := range engineeringEdges[state.Engineering] {
			out = append(out, string(s))
		}
	case DepartmentInventory:
		for _, s := range inventoryEdges[state.Inventory] {
			out = append(out, string(s))
		}
	case DepartmentManufacture:
		if next, ok := NextProductionStatus(state.Production); ok {
			out = append(out, string(next))
		}
	}
	return out
}

// CurrentStatus returns the status dept currently holds.
func (s TrackState) CurrentStatus(dept Department) string {
	switch dept {
	case DepartmentEngineering:
		return string(s.Engineering)
	case DepartmentInventory:
		return string(s.Inventory)
	case DepartmentManufacture:
		return string(s.Production)
	}
	return ""
}

// CheckTrackGate is the cross-track precondition: inventory waits for engineering
// approval, production may only leave Tunggu Antrian once inventory declared readiness.
func CheckTrackGate(state TrackState, dept Department) error {
	switch dept {
	case DepartmentInventory:
		if state.Engineering != EngineeringStatusApproved {
			return utils.NewPreconditionFailed("inventory decision requires engineering %q, current engineering status is %q",
				EngineeringStatusApproved, state.Engineering)
		}
	case DepartmentManufacture:
		if state.Production == ProductionStatusTungguAntrian && !state.Inventory.IsReady() {
			return utils.NewPreconditionFailed("production cannot leave %q while inventory status is %q",
				ProductionStatusTungguAntrian, state.Inventory)
		}
	}
	return nil
}

// checkReadinessKept refuses to withdraw inventory readiness once production has
// left Tunggu Antrian on the strength of it. Moving up to Barang Siap stays allowed.
func checkReadinessKept(state TrackState, dept Department, to string) error {
	if dept != DepartmentInventory || state.Production == ProductionStatusTungguAntrian {
		return nil
	}
	if !InventoryStatus(to).IsReady() {
		return utils.NewPreconditionFailed("inventory cannot move to %q while production is %q",
			to, state.Production)
	}
	return nil
}

// isTerminal covers the one-way latches: Approved, Barang Siap and Terkirim.
func isTerminal(state TrackState, dept Department) bool {
	switch dept {
	case DepartmentEngineering:
		return state.Engineering == EngineeringStatusApproved
	case DepartmentInventory:
		return state.Inventory == InventoryStatusBarangSiap
	case DepartmentManufacture:
		return state.Production == ProductionStatusTerkirim
	}
	return false
}

// ValidateTransition checks a requested move of dept to status `to` in this order:
// vocabulary (ValidationError), cross-track gate (PreconditionFailed), latch (Conflict),
// readiness withdrawal under running production (PreconditionFailed), allowed edge (ValidationError).
func ValidateTransition(state TrackState, dept Department, to string) error {
	if !dept.IsValid() {
		return utils.NewValidationError("unknown department %q", dept)
	}
	if !IsValidStatus(dept, to) {
		return utils.NewValidationError("%q is not a %s status", to, dept)
	}
	if err := CheckTrackGate(state, dept); err != nil {
		return err
	}
	current := state.CurrentStatus(dept)
	if isTerminal(state, dept) {
		return utils.NewConflict("%s status is already %q and cannot change", dept, current)
	}
	if current == to {
		return utils.NewValidationError("%s status is already %q", dept, current)
	}
	if err := checkReadinessKept(state, dept, to); err != nil {
		return err
	}
	for _, allowed := range AllowedTransitions(state, dept) {
		if allowed == to {
			return nil
		}
	}
	if dept == DepartmentManufacture {
		next, _ := NextProductionStatus(state.Production)
		return utils.NewValidationError("production must advance one step from %q to %q, not to %q", current, next, to)
	}
	return utils.NewValidationError("%s cannot move from %q to %q", dept, current, to)
}

// DeriveOverallStatus projects the three tracks onto the single label users see.
func DeriveOverallStatus(eng EngineeringStatus, inv InventoryStatus, prod ProductionStatus) OverallStatus {
	switch prod {
	case ProductionStatusProses:
		return OverallStatusProses
	case ProductionStatusQC:
		return OverallStatusQC
	case ProductionStatusTerkirim:
		return OverallStatusTerkirim
	}
	if eng != EngineeringStatusApproved {
		return OverallStatusDraft
	}
	if inv == InventoryStatusPendingApproval || inv == "" {
		return OverallStatusPendingInventory
	}
	return OverallStatusTungguAntrian
}
