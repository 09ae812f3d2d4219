package models_test

import (
	"testing"

	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/utils"
)

func freshState() models.TrackState {
	return models.TrackState{
		Engineering: models.EngineeringStatusPendingApproval,
		Inventory:   models.InventoryStatusPendingApproval,
		Production:  models.ProductionStatusTungguAntrian,
	}
}

func TestValidateTransition_Engineering(t *testing.T) {
	state := freshState()
	if err := models.ValidateTransition(state, models.DepartmentEngineering, "Approved"); err != nil {
		t.Fatalf("approve from pending: %v", err)
	}
	if err := models.ValidateTransition(state, models.DepartmentEngineering, "Revise"); err != nil {
		t.Fatalf("revise from pending: %v", err)
	}

	state.Engineering = models.EngineeringStatusApproved
	err := models.ValidateTransition(state, models.DepartmentEngineering, "Approved")
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("re-approve: expected Conflict, got %v", err)
	}
	err = models.ValidateTransition(state, models.DepartmentEngineering, "Revise")
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("revise after approval: expected Conflict, got %v", err)
	}
}

func TestValidateTransition_InventoryGatedOnEngineering(t *testing.T) {
	state := freshState()
	err := models.ValidateTransition(state, models.DepartmentInventory, "Barang Siap")
	if utils.KindOf(err) != utils.KindPreconditionFailed {
		t.Fatalf("expected PreconditionFailed, got %v", err)
	}

	state.Engineering = models.EngineeringStatusApproved
	for _, to := range []string{"Barang Siap", "Barang Siap Parsial", "Antrian"} {
		if err := models.ValidateTransition(state, models.DepartmentInventory, to); err != nil {
			t.Fatalf("inventory -> %s: %v", to, err)
		}
	}

	state.Inventory = models.InventoryStatusBarangSiap
	err = models.ValidateTransition(state, models.DepartmentInventory, "Antrian")
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("leaving Barang Siap: expected Conflict, got %v", err)
	}
}

func TestValidateTransition_ProductionIsSequential(t *testing.T) {
	state := freshState()
	state.Engineering = models.EngineeringStatusApproved

	err := models.ValidateTransition(state, models.DepartmentManufacture, "Proses")
	if utils.KindOf(err) != utils.KindPreconditionFailed {
		t.Fatalf("start before inventory ready: expected PreconditionFailed, got %v", err)
	}

	state.Inventory = models.InventoryStatusBarangSiapParsial
	if err := models.ValidateTransition(state, models.DepartmentManufacture, "Proses"); err != nil {
		t.Fatalf("start with partial readiness: %v", err)
	}
	err = models.ValidateTransition(state, models.DepartmentManufacture, "QC")
	if utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("skip to QC: expected ValidationError, got %v", err)
	}

	state.Production = models.ProductionStatusQC
	err = models.ValidateTransition(state, models.DepartmentManufacture, "Proses")
	if utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("move backwards: expected ValidationError, got %v", err)
	}
	if err := models.ValidateTransition(state, models.DepartmentManufacture, "Terkirim"); err != nil {
		t.Fatalf("QC -> Terkirim: %v", err)
	}

	state.Production = models.ProductionStatusTerkirim
	err = models.ValidateTransition(state, models.DepartmentManufacture, "QC")
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("after Terkirim: expected Conflict, got %v", err)
	}
}

func TestValidateTransition_UnknownValues(t *testing.T) {
	state := freshState()
	if err := models.ValidateTransition(state, "finance", "Approved"); utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("unknown department: expected ValidationError, got %v", err)
	}
	if err := models.ValidateTransition(state, models.DepartmentEngineering, "Barang Siap"); utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("foreign status: expected ValidationError, got %v", err)
	}
	if err := models.ValidateTransition(state, models.DepartmentEngineering, "Pending Approval"); utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("same status: expected ValidationError, got %v", err)
	}
}

func TestDeriveOverallStatus(t *testing.T) {
	cases := []struct {
		eng  models.EngineeringStatus
		inv  models.InventoryStatus
		prod models.ProductionStatus
		want models.OverallStatus
	}{
		{models.EngineeringStatusPendingApproval, models.InventoryStatusPendingApproval, models.ProductionStatusTungguAntrian, models.OverallStatusDraft},
		{models.EngineeringStatusRevise, models.InventoryStatusPendingApproval, models.ProductionStatusTungguAntrian, models.OverallStatusDraft},
		{models.EngineeringStatusApproved, models.InventoryStatusPendingApproval, models.ProductionStatusTungguAntrian, models.OverallStatusPendingInventory},
		{models.EngineeringStatusApproved, models.InventoryStatusAntrian, models.ProductionStatusTungguAntrian, models.OverallStatusTungguAntrian},
		{models.EngineeringStatusApproved, models.InventoryStatusBarangSiap, models.ProductionStatusProses, models.OverallStatusProses},
		{models.EngineeringStatusApproved, models.InventoryStatusBarangSiap, models.ProductionStatusQC, models.OverallStatusQC},
		{models.EngineeringStatusApproved, models.InventoryStatusBarangSiap, models.ProductionStatusTerkirim, models.OverallStatusTerkirim},
	}
	for _, tc := range cases {
		if got := models.DeriveOverallStatus(tc.eng, tc.inv, tc.prod); got != tc.want {
			t.Errorf("DeriveOverallStatus(%s, %s, %s) = %s, want %s", tc.eng, tc.inv, tc.prod, got, tc.want)
		}
	}
}

func TestAllowedTransitions(t *testing.T) {
	state := freshState()
	got := models.AllowedTransitions(state, models.DepartmentManufacture)
	if len(got) != 1 || got[0] != "Proses" {
		t.Fatalf("manufacture from Tunggu Antrian: %v", got)
	}
	state.Production = models.ProductionStatusTerkirim
	if got := models.AllowedTransitions(state, models.DepartmentManufacture); len(got) != 0 {
		t.Fatalf("manufacture from Terkirim: %v", got)
	}
}

func TestValidateTransition_InventoryKeepsReadinessOnceProductionStarted(t *testing.T) {
	state := models.TrackState{
		Engineering: models.EngineeringStatusApproved,
		Inventory:   models.InventoryStatusBarangSiapParsial,
		Production:  models.ProductionStatusTungguAntrian,
	}
	if err := models.ValidateTransition(state, models.DepartmentInventory, "Antrian"); err != nil {
		t.Fatalf("back to Antrian before production started: %v", err)
	}

	state.Production = models.ProductionStatusProses
	err := models.ValidateTransition(state, models.DepartmentInventory, "Antrian")
	if utils.KindOf(err) != utils.KindPreconditionFailed {
		t.Fatalf("back to Antrian while Proses: expected PreconditionFailed, got %v", err)
	}
	if err := models.ValidateTransition(state, models.DepartmentInventory, "Barang Siap"); err != nil {
		t.Fatalf("Parsial -> Barang Siap while Proses: %v", err)
	}
}
