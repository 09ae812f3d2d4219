package models_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/testutil"
	"github.com/mmdatafocus/workorder_backend/utils"
)

func transition(t *testing.T, woId int, dept models.Department, to string) *models.StatusTransitionResult {
	t.Helper()
	result, err := models.UpdateWorkOrderStatus(testutil.AdminContext(), woId, &models.StatusTransitionInput{
		Department: dept,
		ToStatus:   to,
	})
	if err != nil {
		t.Fatalf("%s -> %s: %v", dept, to, err)
	}
	return result
}

func bomSelection(wo *models.WorkOrder, f *testutil.Fixture, bomItemIdx ...int) *models.DispositionSelection {
	sel := &models.DispositionSelection{}
	for _, i := range bomItemIdx {
		sel.BomLines = append(sel.BomLines, models.BomLineRef{
			WorkOrderItemId: wo.Items[0].ID,
			BomItemId:       f.Bom.Items[i].ID,
		})
	}
	return sel
}

func stockOf(t *testing.T, itemId, warehouseId int) string {
	t.Helper()
	var stock models.Stock
	if err := config.GetDB().Where("item_id = ? AND warehouse_id = ?", itemId, warehouseId).First(&stock).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	return stock.Quantity.String()
}

func TestWorkOrderLifecycle(t *testing.T) {
	testutil.NewTestDB(t)
	// steel needs 2 x 5 = 10, bolts need 4 x 5 = 20
	f := testutil.SeedFixture(t, "5", "2", "4")
	testutil.Receive(t, f.Steel.ID, f.WarehouseA.ID, "4")
	testutil.Receive(t, f.Steel.ID, f.WarehouseB.ID, "3")
	testutil.Receive(t, f.Bolt.ID, f.WarehouseA.ID, "25")

	ctx := testutil.AdminContext()
	wo, err := models.CreateWorkOrder(ctx, &models.NewWorkOrder{SalesOrderId: f.SalesOrder.ID})
	if err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}
	if !strings.HasPrefix(wo.WoNumber, "WO-") {
		t.Fatalf("wo number = %q", wo.WoNumber)
	}
	if wo.Status != models.OverallStatusDraft || len(wo.Items) != 1 {
		t.Fatalf("new work order: status=%s items=%d", wo.Status, len(wo.Items))
	}

	_, err = models.UpdateWorkOrderStatus(ctx, wo.ID, &models.StatusTransitionInput{
		Department: models.DepartmentInventory,
		ToStatus:   string(models.InventoryStatusBarangSiap),
	})
	if utils.KindOf(err) != utils.KindPreconditionFailed {
		t.Fatalf("inventory before approval: expected PreconditionFailed, got %v", err)
	}

	_, err = models.UpdateWorkOrderStatus(ctx, wo.ID, &models.StatusTransitionInput{
		Department: models.DepartmentEngineering,
		ToStatus:   string(models.EngineeringStatusApproved),
	})
	if utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("approve without bom: expected ValidationError, got %v", err)
	}

	wo = testutil.CreateApprovedWorkOrder(t, f)
	if wo.Status != models.OverallStatusPendingInventory {
		t.Fatalf("after approval: status=%s", wo.Status)
	}
	if wo.Approvals[models.DepartmentEngineering] == nil {
		t.Fatal("engineering approval is not reported")
	}

	rec, err := models.GetWorkOrderReconciliation(ctx, wo.ID)
	if err != nil {
		t.Fatalf("GetWorkOrderReconciliation: %v", err)
	}
	if len(rec.BomLines) != 2 {
		t.Fatalf("bom lines = %d", len(rec.BomLines))
	}
	steel, bolt := rec.BomLines[0], rec.BomLines[1]
	if steel.Classification != models.ClassificationInsufficient || !steel.Shortfall.Equal(dec("3")) {
		t.Fatalf("steel line = %+v", steel.LineReconciliation)
	}
	if bolt.Classification != models.ClassificationSufficient {
		t.Fatalf("bolt line = %+v", bolt.LineReconciliation)
	}

	issue, err := models.GenerateMaterialIssue(ctx, wo.ID, bomSelection(wo, f, 0, 1))
	if err != nil {
		t.Fatalf("GenerateMaterialIssue: %v", err)
	}
	if issue.DocumentId == nil || !strings.HasPrefix(issue.DocumentNumber, "MI-") {
		t.Fatalf("material issue document = %v %q", issue.DocumentId, issue.DocumentNumber)
	}
	if issue.SucceededCount() != 1 || issue.FirstFailureKind() != utils.KindInsufficientStock {
		t.Fatalf("issue lines = %+v", issue.Lines)
	}
	if got := stockOf(t, f.Bolt.ID, f.WarehouseA.ID); got != "5" {
		t.Fatalf("bolt stock after issue = %s, want 5", got)
	}
	if got := stockOf(t, f.Steel.ID, f.WarehouseA.ID); got != "4" {
		t.Fatalf("steel stock must be untouched, got %s", got)
	}

	again, err := models.GenerateMaterialIssue(ctx, wo.ID, bomSelection(wo, f, 1))
	if err != nil {
		t.Fatalf("GenerateMaterialIssue again: %v", err)
	}
	if again.DocumentId != nil || again.FirstFailureKind() != utils.KindConflict {
		t.Fatalf("re-issue = %+v", again)
	}

	request, err := models.GeneratePurchaseRequest(ctx, wo.ID, bomSelection(wo, f, 0, 1))
	if err != nil {
		t.Fatalf("GeneratePurchaseRequest: %v", err)
	}
	if request.DocumentId == nil || !strings.HasPrefix(request.DocumentNumber, "PR-") {
		t.Fatalf("purchase request document = %v %q", request.DocumentId, request.DocumentNumber)
	}
	var requested, skipped int
	for _, l := range request.Lines {
		switch l.Status {
		case models.DispositionLineRequested:
			requested++
			if !l.Quantity.Equal(dec("3")) {
				t.Fatalf("requested quantity = %s, want shortfall 3", l.Quantity)
			}
		case models.DispositionLineSkipped:
			skipped++
		}
	}
	if requested != 1 || skipped != 1 {
		t.Fatalf("purchase request lines = %+v", request.Lines)
	}
	prs, err := models.ListPurchaseRequests(ctx, wo.ID)
	if err != nil || len(prs) != 1 || len(prs[0].Lines) != 1 {
		t.Fatalf("ListPurchaseRequests = %v, %v", prs, err)
	}

	transition(t, wo.ID, models.DepartmentInventory, string(models.InventoryStatusBarangSiapParsial))
	transition(t, wo.ID, models.DepartmentManufacture, string(models.ProductionStatusProses))
	transition(t, wo.ID, models.DepartmentManufacture, string(models.ProductionStatusQC))
	final := transition(t, wo.ID, models.DepartmentManufacture, string(models.ProductionStatusTerkirim))
	if final.WorkOrder.Status != models.OverallStatusTerkirim {
		t.Fatalf("final status = %s", final.WorkOrder.Status)
	}
	if !final.WorkOrder.HasMaterialIssue {
		t.Fatal("has_material_issue not set")
	}

	history, err := models.GetStatusHistory(ctx, wo.ID)
	if err != nil {
		t.Fatalf("GetStatusHistory: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("history entries = %d, want 5", len(history))
	}
	last := history[len(history)-1]
	if last.FromStatus != string(models.ProductionStatusQC) || last.ToStatus != string(models.ProductionStatusTerkirim) {
		t.Fatalf("last history entry = %+v", last)
	}

	_, err = models.UpdateWorkOrderStatus(ctx, wo.ID, &models.StatusTransitionInput{
		Department: models.DepartmentManufacture,
		ToStatus:   string(models.ProductionStatusQC),
	})
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("after Terkirim: expected Conflict, got %v", err)
	}
}

func TestUpdateWorkOrderStatus_NotesAndVersion(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "1", "1")
	wo := testutil.CreateApprovedWorkOrder(t, f)

	stale := wo.Version - 1
	_, err := models.UpdateWorkOrderStatus(testutil.AdminContext(), wo.ID, &models.StatusTransitionInput{
		Department:      models.DepartmentInventory,
		ToStatus:        string(models.InventoryStatusAntrian),
		ExpectedVersion: &stale,
	})
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("stale version: expected Conflict, got %v", err)
	}

	ctx := testutil.ActorContext(3, models.UserRoleInventory)
	result, err := models.UpdateWorkOrderStatus(ctx, wo.ID, &models.StatusTransitionInput{
		Department:      models.DepartmentInventory,
		ToStatus:        string(models.InventoryStatusAntrian),
		Notes:           "waiting for steel",
		ExpectedVersion: &wo.Version,
	})
	if err != nil {
		t.Fatalf("inventory -> Antrian: %v", err)
	}
	if result.WorkOrder.Version != wo.Version+1 {
		t.Fatalf("version = %d, want %d", result.WorkOrder.Version, wo.Version+1)
	}
	if !strings.Contains(result.WorkOrder.Notes, "[Inventory] inventory user: waiting for steel") {
		t.Fatalf("notes = %q", result.WorkOrder.Notes)
	}
	if result.History.Notes != "waiting for steel" {
		t.Fatalf("history notes = %q", result.History.Notes)
	}
}

func TestUpdateWorkOrderStatus_RoleMatrix(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "1", "1")
	wo := testutil.CreateApprovedWorkOrder(t, f)

	ctx := testutil.ActorContext(4, models.UserRoleEngineering)
	_, err := models.UpdateWorkOrderStatus(ctx, wo.ID, &models.StatusTransitionInput{
		Department: models.DepartmentInventory,
		ToStatus:   string(models.InventoryStatusBarangSiap),
	})
	if utils.KindOf(err) != utils.KindUnauthorized {
		t.Fatalf("engineering on inventory track: expected Unauthorized, got %v", err)
	}

	_, err = models.GenerateMaterialIssue(testutil.ActorContext(5, models.UserRoleSales), wo.ID, bomSelection(wo, f, 0))
	if utils.KindOf(err) != utils.KindUnauthorized {
		t.Fatalf("sales issuing material: expected Unauthorized, got %v", err)
	}

	history, err := models.GetStatusHistory(testutil.AdminContext(), wo.ID)
	if err != nil || len(history) != 1 {
		t.Fatalf("rejected transitions must not write history: %d, %v", len(history), err)
	}
}

func TestStrictInventoryReadiness(t *testing.T) {
	testutil.NewTestDB(t)
	t.Setenv("STRICT_INVENTORY_READINESS", "true")
	f := testutil.SeedFixture(t, "2", "1", "1")
	testutil.Receive(t, f.Bolt.ID, f.WarehouseA.ID, "2")
	wo := testutil.CreateApprovedWorkOrder(t, f)

	_, err := models.UpdateWorkOrderStatus(testutil.AdminContext(), wo.ID, &models.StatusTransitionInput{
		Department: models.DepartmentInventory,
		ToStatus:   string(models.InventoryStatusBarangSiap),
	})
	if utils.KindOf(err) != utils.KindPreconditionFailed {
		t.Fatalf("steel missing: expected PreconditionFailed, got %v", err)
	}

	testutil.Receive(t, f.Steel.ID, f.WarehouseB.ID, "2")
	transition(t, wo.ID, models.DepartmentInventory, string(models.InventoryStatusBarangSiap))
}

func TestDeleteWorkOrder(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "2", "1")
	testutil.Receive(t, f.Steel.ID, f.WarehouseA.ID, "5")
	wo := testutil.CreateApprovedWorkOrder(t, f)
	ctx := testutil.AdminContext()

	issue, err := models.GenerateMaterialIssue(ctx, wo.ID, bomSelection(wo, f, 0))
	if err != nil || issue.DocumentId == nil {
		t.Fatalf("GenerateMaterialIssue: %+v, %v", issue, err)
	}
	if _, err := models.DeleteWorkOrder(ctx, wo.ID); utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("delete with posted issue: expected Conflict, got %v", err)
	}

	reversed, err := models.ReverseMaterialIssue(ctx, *issue.DocumentId)
	if err != nil {
		t.Fatalf("ReverseMaterialIssue: %v", err)
	}
	if reversed.Status != models.MaterialIssueStatusReversed {
		t.Fatalf("status = %s", reversed.Status)
	}
	if got := stockOf(t, f.Steel.ID, f.WarehouseA.ID); got != "5" {
		t.Fatalf("steel stock after reversal = %s, want 5", got)
	}
	if _, err := models.ReverseMaterialIssue(ctx, *issue.DocumentId); utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("second reversal: expected Conflict, got %v", err)
	}

	if _, err := models.DeleteWorkOrder(testutil.ActorContext(2, models.UserRoleSales), wo.ID); utils.KindOf(err) != utils.KindUnauthorized {
		t.Fatalf("sales deleting: expected Unauthorized, got %v", err)
	}
	if _, err := models.DeleteWorkOrder(ctx, wo.ID); err != nil {
		t.Fatalf("DeleteWorkOrder: %v", err)
	}
	if _, err := models.GetWorkOrder(ctx, wo.ID); utils.KindOf(err) != utils.KindNotFound {
		t.Fatalf("deleted work order: expected NotFound, got %v", err)
	}
	var orphans int64
	config.GetDB().Model(&models.StatusHistoryEntry{}).Where("work_order_id = ?", wo.ID).Count(&orphans)
	if orphans != 0 {
		t.Fatalf("history rows left behind: %d", orphans)
	}
	if _, err := models.DeleteWorkOrder(ctx, wo.ID); utils.KindOf(err) != utils.KindNotFound {
		t.Fatalf("delete twice: expected NotFound, got %v", err)
	}
}

func TestMaterialIssue_ReissueAfterReversal(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "2", "1")
	testutil.Receive(t, f.Steel.ID, f.WarehouseA.ID, "2")
	wo := testutil.CreateApprovedWorkOrder(t, f)
	ctx := testutil.AdminContext()

	first, err := models.GenerateMaterialIssue(ctx, wo.ID, bomSelection(wo, f, 0))
	if err != nil || first.DocumentId == nil {
		t.Fatalf("first issue: %+v, %v", first, err)
	}
	if _, err := models.ReverseMaterialIssue(ctx, *first.DocumentId); err != nil {
		t.Fatalf("ReverseMaterialIssue: %v", err)
	}
	second, err := models.GenerateMaterialIssue(ctx, wo.ID, bomSelection(wo, f, 0))
	if err != nil || second.DocumentId == nil {
		t.Fatalf("issue after reversal: %+v, %v", second, err)
	}
	issues, err := models.ListMaterialIssues(ctx, wo.ID)
	if err != nil || len(issues) != 2 {
		t.Fatalf("ListMaterialIssues = %d, %v", len(issues), err)
	}
}

func TestMaterialIssue_ConcurrentIssueOfOneLine(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "3", "1")
	testutil.Receive(t, f.Steel.ID, f.WarehouseA.ID, "5")
	wo := testutil.CreateApprovedWorkOrder(t, f)

	results := make([]*models.DispositionResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = models.GenerateMaterialIssue(testutil.AdminContext(), wo.ID, bomSelection(wo, f, 0))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("GenerateMaterialIssue: %v", errs[i])
		}
		if results[i].DocumentId != nil {
			succeeded++
		} else if results[i].FirstFailureKind() != utils.KindConflict {
			t.Fatalf("losing request: %+v", results[i].Lines)
		}
	}
	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want 1", succeeded)
	}
	if got := stockOf(t, f.Steel.ID, f.WarehouseA.ID); got != "2" {
		t.Fatalf("steel stock = %s, want 2", got)
	}
}

func TestMaterialIssue_UnknownLineIsReportedPerLine(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "1", "1")
	testutil.Receive(t, f.Bolt.ID, f.WarehouseA.ID, "1")
	wo := testutil.CreateApprovedWorkOrder(t, f)

	sel := bomSelection(wo, f, 1)
	sel.BomLines = append(sel.BomLines, models.BomLineRef{WorkOrderItemId: wo.Items[0].ID, BomItemId: 9999})
	result, err := models.GenerateMaterialIssue(testutil.AdminContext(), wo.ID, sel)
	if err != nil {
		t.Fatalf("GenerateMaterialIssue: %v", err)
	}
	if result.DocumentId == nil || result.FirstFailureKind() != utils.KindNotFound {
		t.Fatalf("result = %+v", result)
	}

	if _, err := models.GenerateMaterialIssue(testutil.AdminContext(), wo.ID, &models.DispositionSelection{}); utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("empty selection: expected ValidationError, got %v", err)
	}
}

func TestAmendments(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "1", "1")
	testutil.Receive(t, f.Bolt.ID, f.WarehouseA.ID, "10")
	testutil.Receive(t, f.Bolt.ID, f.WarehouseB.ID, "2")
	wo := testutil.CreateApprovedWorkOrder(t, f)
	ctx := testutil.ActorContext(6, models.UserRoleInventory)

	amendment, err := models.AddAmendment(ctx, wo.ID, &models.NewAmendment{
		ItemId:      f.Bolt.ID,
		WarehouseId: f.WarehouseB.ID,
		Quantity:    dec("3"),
		Notes:       "spare bolts",
	})
	if err != nil {
		t.Fatalf("AddAmendment: %v", err)
	}
	if _, err := models.AddAmendment(ctx, wo.ID, &models.NewAmendment{ItemId: f.Bolt.ID, WarehouseId: f.WarehouseB.ID, Quantity: dec("0")}); utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("zero quantity: expected ValidationError, got %v", err)
	}

	amendments, err := models.ListAmendments(ctx, wo.ID)
	if err != nil || len(amendments) != 1 {
		t.Fatalf("ListAmendments = %d, %v", len(amendments), err)
	}
	if amendments[0].TotalStock == nil || !amendments[0].TotalStock.Equal(dec("12")) {
		t.Fatalf("total_stock = %v", amendments[0].TotalStock)
	}

	result, err := models.GenerateMaterialIssue(ctx, wo.ID, &models.DispositionSelection{AmendmentIds: []int{amendment.ID}})
	if err != nil || result.DocumentId == nil {
		t.Fatalf("issue amendment: %+v, %v", result, err)
	}
	allocations := result.Lines[0].Allocations
	if len(allocations) != 2 || allocations[0].WarehouseId != f.WarehouseB.ID || !allocations[0].Quantity.Equal(dec("2")) {
		t.Fatalf("allocations = %+v", allocations)
	}

	if _, err := models.RemoveAmendment(ctx, amendment.ID); utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("remove issued amendment: expected Conflict, got %v", err)
	}
	if _, err := models.ReverseMaterialIssue(ctx, *result.DocumentId); err != nil {
		t.Fatalf("ReverseMaterialIssue: %v", err)
	}
	if _, err := models.RemoveAmendment(ctx, amendment.ID); err != nil {
		t.Fatalf("RemoveAmendment: %v", err)
	}
	if _, err := models.RemoveAmendment(ctx, amendment.ID); utils.KindOf(err) != utils.KindNotFound {
		t.Fatalf("remove twice: expected NotFound, got %v", err)
	}
}

func TestStatusHistoryIsAppendOnly(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "1", "1")
	wo := testutil.CreateApprovedWorkOrder(t, f)

	history, err := models.GetStatusHistory(testutil.AdminContext(), wo.ID)
	if err != nil || len(history) != 1 {
		t.Fatalf("GetStatusHistory = %d, %v", len(history), err)
	}
	err = config.GetDB().Model(history[0]).Update("notes", "rewritten").Error
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("update history: expected Conflict, got %v", err)
	}
}

func TestCreateWorkOrder_Unauthenticated(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "1", "1")
	_, err := models.CreateWorkOrder(testutil.ActorContext(0, ""), &models.NewWorkOrder{SalesOrderId: f.SalesOrder.ID})
	if utils.KindOf(err) != utils.KindUnauthorized {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	_, err = models.CreateWorkOrder(testutil.AdminContext(), &models.NewWorkOrder{SalesOrderId: 4242})
	if utils.KindOf(err) != utils.KindNotFound {
		t.Fatalf("unknown sales order: expected NotFound, got %v", err)
	}
}

func createSecondBom(t *testing.T, f *testutil.Fixture) *models.Bom {
	t.Helper()
	bom, err := models.CreateBom(testutil.AdminContext(), &models.NewBom{
		Code:  "BOM-FRAME-2",
		Name:  "Frame rev 2",
		Items: []models.NewBomItem{{ItemId: f.Steel.ID, QuantityRequired: testutil.Dec("3")}},
	})
	if err != nil {
		t.Fatalf("CreateBom: %v", err)
	}
	return bom
}

func boundBomOf(t *testing.T, workOrderItemId int) int {
	t.Helper()
	var item models.WorkOrderItem
	if err := config.GetDB().First(&item, workOrderItemId).Error; err != nil {
		t.Fatalf("load work order item: %v", err)
	}
	if item.BomId == nil {
		t.Fatalf("work order item %d has no bom", workOrderItemId)
	}
	return *item.BomId
}

func TestBomBinding_LockedAfterApproval(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "2", "1")
	wo := testutil.CreateApprovedWorkOrder(t, f)
	bom2 := createSecondBom(t, f)
	ctx := testutil.AdminContext()

	_, err := models.BindWorkOrderItemBom(ctx, wo.ID, wo.Items[0].ID, &models.BindBomInput{BomId: bom2.ID})
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("bind after approval: expected Conflict, got %v", err)
	}
	_, err = models.UpdateWorkOrderStatus(ctx, wo.ID, &models.StatusTransitionInput{
		Department:  models.DepartmentEngineering,
		ToStatus:    string(models.EngineeringStatusApproved),
		BomBindings: []models.ItemBomBinding{{WorkOrderItemId: wo.Items[0].ID, BomId: bom2.ID}},
	})
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("approval carrying bindings after approval: expected Conflict, got %v", err)
	}
	if got := boundBomOf(t, wo.Items[0].ID); got != f.Bom.ID {
		t.Fatalf("bound bom = %d, want %d", got, f.Bom.ID)
	}
}

func TestBomBinding_KeptOnceLinesAreIssued(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "2", "1")
	testutil.Receive(t, f.Steel.ID, f.WarehouseA.ID, "5")
	bom2 := createSecondBom(t, f)
	ctx := testutil.AdminContext()

	wo, err := models.CreateWorkOrder(ctx, &models.NewWorkOrder{SalesOrderId: f.SalesOrder.ID})
	if err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}
	itemId := wo.Items[0].ID
	if _, err := models.BindWorkOrderItemBom(ctx, wo.ID, itemId, &models.BindBomInput{BomId: f.Bom.ID}); err != nil {
		t.Fatalf("BindWorkOrderItemBom: %v", err)
	}
	issue, err := models.GenerateMaterialIssue(ctx, wo.ID, bomSelection(wo, f, 0))
	if err != nil || issue.SucceededCount() != 1 {
		t.Fatalf("GenerateMaterialIssue: %+v, %v", issue, err)
	}

	_, err = models.BindWorkOrderItemBom(ctx, wo.ID, itemId, &models.BindBomInput{BomId: bom2.ID})
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("rebind with issued lines: expected Conflict, got %v", err)
	}
	_, err = models.UpdateWorkOrderStatus(ctx, wo.ID, &models.StatusTransitionInput{
		Department:  models.DepartmentEngineering,
		ToStatus:    string(models.EngineeringStatusApproved),
		BomBindings: []models.ItemBomBinding{{WorkOrderItemId: itemId, BomId: bom2.ID}},
	})
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("approve rebinding issued item: expected Conflict, got %v", err)
	}
	notes := "rev B drawing"
	if _, err := models.BindWorkOrderItemBom(ctx, wo.ID, itemId, &models.BindBomInput{BomId: f.Bom.ID, EngineeringNotes: &notes}); err != nil {
		t.Fatalf("re-binding the same bom: %v", err)
	}
	if got := boundBomOf(t, itemId); got != f.Bom.ID {
		t.Fatalf("bound bom = %d, want %d", got, f.Bom.ID)
	}

	if _, err := models.ReverseMaterialIssue(ctx, *issue.DocumentId); err != nil {
		t.Fatalf("ReverseMaterialIssue: %v", err)
	}
	if _, err := models.BindWorkOrderItemBom(ctx, wo.ID, itemId, &models.BindBomInput{BomId: bom2.ID}); err != nil {
		t.Fatalf("rebind after reversal: %v", err)
	}
	if got := boundBomOf(t, itemId); got != bom2.ID {
		t.Fatalf("bound bom = %d, want %d", got, bom2.ID)
	}
}

func TestInventoryReadinessHeldWhileProducing(t *testing.T) {
	testutil.NewTestDB(t)
	f := testutil.SeedFixture(t, "1", "1", "1")
	wo := testutil.CreateApprovedWorkOrder(t, f)

	transition(t, wo.ID, models.DepartmentInventory, string(models.InventoryStatusBarangSiapParsial))
	transition(t, wo.ID, models.DepartmentManufacture, string(models.ProductionStatusProses))
	_, err := models.UpdateWorkOrderStatus(testutil.AdminContext(), wo.ID, &models.StatusTransitionInput{
		Department: models.DepartmentInventory,
		ToStatus:   string(models.InventoryStatusAntrian),
	})
	if utils.KindOf(err) != utils.KindPreconditionFailed {
		t.Fatalf("Antrian while Proses: expected PreconditionFailed, got %v", err)
	}
	got, err := models.GetWorkOrder(testutil.AdminContext(), wo.ID)
	if err != nil || got.InventoryStatus != models.InventoryStatusBarangSiapParsial {
		t.Fatalf("inventory status = %v, %v", got, err)
	}
	transition(t, wo.ID, models.DepartmentInventory, string(models.InventoryStatusBarangSiap))
}
