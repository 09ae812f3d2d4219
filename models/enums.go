package models

type Department string

const (
	DepartmentEngineering Department = "engineering"
	DepartmentInventory   Department = "inventory"
	DepartmentManufacture Department = "manufacture"
)

var departments = map[string]Department{
	"engineering": DepartmentEngineering,
	"inventory":   DepartmentInventory,
	"manufacture": DepartmentManufacture,
}

func (d Department) IsValid() bool {
	_, ok := departments[string(d)]
	return ok
}

// Label is the department tag used when appending notes.
func (d Department) Label() string {
	switch d {
	case DepartmentEngineering:
		return "Engineering"
	case DepartmentInventory:
		return "Inventory"
	case DepartmentManufacture:
		return "Manufacture"
	}
	return string(d)
}

type EngineeringStatus string

const (
	EngineeringStatusPendingApproval EngineeringStatus = "Pending Approval"
	EngineeringStatusApproved        EngineeringStatus = "Approved"
	EngineeringStatusRevise          EngineeringStatus = "Revise"
)

type InventoryStatus string

const (
	InventoryStatusPendingApproval   InventoryStatus = "Pending Approval"
	InventoryStatusBarangSiap        InventoryStatus = "Barang Siap"
	InventoryStatusBarangSiapParsial InventoryStatus = "Barang Siap Parsial"
	InventoryStatusAntrian           InventoryStatus = "Antrian"
)

// IsReady reports whether production may start against this inventory decision.
func (s InventoryStatus) IsReady() bool {
	return s == InventoryStatusBarangSiap || s == InventoryStatusBarangSiapParsial
}

type ProductionStatus string

const (
	ProductionStatusTungguAntrian ProductionStatus = "Tunggu Antrian"
	ProductionStatusProses        ProductionStatus = "Proses"
	ProductionStatusQC            ProductionStatus = "QC"
	ProductionStatusTerkirim      ProductionStatus = "Terkirim"
)

// productionSequence is the only order production may move in.
var productionSequence = []ProductionStatus{
	ProductionStatusTungguAntrian,
	ProductionStatusProses,
	ProductionStatusQC,
	ProductionStatusTerkirim,
}

// OverallStatus is the read-time label shown for a work order; it is never stored.
type OverallStatus string

const (
	OverallStatusDraft            OverallStatus = "Draft"
	OverallStatusPendingInventory OverallStatus = "Pending Inventory"
	OverallStatusTungguAntrian    OverallStatus = "Tunggu Antrian"
	OverallStatusProses           OverallStatus = "Proses"
	OverallStatusQC               OverallStatus = "QC"
	OverallStatusTerkirim         OverallStatus = "Terkirim"
)

type UserRole string

const (
	UserRoleAdmin       UserRole = "admin"
	UserRoleEngineering UserRole = "engineering"
	UserRoleInventory   UserRole = "inventory"
	UserRoleManufacture UserRole = "manufacture"
	UserRoleSales       UserRole = "sales"
	UserRolePurchasing  UserRole = "purchasing"
)

var userRoles = map[string]UserRole{
	"admin":       UserRoleAdmin,
	"engineering": UserRoleEngineering,
	"inventory":   UserRoleInventory,
	"manufacture": UserRoleManufacture,
	"sales":       UserRoleSales,
	"purchasing":  UserRolePurchasing,
}

func (r UserRole) IsValid() bool {
	_, ok := userRoles[string(r)]
	return ok
}

type DispositionType string

const (
	DispositionTypeMaterialIssue   DispositionType = "MATERIAL_ISSUE"
	DispositionTypePurchaseRequest DispositionType = "PURCHASE_REQUEST"
)

// LineSourceType tells whether a reconciled line comes from a bound BOM or an amendment.
type LineSourceType string

const (
	LineSourceBom       LineSourceType = "bom"
	LineSourceAmendment LineSourceType = "amendment"
)

type Classification string

const (
	ClassificationSufficient   Classification = "Sufficient"
	ClassificationInsufficient Classification = "Insufficient"
)

type MaterialIssueStatus string

const (
	MaterialIssueStatusPosted   MaterialIssueStatus = "Posted"
	MaterialIssueStatusReversed MaterialIssueStatus = "Reversed"
)

type PurchaseRequestStatus string

const (
	PurchaseRequestStatusOpen PurchaseRequestStatus = "Open"
)

type StockReferenceType string

const (
	StockReferenceReceipt       StockReferenceType = "RECEIPT"
	StockReferenceMaterialIssue StockReferenceType = "MATERIAL_ISSUE"
	StockReferenceIssueReversal StockReferenceType = "MATERIAL_ISSUE_REVERSAL"
)

type WorkOrderEventType string

const (
	WorkOrderEventCreated               WorkOrderEventType = "WorkOrderCreated"
	WorkOrderEventDeleted               WorkOrderEventType = "WorkOrderDeleted"
	WorkOrderEventStatusChanged         WorkOrderEventType = "StatusChanged"
	WorkOrderEventBomBound              WorkOrderEventType = "BomBound"
	WorkOrderEventMaterialIssued        WorkOrderEventType = "MaterialIssued"
	WorkOrderEventMaterialIssueReversed WorkOrderEventType = "MaterialIssueReversed"
	WorkOrderEventPurchaseRequested     WorkOrderEventType = "PurchaseRequested"
	WorkOrderEventAmendmentAdded        WorkOrderEventType = "AmendmentAdded"
	WorkOrderEventAmendmentRemoved      WorkOrderEventType = "AmendmentRemoved"
)
