package reports

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	bomLinesSheet       = "BOM Lines"
	amendmentLinesSheet = "Amendment Lines"
)

var bomRequirementHeadings = []string{
	"Line", "Source", "Item Code", "Item Name", "Per Unit", "Parent Qty",
	"Required", "Available", "Shortfall", "Classification", "Issued", "Requested",
}

// ExportBomRequirements renders the reconciliation of a work order as a workbook
// with one sheet of BOM lines and one of amendment lines.
func ExportBomRequirements(ctx context.Context, workOrderId int) (*excelize.File, error) {
	wo, err := models.GetWorkOrder(ctx, workOrderId)
	if err != nil {
		return nil, err
	}
	rec, err := models.GetWorkOrderReconciliation(ctx, workOrderId)
	if err != nil {
		return nil, err
	}
	lines := rec.Lines()

	itemIds := make([]int, 0, len(lines))
	for _, l := range lines {
		itemIds = append(itemIds, l.ItemId)
	}
	var items []models.Item
	if len(itemIds) > 0 {
		if err := config.GetDB().WithContext(ctx).Where("id IN ?", itemIds).Find(&items).Error; err != nil {
			return nil, err
		}
	}
	itemMap := make(map[int]models.Item, len(items))
	for _, it := range items {
		itemMap[it.ID] = it
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", bomLinesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(amendmentLinesSheet); err != nil {
		return nil, err
	}
	header := fmt.Sprintf("%s (%s)", wo.WoNumber, wo.Status)
	if err := writeRequirementSheet(f, bomLinesSheet, header, rec.BomLines, itemMap); err != nil {
		return nil, err
	}
	if err := writeRequirementSheet(f, amendmentLinesSheet, header, rec.AmendmentLines, itemMap); err != nil {
		return nil, err
	}
	return f, nil
}

func writeRequirementSheet(f *excelize.File, sheet string, title string, lines []models.ReconciledLine, itemMap map[int]models.Item) error {
	f.SetCellValue(sheet, "A1", "Work Order")
	f.SetCellValue(sheet, "B1", title)

	const headerRow = 3
	for i, h := range bomRequirementHeadings {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, cell, h)
	}
	for i, l := range lines {
		item := itemMap[l.ItemId]
		values := []interface{}{
			l.LineKey,
			string(l.SourceType),
			item.Code,
			item.Name,
			decimalOrBlank(l.PerUnitQuantity),
			decimalOrBlank(l.ParentQuantity),
			l.Required.InexactFloat64(),
			l.Available.InexactFloat64(),
			l.Shortfall.InexactFloat64(),
			string(l.Classification),
			yesNo(l.Issued),
			yesNo(l.Requested),
		}
		cell, err := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// BomRequirementFileName is the attachment name used for the export download.
func BomRequirementFileName(woNumber string) string {
	return fmt.Sprintf("%s-requirements.xlsx", woNumber)
}

func decimalOrBlank(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
