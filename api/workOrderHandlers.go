package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/workorder_backend/middlewares"
	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/models/reports"
	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/mmdatafocus/workorder_backend/workflow"
)

func createWorkOrderHandler(c *gin.Context) {
	var input models.NewWorkOrder
	if !bindJSON(c, &input) {
		return
	}
	wo, err := models.CreateWorkOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wo)
}

func listWorkOrdersHandler(c *gin.Context) {
	var filter models.WorkOrderFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, utils.NewValidationError("invalid query: %s", err.Error()))
		return
	}
	results, err := models.ListWorkOrders(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func getWorkOrderHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	wo, err := models.GetWorkOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wo)
}

func deleteWorkOrderHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var wo *models.WorkOrder
	err := workflow.WithWorkOrderLock(c.Request.Context(), id, func(ctx context.Context) error {
		var err error
		wo, err = models.DeleteWorkOrder(ctx, id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wo)
}

func bindBomHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemId, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	var input models.BindBomInput
	if !bindJSON(c, &input) {
		return
	}
	var item *models.WorkOrderItem
	err := workflow.WithWorkOrderLock(c.Request.Context(), id, func(ctx context.Context) error {
		var err error
		item, err = models.BindWorkOrderItemBom(ctx, id, itemId, &input)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func transitionHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.StatusTransitionInput
	if !bindJSON(c, &input) {
		return
	}
	var result *models.StatusTransitionResult
	err := workflow.WithWorkOrderLock(c.Request.Context(), id, func(ctx context.Context) error {
		var err error
		result, err = models.UpdateWorkOrderStatus(ctx, id, &input)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func historyHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	entries, err := models.GetStatusHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func reconciliationHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	rec, err := models.GetWorkOrderReconciliation(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	fillItemNames(ctx, rec.BomLines)
	fillItemNames(ctx, rec.AmendmentLines)
	c.JSON(http.StatusOK, gin.H{"reconciliation": rec, "summary": rec.Summary()})
}

func fillItemNames(ctx context.Context, lines []models.ReconciledLine) {
	if len(lines) == 0 {
		return
	}
	ids := make([]int, len(lines))
	for i, l := range lines {
		ids[i] = l.ItemId
	}
	items, errs := middlewares.GetItems(ctx, ids)
	for i := range lines {
		if i < len(items) && (len(errs) <= i || errs[i] == nil) && items[i] != nil {
			lines[i].ItemName = items[i].Name
		}
	}
}

func exportBomRequirementsHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	wo, err := models.GetWorkOrder(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	f, err := reports.ExportBomRequirements(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+reports.BomRequirementFileName(wo.WoNumber))
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

func drawingUrlHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	wo, err := models.GetWorkOrder(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	ref := utils.DereferencePtr(wo.DrawingRef)
	if ref == "" {
		respondError(c, utils.NewNotFound("work order %s has no drawing", wo.WoNumber))
		return
	}
	signed, err := utils.SignedDownloadURL(ctx, ref, utils.SignedURLTTL())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, signed)
}
