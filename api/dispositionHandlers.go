package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/mmdatafocus/workorder_backend/workflow"
)

type dispositionFunc func(ctx context.Context, workOrderId int, selection *models.DispositionSelection) (*models.DispositionResult, error)

func dispositionHandler(generate dispositionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var selection models.DispositionSelection
		if !bindJSON(c, &selection) {
			return
		}
		var result *models.DispositionResult
		err := workflow.WithWorkOrderLock(c.Request.Context(), id, func(ctx context.Context) error {
			var err error
			result, err = generate(ctx, id, &selection)
			return err
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(DispositionStatus(result), result)
	}
}

// DispositionStatus is 200 when any line succeeded; otherwise the status of the
// first failure, 422 when every line was skipped.
func DispositionStatus(result *models.DispositionResult) int {
	if result.SucceededCount() > 0 {
		return http.StatusOK
	}
	switch result.FirstFailureKind() {
	case utils.KindConflict:
		return http.StatusConflict
	case utils.KindNotFound:
		return http.StatusNotFound
	case utils.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

var (
	generateMaterialIssueHandler   = dispositionHandler(models.GenerateMaterialIssue)
	generatePurchaseRequestHandler = dispositionHandler(models.GeneratePurchaseRequest)
)

func listMaterialIssuesHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	issues, err := models.ListMaterialIssues(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

func reverseMaterialIssueHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	issue, err := models.GetMaterialIssue(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	var reversed *models.MaterialIssue
	err = workflow.WithWorkOrderLock(ctx, issue.WorkOrderId, func(ctx context.Context) error {
		var err error
		reversed, err = models.ReverseMaterialIssue(ctx, id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reversed)
}

func listPurchaseRequestsHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	requests, err := models.ListPurchaseRequests(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func addAmendmentHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.NewAmendment
	if !bindJSON(c, &input) {
		return
	}
	amendment, err := models.AddAmendment(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, amendment)
}

func listAmendmentsHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	amendments, err := models.ListAmendments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, amendments)
}

func removeAmendmentHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	amendment, err := models.RemoveAmendment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, amendment)
}
