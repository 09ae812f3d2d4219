package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("workorder-backend")

// RegisterRoutes mounts every JSON endpoint on r. Session and loader middlewares
// are installed by the caller; every route here needs an authenticated user.
func RegisterRoutes(router gin.IRouter) {
	r := router.Group("", requireSession)
	r.GET("/me", meHandler)

	r.POST("/items", createItemHandler)
	r.GET("/items", listItemsHandler)
	r.GET("/items/:id/stocks", itemStocksHandler)
	r.POST("/warehouses", createWarehouseHandler)
	r.GET("/warehouses", listWarehousesHandler)
	r.POST("/stock-receipts", receiveStockHandler)
	r.POST("/boms", createBomHandler)
	r.GET("/boms/:id", getBomHandler)
	r.POST("/sales-orders", createSalesOrderHandler)
	r.GET("/sales-orders/:id", getSalesOrderHandler)

	r.POST("/work-orders", createWorkOrderHandler)
	r.GET("/work-orders", listWorkOrdersHandler)
	r.GET("/work-orders/:id", getWorkOrderHandler)
	r.DELETE("/work-orders/:id", deleteWorkOrderHandler)
	r.PUT("/work-orders/:id/items/:itemId/bom", bindBomHandler)
	r.POST("/work-orders/:id/transitions", transitionHandler)
	r.GET("/work-orders/:id/history", historyHandler)
	r.GET("/work-orders/:id/reconciliation", reconciliationHandler)
	r.GET("/work-orders/:id/bom-requirements.xlsx", exportBomRequirementsHandler)
	r.GET("/work-orders/:id/drawing-url", drawingUrlHandler)

	r.POST("/work-orders/:id/material-issues", generateMaterialIssueHandler)
	r.GET("/work-orders/:id/material-issues", listMaterialIssuesHandler)
	r.POST("/material-issues/:id/reverse", reverseMaterialIssueHandler)
	r.POST("/work-orders/:id/purchase-requests", generatePurchaseRequestHandler)
	r.GET("/work-orders/:id/purchase-requests", listPurchaseRequestsHandler)

	r.POST("/work-orders/:id/amendments", addAmendmentHandler)
	r.GET("/work-orders/:id/amendments", listAmendmentsHandler)
	r.DELETE("/amendments/:id", removeAmendmentHandler)

	r.POST("/internal/ops/outbox/replay", replayEventHandler)
}

// TracingMiddleware opens one span per request.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
			))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// StatusForError maps the error taxonomy onto HTTP status codes.
func StatusForError(err error, authenticated bool) int {
	switch utils.KindOf(err) {
	case utils.KindNotFound:
		return http.StatusNotFound
	case utils.KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case utils.KindConflict:
		return http.StatusConflict
	case utils.KindInsufficientStock:
		return http.StatusUnprocessableEntity
	case utils.KindValidation:
		return http.StatusBadRequest
	case utils.KindUnauthorized:
		if !authenticated {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	_, authErr := utils.GetActorFromContext(c.Request.Context())
	status := StatusForError(err, authErr == nil)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		config.LogError(config.GetLogger(), "API", c.FullPath(), c.Request.Method, nil, err)
		c.JSON(status, gin.H{"error": "internal server error", "kind": utils.KindInternal})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": utils.KindOf(err)})
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondError(c, utils.NewValidationError("invalid request body: %s", err.Error()))
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		respondError(c, utils.NewValidationError("invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return id, true
}

func requireSession(c *gin.Context) {
	if _, err := utils.GetActorFromContext(c.Request.Context()); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "kind": utils.KindUnauthorized})
		return
	}
	c.Next()
}

// CustomNotFoundHandler answers unknown routes.
func CustomNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found", "kind": utils.KindNotFound})
}
