package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/workorder_backend/models"
)

type eventReplayRequest struct {
	RecordId int `json:"record_id" binding:"required"`
}

// replayEventHandler re-queues an outbox event that was marked FAILED or DEAD.
func replayEventHandler(c *gin.Context) {
	var req eventReplayRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := models.ReplayWorkOrderEvent(c.Request.Context(), req.RecordId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"record_id":       record.ID,
		"work_order_id":   record.WorkOrderId,
		"publish_status":  record.PublishStatus,
		"next_attempt_at": record.NextAttemptAt,
	})
}
