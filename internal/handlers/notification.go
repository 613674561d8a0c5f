package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/pkg/logger"
	"github.com/stockyard-ci/stockyard/pkg/response"
)

type NotificationHandler struct {
	queue services.TaskQueue
}

func NewNotificationHandler(queue services.TaskQueue) *NotificationHandler {
	return &NotificationHandler{queue: queue}
}

// Build queues a build event for delivery to the active channels. Delivery
// happens later; its failures never reach the caller.
// POST /api/notifications/build
func (h *NotificationHandler) Build(c *gin.Context) {
	var event services.BuildEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), &event); err != nil {
		logger.Error().Err(err).Str("build_id", event.BuildID).Msg("[Notification] enqueue failed")
		response.ServerError(c, "failed to queue notification")
		return
	}
	response.Ack(c, http.StatusAccepted, "queued")
}
