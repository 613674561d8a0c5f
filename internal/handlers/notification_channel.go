package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/pkg/response"
)

type NotificationChannelHandler struct {
	channels *services.NotificationChannelService
}

func NewNotificationChannelHandler(channels *services.NotificationChannelService) *NotificationChannelHandler {
	return &NotificationChannelHandler{channels: channels}
}

func parseChannelID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.Error(c, response.NewBadRequest("invalid channel id"))
		return 0, false
	}
	return uint(id), true
}

// channelError maps service errors onto the admin envelope.
func channelError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrChannelNotFound) {
		response.Error(c, response.NewNotFound("channel not found"))
		return
	}
	response.Error(c, response.NewServerError(err.Error()))
}

// GET /api/admin/notification-channels
func (h *NotificationChannelHandler) List(c *gin.Context) {
	channels, err := h.channels.List(c.Request.Context())
	if err != nil {
		channelError(c, err)
		return
	}
	response.Success(c, channels)
}

// GET /api/admin/notification-channels/:id
func (h *NotificationChannelHandler) GetByID(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}
	ch, err := h.channels.GetByID(c.Request.Context(), id)
	if err != nil {
		channelError(c, err)
		return
	}
	response.Success(c, ch)
}

// POST /api/admin/notification-channels
func (h *NotificationChannelHandler) Create(c *gin.Context) {
	var req services.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewBadRequest(err.Error()))
		return
	}
	ch, err := h.channels.Create(c.Request.Context(), &req)
	if err != nil {
		channelError(c, err)
		return
	}
	response.Created(c, ch)
}

// PUT /api/admin/notification-channels/:id
func (h *NotificationChannelHandler) Update(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}
	var req services.UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.NewBadRequest(err.Error()))
		return
	}
	ch, err := h.channels.Update(c.Request.Context(), id, &req)
	if err != nil {
		channelError(c, err)
		return
	}
	response.Success(c, ch)
}

// DELETE /api/admin/notification-channels/:id
func (h *NotificationChannelHandler) Delete(c *gin.Context) {
	id, ok := parseChannelID(c)
	if !ok {
		return
	}
	if err := h.channels.Delete(c.Request.Context(), id); err != nil {
		channelError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "channel deleted"})
}
