package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storeadmin/internal/service/settings"
	"storeadmin/pkg/utils"
)

// NotificationHandler notification handler
type NotificationHandler struct {
	monitor settings.MonitorService
}

// NewNotificationHandler creates a notification handler
func NewNotificationHandler(monitor settings.MonitorService) *NotificationHandler {
	return &NotificationHandler{
		monitor: monitor,
	}
}

// ListNotifications returns all notifications, newest first
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	notifications, err := h.monitor.List(c.Request.Context())
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, notifications)
}

// MarkRead marks a notification read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeInvalidParam, "invalid notification id")
		return
	}

	if err := h.monitor.MarkRead(c.Request.Context(), id); err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, nil)
}

// Dismiss deletes a notification
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeInvalidParam, "invalid notification id")
		return
	}

	if err := h.monitor.Dismiss(c.Request.Context(), id); err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, nil)
}

// GetSettings returns the mirrored upstream settings
func (h *NotificationHandler) GetSettings(c *gin.Context) {
	s, err := h.monitor.Settings(c.Request.Context())
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, s)
}
