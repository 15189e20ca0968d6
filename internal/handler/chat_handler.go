package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storeadmin/internal/service/chat"
	"storeadmin/pkg/utils"
)

// ChatHandler buyer chat handler
type ChatHandler struct {
	tracker chat.TrackerService
}

// NewChatHandler creates a chat handler
func NewChatHandler(tracker chat.TrackerService) *ChatHandler {
	return &ChatHandler{
		tracker: tracker,
	}
}

// GetMessages returns the chat thread for an order
func (h *ChatHandler) GetMessages(c *gin.Context) {
	messages, err := h.tracker.Messages(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, messages)
}

// SendMessage posts a seller message to the thread
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeInvalidParam, "invalid parameters: "+err.Error())
		return
	}

	if err := h.tracker.Send(c.Request.Context(), c.Param("order_no"), req.Text); err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, nil)
}

// MarkRead advances the read cursor to now
func (h *ChatHandler) MarkRead(c *gin.Context) {
	lastRead, err := h.tracker.MarkRead(c.Request.Context(), c.Param("order_no"), time.Now())
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"last_read_at": lastRead.UnixMilli(),
	})
}

// UnreadCount returns the number of unread buyer messages
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	unread, err := h.tracker.UnreadCount(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"unread": unread,
	})
}

// OpenThread marks the thread read and starts its unread poller. Called
// when the SPA opens the chat pane.
func (h *ChatHandler) OpenThread(c *gin.Context) {
	if err := h.tracker.OpenThread(c.Request.Context(), c.Param("order_no")); err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, nil)
}

// CloseThread stops the thread's unread poller
func (h *ChatHandler) CloseThread(c *gin.Context) {
	h.tracker.CloseThread(c.Param("order_no"))
	utils.SuccessResponse(c, nil)
}
