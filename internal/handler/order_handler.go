package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storeadmin/internal/service/order"
	"storeadmin/pkg/utils"
)

// OrderHandler order workflow handler
type OrderHandler struct {
	orderService order.OrderService
}

// NewOrderHandler creates an order handler
func NewOrderHandler(orderService order.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// ListOrders lists orders, optionally filtered by status
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status, _ := strconv.Atoi(c.DefaultQuery("status", "0"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	orders, total, err := h.orderService.List(c.Request.Context(), int8(status), page, pageSize)
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, orders, total, page, pageSize)
}

// GetOrder gets an order by order number
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ord, err := h.orderService.GetByOrderNo(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, ord)
}

// Fulfill accepts a pending order for fulfillment
func (h *OrderHandler) Fulfill(c *gin.Context) {
	ord, err := h.orderService.Fulfill(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, ord)
}

// PreviewActivation returns the activation decision without delivering
func (h *OrderHandler) PreviewActivation(c *gin.Context) {
	decision, err := h.orderService.PreviewActivation(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, decision)
}

// SendActivation delivers activation content for all undelivered items.
// Manual items take their keys from the request body.
func (h *OrderHandler) SendActivation(c *gin.Context) {
	var req struct {
		Keys map[uint64]string `json:"keys"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeInvalidParam, "invalid parameters: "+err.Error())
			return
		}
	}

	ord, err := h.orderService.SendActivation(c.Request.Context(), c.Param("order_no"), req.Keys)
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, ord)
}

// Complete marks a processing order completed
func (h *OrderHandler) Complete(c *gin.Context) {
	ord, err := h.orderService.Complete(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, ord)
}

// Finish archives a completed order and reports the automatic client
// match. A "needs_email" link outcome routes the SPA to the interactive
// client form.
func (h *OrderHandler) Finish(c *gin.Context) {
	ord, link, err := h.orderService.Finish(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"order": ord,
		"link":  link,
	})
}

// Cancel cancels an order before completion
func (h *OrderHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeInvalidParam, "invalid parameters: "+err.Error())
			return
		}
	}

	ord, err := h.orderService.Cancel(c.Request.Context(), c.Param("order_no"), req.Reason)
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, ord)
}
