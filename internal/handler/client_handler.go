package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storeadmin/internal/service/client"
	"storeadmin/pkg/utils"
)

// ClientHandler client directory handler
type ClientHandler struct {
	linker client.LinkerService
}

// NewClientHandler creates a client handler
func NewClientHandler(linker client.LinkerService) *ClientHandler {
	return &ClientHandler{
		linker: linker,
	}
}

// LinkOrder links an order to an existing client by buyer email
func (h *ClientHandler) LinkOrder(c *gin.Context) {
	result, err := h.linker.Link(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"outcome": result.Outcome.String(),
		"client":  result.Client,
	})
}

// CreateClient creates a client from an order, with an operator-supplied
// email when the order carries none
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req struct {
		Email string  `json:"email" binding:"required"`
		Name  *string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeInvalidParam, "invalid parameters: "+err.Error())
		return
	}

	result, err := h.linker.CreateFromOrder(c.Request.Context(), c.Param("order_no"), req.Email, req.Name)
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"outcome": result.Outcome.String(),
		"client":  result.Client,
	})
}

// GetClient gets a client by id
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeInvalidParam, "invalid client id")
		return
	}

	cl, err := h.linker.GetClient(c.Request.Context(), id)
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, cl)
}

// ListClients lists clients
func (h *ClientHandler) ListClients(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	clients, total, err := h.linker.ListClients(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, clients, total, page, pageSize)
}
