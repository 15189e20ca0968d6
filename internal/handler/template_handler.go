package handler

import (
	"github.com/gin-gonic/gin"

	"storeadmin/internal/service/activation"
	"storeadmin/pkg/utils"
)

// TemplateHandler activation template handler
type TemplateHandler struct {
	registry activation.TemplateRegistry
}

// NewTemplateHandler creates a template handler
func NewTemplateHandler(registry activation.TemplateRegistry) *TemplateHandler {
	return &TemplateHandler{
		registry: registry,
	}
}

// ListTemplates returns all known activation templates
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	templates, err := h.registry.List(c.Request.Context())
	if err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, templates)
}

// RefreshTemplates pulls the latest template set from the marketplace
func (h *TemplateHandler) RefreshTemplates(c *gin.Context) {
	if err := h.registry.Refresh(c.Request.Context()); err != nil {
		utils.FailResponse(c, err)
		return
	}

	utils.SuccessResponse(c, nil)
}
