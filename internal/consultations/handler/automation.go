package handler

import (
	"net/http"

	"consulta_backend/internal/consultations/transport"
	"consulta_backend/platform/httpkit"
	"consulta_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// RegisterAutomationRoutes mounts the callback the automation service uses to
// write AI-produced values. The group must already carry AutomationSecret.
func (h *Handler) RegisterAutomationRoutes(rg *gin.RouterGroup) {
	rg.POST("/consultations/:id/fields", h.AutomationPatchField)
}

// AutomationPatchField handles POST /api/v1/automation/consultations/:id/fields
func (h *Handler) AutomationPatchField(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.PatchFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	result, err := h.svc.ApplyAutomationPatch(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
