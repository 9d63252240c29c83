package handler

import (
	"context"
	"net/http"

	"consulta_backend/internal/consultations/service"
	"consulta_backend/internal/consultations/transport"
	"consulta_backend/platform/httpkit"
	"consulta_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "requisição inválida"
	msgValidationFailed = "falha na validação"
	msgInvalidID        = "id de consulta inválido"
)

// DoctorResolver maps the authenticated user to the doctor record.
type DoctorResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// Handler handles HTTP requests for consultations
type Handler struct {
	svc     *service.Service
	doctors DoctorResolver
	val     *validator.Validator
}

// New creates a new consultations handler
func New(svc *service.Service, doctors DoctorResolver, val *validator.Validator) *Handler {
	return &Handler{svc: svc, doctors: doctors, val: val}
}

// RegisterRoutes registers the consultation routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/domains/:prefix", h.GetDomain)
	rg.PATCH("/:id/fields", h.PatchField)
	rg.POST("/:id/ai-edit", h.RequestAIEdit)
	rg.POST("/:id/advance", h.Advance)
}

// DoctorID resolves the acting doctor, writing the error response when it
// cannot.
func (h *Handler) DoctorID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, false
	}
	doctorID, err := h.doctors.Resolve(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return uuid.UUID{}, false
	}
	return doctorID, true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

// List handles GET /api/v1/consultations
func (h *Handler) List(c *gin.Context) {
	var req transport.ListConsultationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	doctorID, ok := h.DoctorID(c)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), doctorID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Create handles POST /api/v1/consultations
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	doctorID, ok := h.DoctorID(c)
	if !ok {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), doctorID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// GetByID handles GET /api/v1/consultations/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	doctorID, ok := h.DoctorID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), doctorID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetDomain handles GET /api/v1/consultations/:id/domains/:prefix
func (h *Handler) GetDomain(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	doctorID, ok := h.DoctorID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetDomain(c.Request.Context(), doctorID, id, c.Param("prefix"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// PatchField handles PATCH /api/v1/consultations/:id/fields
func (h *Handler) PatchField(c *gin.Context) {
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

	doctorID, ok := h.DoctorID(c)
	if !ok {
		return
	}

	result, err := h.svc.PatchField(c.Request.Context(), doctorID, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// RequestAIEdit handles POST /api/v1/consultations/:id/ai-edit
func (h *Handler) RequestAIEdit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.AIEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	doctorID, ok := h.DoctorID(c)
	if !ok {
		return
	}

	result, err := h.svc.RequestAIEdit(c.Request.Context(), doctorID, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusAccepted, result)
}

// Advance handles POST /api/v1/consultations/:id/advance
func (h *Handler) Advance(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.AdvanceRequest
	// an empty body asks for the default step
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}

	doctorID, ok := h.DoctorID(c)
	if !ok {
		return
	}

	result, err := h.svc.Advance(c.Request.Context(), doctorID, id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// FieldRegistry handles GET /api/v1/field-registry
func (h *Handler) FieldRegistry(c *gin.Context) {
	httpkit.OK(c, transport.FieldRegistryResponse{Domains: h.svc.Registry().Entries()})
}
