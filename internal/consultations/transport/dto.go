package transport

import (
	"time"

	"consulta_backend/internal/consultations/domain"
	"consulta_backend/internal/notify"

	"github.com/google/uuid"
)

// Pagination limits for the consultation list.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Date filters for the consultation list.
const (
	DateFilterDay   = "day"
	DateFilterWeek  = "week"
	DateFilterMonth = "month"
)

// Request DTOs

type CreateConsultationRequest struct {
	PatientID        uuid.UUID  `json:"patient_id" validate:"required"`
	PatientName      string     `json:"patient_name" validate:"required,max=200"`
	ConsultationType string     `json:"consultation_type" validate:"required"`
	Status           string     `json:"status,omitempty"`
	ConsultaInicio   *time.Time `json:"consulta_inicio,omitempty"`
}

type ListConsultationsRequest struct {
	Search     string `form:"search" validate:"max=100"`
	Status     string `form:"status"`
	Type       string `form:"type"`
	DateFilter string `form:"dateFilter" validate:"omitempty,oneof=day week month"`
	Date       string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	Limit      int    `form:"limit" validate:"omitempty,min=1"`
}

type PatchFieldRequest struct {
	FieldPath string `json:"fieldPath" validate:"required,fieldpath"`
	Value     any    `json:"value"`
}

type AIEditRequest struct {
	FieldPath   string `json:"fieldPath" validate:"required,fieldpath"`
	Instruction string `json:"instruction" validate:"required,max=4000"`
}

type AdvanceRequest struct {
	TargetStatus        string     `json:"targetStatus,omitempty"`
	TargetStage         string     `json:"targetStage,omitempty"`
	TargetSolutionStage string     `json:"targetSolutionStage,omitempty"`
	ConsultaInicio      *time.Time `json:"consultaInicio,omitempty"`
}

// Response DTOs

type ConsultationResponse struct {
	ID               uuid.UUID  `json:"id"`
	DoctorID         uuid.UUID  `json:"doctor_id"`
	PatientID        uuid.UUID  `json:"patient_id"`
	PatientName      string     `json:"patient_name"`
	ConsultationType string     `json:"consultation_type"`
	Status           string     `json:"status"`
	Etapa            *string    `json:"etapa"`
	SolucaoEtapa     *string    `json:"solucao_etapa"`
	ConsultaInicio   *time.Time `json:"consulta_inicio"`
	GoogleEventID    *string    `json:"google_event_id,omitempty"`
	GoogleMeetLink   *string    `json:"google_meet_link,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type ConsultationListResponse struct {
	Items      []ConsultationResponse `json:"items"`
	Pagination Pagination             `json:"pagination"`
}

type PatchFieldResponse struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
}

type DomainDocumentResponse struct {
	Domain string         `json:"domain"`
	Data   map[string]any `json:"data"`
}

type AIEditResponse struct {
	Delivered bool          `json:"delivered"`
	Message   string        `json:"message"`
	Reply     *notify.Reply `json:"reply,omitempty"`
}

type FieldRegistryResponse struct {
	Domains []domain.Entry `json:"domains"`
}
