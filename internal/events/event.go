// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"consulta_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// Origin says who authored a field value.
type Origin string

const (
	OriginManual Origin = "manual"
	OriginAI     Origin = "IA"
)

// =============================================================================
// Consultation Domain Events
// =============================================================================

// ConsultationCreated is published after a consultation row is inserted.
type ConsultationCreated struct {
	BaseEvent
	ConsultationID uuid.UUID `json:"consultaId"`
	DoctorID       uuid.UUID `json:"doctorId"`
	Status         string    `json:"status"`
}

func (e ConsultationCreated) EventName() string { return "consultation.created" }

// ConsultationStageChanged is published after a transition is persisted.
type ConsultationStageChanged struct {
	BaseEvent
	ConsultationID uuid.UUID `json:"consultaId"`
	DoctorID       uuid.UUID `json:"doctorId"`
	Action         string    `json:"action"`
	FromStatus     string    `json:"fromStatus"`
	ToStatus       string    `json:"status"`
	Stage          string    `json:"etapa,omitempty"`
	SolutionStage  string    `json:"solucao_etapa,omitempty"`
}

func (e ConsultationStageChanged) EventName() string { return "consultation.stage_changed" }

// DomainRefreshed signals that a domain sub-document changed and clients
// holding it should re-fetch. The event name is derived from the prefix so
// listeners can subscribe to a single domain.
type DomainRefreshed struct {
	BaseEvent
	ConsultationID uuid.UUID      `json:"consultaId"`
	DoctorID       uuid.UUID      `json:"doctorId"`
	Prefix         string         `json:"domain"`
	FieldPath      string         `json:"fieldPath"`
	Origin         Origin         `json:"origem"`
	Document       map[string]any `json:"data"`
}

func (e DomainRefreshed) EventName() string { return RefreshedEventName(e.Prefix) }

// RefreshedEventName is the bus name for refreshes of one domain.
func RefreshedEventName(prefix string) string { return prefix + "-refreshed" }
