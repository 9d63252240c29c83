package service

import (
	"context"

	"consulta_backend/internal/audit"
	"consulta_backend/internal/calendar"
	"consulta_backend/internal/consultations/repository"
	"consulta_backend/internal/notify"

	"github.com/google/uuid"
)

// ConsultationStore is the consultation table. *repository.Repository implements it.
type ConsultationStore interface {
	Create(ctx context.Context, c *repository.Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Consultation, error)
	List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error)
	PatientBelongsToDoctor(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
	TransitionState(ctx context.Context, change repository.StateChange) (*repository.Consultation, error)
	SetCalendarLink(ctx context.Context, id uuid.UUID, eventID, meetLink string) error
}

// DocumentStore holds the per-domain sub-documents. *repository.Documents implements it.
type DocumentStore interface {
	Get(ctx context.Context, table string, consultationID uuid.UUID) (map[string]any, error)
	SetField(ctx context.Context, table string, consultationID uuid.UUID, field string, value any) (map[string]any, error)
}

// Notifier talks to the external automation service. *notify.Dispatcher implements it.
type Notifier interface {
	NotifyFieldPatch(ctx context.Context, p notify.FieldPatch)
	NotifyStageEntry(ctx context.Context, e notify.StageEntry)
	SendInstruction(ctx context.Context, in notify.Instruction) (notify.Reply, error)
}

// AuditRecorder appends audit entries. *audit.Repository implements it.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// CalendarSyncer creates calendar events for remote consultations.
type CalendarSyncer interface {
	Sync(ctx context.Context, req calendar.Request) (calendar.Result, error)
}
