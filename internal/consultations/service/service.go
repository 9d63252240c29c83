// Package service implements the consultation use cases: creation, listing,
// field edits (manual and AI-authored) and stage advancement.
package service

import (
	"context"
	"strings"
	"time"

	"consulta_backend/internal/audit"
	"consulta_backend/internal/calendar"
	"consulta_backend/internal/consultations/domain"
	"consulta_backend/internal/consultations/repository"
	"consulta_backend/internal/consultations/transport"
	"consulta_backend/internal/events"
	"consulta_backend/platform/apperr"
	"consulta_backend/platform/logger"
	"consulta_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgScheduleRequiresStart = "consulta_inicio é obrigatório quando status é AGENDAMENTO"
	msgPatientNotFound       = "paciente não encontrado"
	msgConsultationNotFound  = "consulta não encontrada"
)

// Service provides business logic for consultations
type Service struct {
	repo     ConsultationStore
	docs     DocumentStore
	registry *domain.Registry
	applier  *Applier
	notifier Notifier
	audit    AuditRecorder
	calendar CalendarSyncer
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new consultations service
func New(repo ConsultationStore, docs DocumentStore, registry *domain.Registry, notifier Notifier, auditor AuditRecorder, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		docs:     docs,
		registry: registry,
		applier:  NewApplier(registry, docs),
		notifier: notifier,
		audit:    auditor,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// SetCalendar enables calendar sync for remote consultations.
func (s *Service) SetCalendar(c CalendarSyncer) {
	s.calendar = c
}

// Registry returns the field registry the service routes through.
func (s *Service) Registry() *domain.Registry {
	return s.registry
}

// Create registers a consultation for one of the doctor's patients.
func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, req transport.CreateConsultationRequest) (transport.ConsultationResponse, error) {
	status := domain.StatusCreated
	if strings.TrimSpace(req.Status) != "" {
		status = domain.ParseStatus(req.Status)
	}
	if !domain.IsCreatableStatus(status) {
		return transport.ConsultationResponse{}, apperr.Validation("status inicial inválido: use CREATED, RECORDING ou AGENDAMENTO")
	}
	if status == domain.StatusAgendamento && req.ConsultaInicio == nil {
		return transport.ConsultationResponse{}, apperr.Validation(msgScheduleRequiresStart)
	}
	consultationType := domain.ParseConsultationType(req.ConsultationType)
	if !domain.IsKnownConsultationType(consultationType) {
		return transport.ConsultationResponse{}, apperr.Validation("tipo de consulta inválido: use PRESENCIAL ou TELEMEDICINA")
	}
	patientName := strings.TrimSpace(sanitize.Text(req.PatientName))
	if patientName == "" {
		return transport.ConsultationResponse{}, apperr.Validation("patient_name é obrigatório")
	}

	owned, err := s.repo.PatientBelongsToDoctor(ctx, req.PatientID, doctorID)
	if err != nil {
		return transport.ConsultationResponse{}, err
	}
	if !owned {
		return transport.ConsultationResponse{}, apperr.NotFound(msgPatientNotFound)
	}

	now := s.now()
	c := &repository.Consultation{
		ID:               uuid.New(),
		DoctorID:         doctorID,
		PatientID:        req.PatientID,
		PatientName:      patientName,
		ConsultationType: string(consultationType),
		Status:           string(status),
		ConsultaInicio:   req.ConsultaInicio,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return transport.ConsultationResponse{}, err
	}

	s.record(ctx, audit.Entry{
		ActorID:    &doctorID,
		ActorType:  audit.ActorDoctor,
		Action:     audit.ActionCreate,
		ResourceID: c.ID,
		After:      c.Snapshot(),
	})
	s.bus.Publish(ctx, events.ConsultationCreated{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: c.ID,
		DoctorID:       doctorID,
		Status:         c.Status,
	})

	if consultationType != domain.TypePresencial && c.ConsultaInicio != nil {
		s.syncCalendar(ctx, c)
	}

	return toResponse(c), nil
}

// syncCalendar makes a single attempt; the consultation stands without a link
// when it fails.
func (s *Service) syncCalendar(ctx context.Context, c *repository.Consultation) {
	if s.calendar == nil {
		return
	}
	result, err := s.calendar.Sync(ctx, calendar.Request{
		ConsultationID: c.ID.String(),
		DoctorID:       c.DoctorID.String(),
		PatientName:    c.PatientName,
		Type:           c.ConsultationType,
		Start:          *c.ConsultaInicio,
	})
	if err != nil {
		s.log.WithContext(ctx).SideEffectFailure("calendar_sync", c.ID.String(), err)
		return
	}
	if err := s.repo.SetCalendarLink(ctx, c.ID, result.EventID, result.MeetLink); err != nil {
		s.log.WithContext(ctx).SideEffectFailure("calendar_link", c.ID.String(), err)
		return
	}
	if result.EventID != "" {
		c.GoogleEventID = &result.EventID
	}
	if result.MeetLink != "" {
		c.GoogleMeetLink = &result.MeetLink
	}
}

// Get returns one consultation owned by the doctor.
func (s *Service) Get(ctx context.Context, doctorID, id uuid.UUID) (transport.ConsultationResponse, error) {
	c, err := s.owned(ctx, doctorID, id)
	if err != nil {
		return transport.ConsultationResponse{}, err
	}
	return toResponse(c), nil
}

// GetDomain returns the current sub-document of one domain. A domain never
// edited yields an empty document.
func (s *Service) GetDomain(ctx context.Context, doctorID, id uuid.UUID, prefix string) (transport.DomainDocumentResponse, error) {
	entry, ok := s.registry.Lookup(prefix)
	if !ok {
		return transport.DomainDocumentResponse{}, apperr.DomainNotFound(prefix)
	}
	c, err := s.owned(ctx, doctorID, id)
	if err != nil {
		return transport.DomainDocumentResponse{}, err
	}
	doc, err := s.docs.Get(ctx, entry.Table, c.ID)
	if err != nil {
		return transport.DomainDocumentResponse{}, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return transport.DomainDocumentResponse{Domain: entry.Prefix, Data: doc}, nil
}

// List returns a page of the doctor's consultations.
func (s *Service) List(ctx context.Context, doctorID uuid.UUID, req transport.ListConsultationsRequest) (transport.ConsultationListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = transport.DefaultPageSize
	}
	if limit > transport.MaxPageSize {
		limit = transport.MaxPageSize
	}

	params := repository.ListParams{
		DoctorID: doctorID,
		Search:   strings.TrimSpace(req.Search),
		Page:     page,
		PageSize: limit,
	}

	if req.Status != "" {
		status := domain.ParseStatus(req.Status)
		if !domain.IsKnownStatus(status) {
			return transport.ConsultationListResponse{}, apperr.Validation("status inválido: " + req.Status)
		}
		value := string(status)
		params.Status = &value
	}
	if req.Type != "" {
		consultationType := domain.ParseConsultationType(req.Type)
		if !domain.IsKnownConsultationType(consultationType) {
			return transport.ConsultationListResponse{}, apperr.Validation("tipo inválido: " + req.Type)
		}
		value := string(consultationType)
		params.Type = &value
	}

	if req.DateFilter != "" || req.Date != "" {
		from, to, err := dateRange(req.DateFilter, req.Date, s.now())
		if err != nil {
			return transport.ConsultationListResponse{}, err
		}
		params.From = &from
		params.To = &to
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ConsultationListResponse{}, err
	}

	items := make([]transport.ConsultationResponse, len(result.Items))
	for i := range result.Items {
		items[i] = toResponse(&result.Items[i])
	}

	return transport.ConsultationListResponse{
		Items: items,
		Pagination: transport.Pagination{
			Page:       result.Page,
			Limit:      result.PageSize,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
	}, nil
}

// dateRange turns a calendar filter into [from, to). The anchor day is date
// (YYYY-MM-DD) or today; weeks start on Monday. A bare date means that day.
func dateRange(filter, date string, now time.Time) (time.Time, time.Time, error) {
	loc := now.Location()
	anchor := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.Validation("date inválida: use YYYY-MM-DD")
		}
		anchor = parsed
	}

	switch filter {
	case transport.DateFilterDay, "":
		return anchor, anchor.AddDate(0, 0, 1), nil
	case transport.DateFilterWeek:
		offset := (int(anchor.Weekday()) + 6) % 7
		start := anchor.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case transport.DateFilterMonth:
		start := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, apperr.Validation("dateFilter inválido: use day, week ou month")
	}
}

// owned loads a consultation and hides it from other doctors.
func (s *Service) owned(ctx context.Context, doctorID, id uuid.UUID) (*repository.Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.DoctorID != doctorID {
		return nil, apperr.NotFound(msgConsultationNotFound)
	}
	return c, nil
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, e); err != nil {
		s.log.WithContext(ctx).SideEffectFailure(e.Action, e.ResourceID.String(), err)
	}
}

func toResponse(c *repository.Consultation) transport.ConsultationResponse {
	return transport.ConsultationResponse{
		ID:               c.ID,
		DoctorID:         c.DoctorID,
		PatientID:        c.PatientID,
		PatientName:      c.PatientName,
		ConsultationType: c.ConsultationType,
		Status:           c.Status,
		Etapa:            c.Etapa,
		SolucaoEtapa:     c.SolucaoEtapa,
		ConsultaInicio:   c.ConsultaInicio,
		GoogleEventID:    c.GoogleEventID,
		GoogleMeetLink:   c.GoogleMeetLink,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
