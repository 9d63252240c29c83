package service

import (
	"context"
	"strings"

	"consulta_backend/internal/audit"
	"consulta_backend/internal/consultations/domain"
	"consulta_backend/internal/consultations/repository"
	"consulta_backend/internal/consultations/transport"
	"consulta_backend/internal/events"
	"consulta_backend/internal/notify"
	"consulta_backend/platform/apperr"

	"github.com/google/uuid"
)

// Advance moves a consultation one step through the stage machine. An empty
// request takes the default step.
func (s *Service) Advance(ctx context.Context, doctorID, id uuid.UUID, req transport.AdvanceRequest) (transport.ConsultationResponse, error) {
	target, err := parseTarget(req)
	if err != nil {
		return transport.ConsultationResponse{}, err
	}

	c, err := s.owned(ctx, doctorID, id)
	if err != nil {
		return transport.ConsultationResponse{}, err
	}

	from := c.State()
	transition, err := domain.Resolve(from, target)
	if err != nil {
		return transport.ConsultationResponse{}, err
	}
	to := transition.Next(from)
	if err := to.Validate(); err != nil {
		return transport.ConsultationResponse{}, apperr.Wrap(apperr.KindInternal, "estado de destino inconsistente", err).WithOp("consultations.Advance")
	}

	change := repository.StateChange{
		ConsultationID: c.ID,
		DoctorID:       doctorID,
		From:           from,
		To:             to,
	}
	if transition.RequiresSchedule {
		if req.ConsultaInicio == nil && c.ConsultaInicio == nil {
			return transport.ConsultationResponse{}, apperr.Validation(msgScheduleRequiresStart)
		}
		change.ConsultaInicio = req.ConsultaInicio
	}

	updated, err := s.repo.TransitionState(ctx, change)
	if err != nil {
		return transport.ConsultationResponse{}, err
	}

	s.record(ctx, audit.Entry{
		ActorID:    &doctorID,
		ActorType:  audit.ActorDoctor,
		Action:     audit.ActionAdvance,
		ResourceID: c.ID,
		Before:     c.Snapshot(),
		After:      updated.Snapshot(),
	})
	s.bus.Publish(ctx, events.ConsultationStageChanged{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: c.ID,
		DoctorID:       doctorID,
		Action:         string(transition.Action),
		FromStatus:     string(from.Status),
		ToStatus:       string(to.Status),
		Stage:          string(to.Stage),
		SolutionStage:  string(to.SolutionStage),
	})

	if transition.Entry != domain.EntryNone {
		s.notifier.NotifyStageEntry(ctx, notify.StageEntry{
			Event:          string(transition.Entry),
			ConsultationID: c.ID.String(),
			DoctorID:       doctorID.String(),
			PatientID:      c.PatientID.String(),
			SolutionStage:  string(to.SolutionStage),
		})
	}

	return toResponse(updated), nil
}

func parseTarget(req transport.AdvanceRequest) (domain.Target, error) {
	var target domain.Target
	if strings.TrimSpace(req.TargetStatus) != "" {
		target.Status = domain.ParseStatus(req.TargetStatus)
		if !domain.IsKnownStatus(target.Status) {
			return domain.Target{}, apperr.Validation("targetStatus inválido: " + req.TargetStatus)
		}
	}
	if strings.TrimSpace(req.TargetStage) != "" {
		target.Stage = domain.ParseStage(req.TargetStage)
		if !domain.IsKnownStage(target.Stage) {
			return domain.Target{}, apperr.Validation("targetStage inválido: " + req.TargetStage)
		}
	}
	if strings.TrimSpace(req.TargetSolutionStage) != "" {
		target.SolutionStage = domain.ParseSolutionStage(req.TargetSolutionStage)
		if !domain.IsKnownSolutionStage(target.SolutionStage) {
			return domain.Target{}, apperr.Validation("targetSolutionStage inválido: " + req.TargetSolutionStage)
		}
	}
	return target, nil
}
