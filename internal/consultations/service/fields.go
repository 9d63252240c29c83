package service

import (
	"context"

	"consulta_backend/internal/audit"
	"consulta_backend/internal/consultations/repository"
	"consulta_backend/internal/consultations/transport"
	"consulta_backend/internal/events"
	"consulta_backend/internal/notify"
	"consulta_backend/platform/sanitize"

	"github.com/google/uuid"
)

const msgInstructionFailed = "Não foi possível enviar a instrução para a IA; tente novamente"

// PatchField applies a doctor's manual edit and notifies the automation
// service once the write is stored.
func (s *Service) PatchField(ctx context.Context, doctorID, id uuid.UUID, req transport.PatchFieldRequest) (transport.PatchFieldResponse, error) {
	c, err := s.owned(ctx, doctorID, id)
	if err != nil {
		return transport.PatchFieldResponse{}, err
	}
	return s.patch(ctx, c, req, events.OriginManual, &doctorID)
}

// ApplyAutomationPatch stores a value produced by the automation service in
// response to an earlier instruction. It is not scoped to a doctor.
func (s *Service) ApplyAutomationPatch(ctx context.Context, id uuid.UUID, req transport.PatchFieldRequest) (transport.PatchFieldResponse, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PatchFieldResponse{}, err
	}
	return s.patch(ctx, c, req, events.OriginAI, nil)
}

func (s *Service) patch(ctx context.Context, c *repository.Consultation, req transport.PatchFieldRequest, origin events.Origin, actorID *uuid.UUID) (transport.PatchFieldResponse, error) {
	result, err := s.applier.Apply(ctx, c.ID, req.FieldPath, req.Value)
	if err != nil {
		return transport.PatchFieldResponse{}, err
	}
	entry := result.Resolution.Entry

	if result.Changed {
		actorType := audit.ActorDoctor
		if origin == events.OriginAI {
			actorType = audit.ActorAutomation
		}
		s.record(ctx, audit.Entry{
			ActorID:    actorID,
			ActorType:  actorType,
			Action:     audit.ActionFieldPatch,
			ResourceID: c.ID,
			Before:     map[string]any{result.Resolution.Path.String(): result.Previous},
			After:      map[string]any{result.Resolution.Path.String(): result.Value},
			Sensitive:  true,
		})
	}

	// AI-origin writes always publish a refresh; the editor is waiting on it
	if result.Changed || origin == events.OriginAI {
		s.bus.Publish(ctx, events.DomainRefreshed{
			BaseEvent:      events.NewBaseEvent(),
			ConsultationID: c.ID,
			DoctorID:       c.DoctorID,
			Prefix:         entry.Prefix,
			FieldPath:      result.Resolution.Path.String(),
			Origin:         origin,
			Document:       result.Document,
		})
	}

	if result.Changed && origin == events.OriginManual {
		s.notifier.NotifyFieldPatch(ctx, notify.FieldPatch{
			Category:       string(entry.Category),
			ConsultationID: c.ID.String(),
			FieldPath:      result.Resolution.Path.String(),
			Value:          result.Value,
			Origin:         notify.OriginManual,
			SolutionStage:  string(entry.SolutionStage),
		})
	}

	return transport.PatchFieldResponse{Success: true, Data: result.Document}, nil
}

// RequestAIEdit forwards a natural-language instruction for one field. The
// new value arrives later through ApplyAutomationPatch, so a delivery
// failure is reported in the response body rather than as an error.
func (s *Service) RequestAIEdit(ctx context.Context, doctorID, id uuid.UUID, req transport.AIEditRequest) (transport.AIEditResponse, error) {
	res, err := s.registry.Resolve(req.FieldPath)
	if err != nil {
		return transport.AIEditResponse{}, err
	}
	c, err := s.owned(ctx, doctorID, id)
	if err != nil {
		return transport.AIEditResponse{}, err
	}

	reply, err := s.notifier.SendInstruction(ctx, notify.Instruction{
		Category:       string(res.Entry.Category),
		ConsultationID: c.ID.String(),
		FieldPath:      res.Path.String(),
		Text:           sanitize.Text(req.Instruction),
		SolutionStage:  string(res.Entry.SolutionStage),
	})
	if err != nil {
		return transport.AIEditResponse{Delivered: false, Message: msgInstructionFailed}, nil
	}

	return transport.AIEditResponse{Delivered: true, Message: reply.Message(), Reply: &reply}, nil
}
