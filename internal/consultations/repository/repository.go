package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"consulta_backend/internal/consultations/domain"
	"consulta_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Consultation represents the consultation database model
type Consultation struct {
	ID               uuid.UUID  `db:"id"`
	DoctorID         uuid.UUID  `db:"doctor_id"`
	PatientID        uuid.UUID  `db:"patient_id"`
	PatientName      string     `db:"patient_name"`
	ConsultationType string     `db:"consultation_type"`
	Status           string     `db:"status"`
	Etapa            *string    `db:"etapa"`
	SolucaoEtapa     *string    `db:"solucao_etapa"`
	ConsultaInicio   *time.Time `db:"consulta_inicio"`
	GoogleEventID    *string    `db:"google_event_id"`
	GoogleMeetLink   *string    `db:"google_meet_link"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// State returns the orchestrator triple.
func (c Consultation) State() domain.State {
	return domain.State{
		Status:        domain.Status(c.Status),
		Stage:         domain.Stage(deref(c.Etapa)),
		SolutionStage: domain.SolutionStage(deref(c.SolucaoEtapa)),
	}
}

// Snapshot is the audit view of the row.
func (c Consultation) Snapshot() map[string]any {
	return map[string]any{
		"status":          c.Status,
		"etapa":           derefOrNil(c.Etapa),
		"solucao_etapa":   derefOrNil(c.SolucaoEtapa),
		"consulta_inicio": c.ConsultaInicio,
		"patient_id":      c.PatientID,
		"tipo":            c.ConsultationType,
	}
}

// Repository provides database operations for consultations
type Repository struct {
	pool *pgxpool.Pool
}

const consultationNotFoundMsg = "consulta não encontrada"

const consultationColumns = `id, doctor_id, patient_id, patient_name, consultation_type, status, etapa, solucao_etapa,
		consulta_inicio, google_event_id, google_meet_link, created_at, updated_at`

// New creates a new consultations repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsultation(row rowScanner) (*Consultation, error) {
	var c Consultation
	err := row.Scan(
		&c.ID, &c.DoctorID, &c.PatientID, &c.PatientName, &c.ConsultationType, &c.Status, &c.Etapa,
		&c.SolucaoEtapa, &c.ConsultaInicio, &c.GoogleEventID, &c.GoogleMeetLink, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new consultation
func (r *Repository) Create(ctx context.Context, c *Consultation) error {
	query := `
		INSERT INTO consultations (
			id, doctor_id, patient_id, patient_name, consultation_type, status, etapa, solucao_etapa,
			consulta_inicio, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.DoctorID, c.PatientID, c.PatientName, c.ConsultationType, c.Status, c.Etapa,
		c.SolucaoEtapa, c.ConsultaInicio, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return apperr.Persistence("falha ao criar consulta", err).WithOp("consultations.Create")
	}

	return nil
}

// GetByID retrieves a consultation by its ID. Ownership is checked by the caller.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1`

	c, err := scanConsultation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(consultationNotFoundMsg)
		}
		return nil, apperr.Persistence("falha ao buscar consulta", err).WithOp("consultations.GetByID")
	}

	return c, nil
}

// PatientBelongsToDoctor reports whether the patient is registered to the doctor.
func (r *Repository) PatientBelongsToDoctor(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1 AND doctor_id = $2)`,
		patientID, doctorID,
	).Scan(&exists)
	if err != nil {
		return false, apperr.Persistence("falha ao verificar paciente", err).WithOp("consultations.PatientBelongsToDoctor")
	}
	return exists, nil
}

// StateChange is a conditional state update. It only applies while the row
// still holds From.
type StateChange struct {
	ConsultationID uuid.UUID
	DoctorID       uuid.UUID
	From           domain.State
	To             domain.State
	ConsultaInicio *time.Time
}

// TransitionState applies a StateChange and returns the updated row.
// A row that moved on since it was read yields a Conflict.
func (r *Repository) TransitionState(ctx context.Context, change StateChange) (*Consultation, error) {
	query := `
		UPDATE consultations SET
			status = $4,
			etapa = $5,
			solucao_etapa = $6,
			consulta_inicio = COALESCE($7, consulta_inicio),
			updated_at = now()
		WHERE id = $1 AND doctor_id = $2 AND status = $3
			AND etapa IS NOT DISTINCT FROM $8
			AND solucao_etapa IS NOT DISTINCT FROM $9
		RETURNING ` + consultationColumns

	c, err := scanConsultation(r.pool.QueryRow(ctx, query,
		change.ConsultationID, change.DoctorID, string(change.From.Status),
		string(change.To.Status), nullable(string(change.To.Stage)), nullable(string(change.To.SolutionStage)),
		change.ConsultaInicio,
		nullable(string(change.From.Stage)), nullable(string(change.From.SolutionStage)),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Conflict("a consulta foi alterada por outra operação; recarregue e tente novamente")
		}
		return nil, apperr.Persistence("falha ao atualizar estado da consulta", err).WithOp("consultations.TransitionState")
	}
	return c, nil
}

// SetCalendarLink stores the calendar-sync output.
func (r *Repository) SetCalendarLink(ctx context.Context, id uuid.UUID, eventID, meetLink string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE consultations SET google_event_id = $2, google_meet_link = $3, updated_at = now() WHERE id = $1`,
		id, nullable(eventID), nullable(meetLink),
	)
	if err != nil {
		return apperr.Persistence("falha ao salvar link da agenda", err).WithOp("consultations.SetCalendarLink")
	}
	return nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefOrNil(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

// errorf keeps wrapping consistent for scan/iterate failures.
func errorf(op string, err error) error {
	return apperr.Persistence(fmt.Sprintf("falha ao %s", op), err)
}
