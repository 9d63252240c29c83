// Package audit appends access and change records for clinical data.
// Recording is a side channel: failures are logged by the caller and never
// undo the primary write.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"consulta_backend/platform/apperr"
	"consulta_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActorDoctor     = "doctor"
	ActorAutomation = "automation"

	ActionCreate     = "consultation.create"
	ActionFieldPatch = "consultation.field_patch"
	ActionAdvance    = "consultation.advance"

	ResourceConsultation = "consultation"

	// LegalBasisHealthCare is LGPD art. 11, II, f: health protection by
	// health professionals.
	LegalBasisHealthCare = "LGPD art. 11, II, f"
)

// Entry is one append-only audit record.
type Entry struct {
	ActorID      *uuid.UUID
	ActorType    string
	Action       string
	ResourceType string
	ResourceID   uuid.UUID
	Before       map[string]any
	After        map[string]any
	LegalBasis   string
	Sensitive    bool
}

// Repository writes audit_logs rows.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New creates an audit repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

// Record stores e with sanitized snapshots. Missing legal basis defaults to
// health care.
func (r *Repository) Record(ctx context.Context, e Entry) error {
	row, err := prepare(e)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_logs (
			id, actor_id, actor_type, action, resource_type, resource_id,
			before_data, after_data, legal_basis, sensitive, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.New(), row.entry.ActorID, row.entry.ActorType, row.entry.Action, row.entry.ResourceType,
		row.entry.ResourceID, row.before, row.after, row.entry.LegalBasis, row.entry.Sensitive, r.now(),
	)
	if err != nil {
		return apperr.Persistence("falha ao registrar auditoria", err).WithOp("audit.Record")
	}
	return nil
}

type preparedRow struct {
	entry  Entry
	before []byte
	after  []byte
}

func prepare(e Entry) (preparedRow, error) {
	if e.LegalBasis == "" {
		e.LegalBasis = LegalBasisHealthCare
	}
	if e.ResourceType == "" {
		e.ResourceType = ResourceConsultation
	}
	before, err := encodeSnapshot(e.Before)
	if err != nil {
		return preparedRow{}, apperr.Internal("snapshot de auditoria inválido").WithOp("audit.prepare")
	}
	after, err := encodeSnapshot(e.After)
	if err != nil {
		return preparedRow{}, apperr.Internal("snapshot de auditoria inválido").WithOp("audit.prepare")
	}
	return preparedRow{entry: e, before: before, after: after}, nil
}

func encodeSnapshot(m map[string]any) ([]byte, error) {
	snap := sanitize.Snapshot(m)
	if snap == nil {
		return nil, nil
	}
	return json.Marshal(snap)
}
