package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"consulta_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Documents stores domain sub-documents: one jsonb row per consultation in
// each domain table. Table names come from the field registry.
type Documents struct {
	pool *pgxpool.Pool
}

// NewDocuments creates a sub-document store.
func NewDocuments(pool *pgxpool.Pool) *Documents {
	return &Documents{pool: pool}
}

// Get returns the sub-document, or nil when the row does not exist yet.
func (d *Documents) Get(ctx context.Context, table string, consultationID uuid.UUID) (map[string]any, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE consulta_id = $1`, pgx.Identifier{table}.Sanitize())

	var data map[string]any
	if err := d.pool.QueryRow(ctx, query, consultationID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Persistence("falha ao ler dados do domínio", err).WithOp("documents.Get " + table)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// SetField writes one field with a single upsert, creating the row on first
// edit, and returns the whole refreshed document. Concurrent writes to the
// same field are last-write-wins.
func (d *Documents) SetField(ctx context.Context, table string, consultationID uuid.UUID, field string, value any) (map[string]any, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, apperr.Validation("valor não serializável em JSON")
	}

	ident := pgx.Identifier{table}.Sanitize()
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (consulta_id, data, created_at, updated_at)
		VALUES ($1, jsonb_build_object($2::text, $3::jsonb), now(), now())
		ON CONFLICT (consulta_id) DO UPDATE
		SET data = %[1]s.data || jsonb_build_object($2::text, $3::jsonb),
			updated_at = now()
		RETURNING data`, ident)

	var data map[string]any
	if err := d.pool.QueryRow(ctx, query, consultationID, field, json.RawMessage(encoded)).Scan(&data); err != nil {
		return nil, apperr.Persistence("falha ao salvar campo", err).WithOp("documents.SetField " + table)
	}
	return data, nil
}
