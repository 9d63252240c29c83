// Package doctors resolves the authenticated principal to the doctor it
// acts as. The lookup goes through a bounded retry and an optional Redis cache.
package doctors

import (
	"context"
	"errors"

	"consulta_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the doctors table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a doctors repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindIDByUserID returns the doctor id registered for an auth user.
func (r *Repository) FindIDByUserID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM doctors WHERE user_id = $1`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, apperr.NotFound("médico não encontrado para o usuário autenticado")
		}
		// left unwrapped so the retry layer can classify it
		return uuid.Nil, err
	}
	return id, nil
}
