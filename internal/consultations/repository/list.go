package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ListParams defines filters for listing a doctor's consultations.
// From/To bound COALESCE(consulta_inicio, created_at) as [From, To).
type ListParams struct {
	DoctorID uuid.UUID
	Search   string
	Status   *string
	Type     *string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// ListResult contains one page plus the unpaged total.
type ListResult struct {
	Items      []Consultation
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// List returns a page of consultations, newest effective date first.
// The count and the page are fetched concurrently.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	baseQuery := `FROM consultations WHERE doctor_id = $1`
	args := []interface{}{params.DoctorID}
	argIndex := 2

	addFilter(&baseQuery, &args, &argIndex, params.Status != nil, " AND status = $%d", deref(params.Status))
	addFilter(&baseQuery, &args, &argIndex, params.Type != nil, " AND consultation_type = $%d", deref(params.Type))
	addFilter(&baseQuery, &args, &argIndex, params.From != nil, " AND COALESCE(consulta_inicio, created_at) >= $%d", derefTime(params.From))
	addFilter(&baseQuery, &args, &argIndex, params.To != nil, " AND COALESCE(consulta_inicio, created_at) < $%d", derefTime(params.To))
	addFilter(&baseQuery, &args, &argIndex, params.Search != "", ` AND patient_name ILIKE $%d ESCAPE '\'`, containsPattern(params.Search))

	offset := (params.Page - 1) * params.PageSize
	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY COALESCE(consulta_inicio, created_at) DESC, id LIMIT $%d OFFSET $%d`,
		consultationColumns, baseQuery, argIndex, argIndex+1)
	pageArgs := append(append([]interface{}{}, args...), params.PageSize, offset)

	var total int
	items := make([]Consultation, 0, params.PageSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
			return errorf("contar consultas", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, selectQuery, pageArgs...)
		if err != nil {
			return errorf("listar consultas", err)
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanConsultation(rows)
			if err != nil {
				return errorf("ler consulta", err)
			}
			items = append(items, *c)
		}
		if err := rows.Err(); err != nil {
			return errorf("iterar consultas", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: TotalPages(total, params.PageSize),
	}, nil
}

// TotalPages is ceil(total/pageSize); zero when there is nothing to page.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches term literally anywhere in the column.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func addFilter(baseQuery *string, args *[]interface{}, argIndex *int, apply bool, clause string, value interface{}) {
	if !apply {
		return
	}
	*baseQuery += fmt.Sprintf(clause, *argIndex)
	*args = append(*args, value)
	*argIndex++
}

func derefTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
