package service

import (
	"context"
	"encoding/json"
	"reflect"

	"consulta_backend/internal/consultations/domain"
	"consulta_backend/platform/apperr"
	"consulta_backend/platform/sanitize"

	"github.com/google/uuid"
)

// PatchResult is the outcome of one field write.
type PatchResult struct {
	Resolution domain.Resolution
	Document   map[string]any
	Previous   any
	Value      any
	Changed    bool
}

// Applier writes single fields into domain sub-documents. Writing a value
// equal to the stored one is a no-op.
type Applier struct {
	registry *domain.Registry
	docs     DocumentStore
}

func NewApplier(registry *domain.Registry, docs DocumentStore) *Applier {
	return &Applier{registry: registry, docs: docs}
}

// Apply routes fieldPath through the registry and upserts value. The whole
// refreshed sub-document is returned either way.
func (a *Applier) Apply(ctx context.Context, consultationID uuid.UUID, fieldPath string, value any) (PatchResult, error) {
	res, err := a.registry.Resolve(fieldPath)
	if err != nil {
		return PatchResult{}, err
	}

	normalized, err := normalize(value)
	if err != nil {
		return PatchResult{}, err
	}

	doc, err := a.docs.Get(ctx, res.Entry.Table, consultationID)
	if err != nil {
		return PatchResult{}, persistence("falha ao ler dados do domínio", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	previous := doc[res.Path.Field]
	if reflect.DeepEqual(previous, normalized) {
		return PatchResult{Resolution: res, Document: doc, Previous: previous, Value: normalized}, nil
	}

	updated, err := a.docs.SetField(ctx, res.Entry.Table, consultationID, res.Path.Field, normalized)
	if err != nil {
		return PatchResult{}, persistence("falha ao salvar campo", err)
	}

	return PatchResult{
		Resolution: res,
		Document:   updated,
		Previous:   previous,
		Value:      normalized,
		Changed:    true,
	}, nil
}

// normalize sanitizes strings and brings the value to the shape it has after
// a jsonb round trip, so comparisons against stored values are exact.
func normalize(value any) (any, error) {
	encoded, err := json.Marshal(sanitize.Value(value))
	if err != nil {
		return nil, apperr.Validation("valor não serializável em JSON")
	}
	var out any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, apperr.Validation("valor não serializável em JSON")
	}
	return out, nil
}

func persistence(msg string, err error) error {
	if apperr.GetKind(err) != apperr.KindUnknown {
		return err
	}
	return apperr.Persistence(msg, err)
}
