package domain

import (
	"fmt"
	"strings"

	"consulta_backend/platform/apperr"
)

// FieldPath is "<domain-prefix>.<field-name>".
type FieldPath struct {
	Prefix string
	Field  string
}

func (p FieldPath) String() string {
	return p.Prefix + "." + p.Field
}

// ParseFieldPath splits a dotted path. Exactly one dot with non-empty sides
// is accepted.
func ParseFieldPath(raw string) (FieldPath, error) {
	raw = strings.TrimSpace(raw)
	prefix, field, ok := strings.Cut(raw, ".")
	if !ok || prefix == "" || field == "" || strings.Contains(field, ".") {
		return FieldPath{}, apperr.Validation(fmt.Sprintf("fieldPath inválido: %q (esperado <dominio>.<campo>)", raw))
	}
	return FieldPath{Prefix: prefix, Field: field}, nil
}
