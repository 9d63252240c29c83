// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var fieldPathPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[A-Za-z][A-Za-z0-9_]*$`)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the shared custom rules
// registered:
//
//	fieldpath  "<prefix>.<field>" in lower snake case prefix form
//
// Field errors are reported under the request's json or form name.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(requestName)
	_ = v.RegisterValidation("fieldpath", func(fl validator.FieldLevel) bool {
		return fieldPathPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

func requestName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Details maps each failed field to a message for the caller. Errors that
// did not come from Struct yield nil.
func Details(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo obrigatório"
	case "max":
		return fmt.Sprintf("deve ter no máximo %s caracteres", fe.Param())
	case "min":
		return fmt.Sprintf("deve ser no mínimo %s", fe.Param())
	case "oneof":
		return "deve ser um de: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "data inválida, use AAAA-MM-DD"
	case "fieldpath":
		return "use o formato prefixo.campo"
	default:
		return "valor inválido"
	}
}
