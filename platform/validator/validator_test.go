package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type patchBody struct {
	FieldPath string `validate:"required,fieldpath"`
}

func TestFieldPathRule(t *testing.T) {
	v := New()

	valid := []string{"a_historico_risco.medicacoes_atuais", "ltb_data.resumo", "d_estado_geral.x1"}
	for _, p := range valid {
		assert.NoError(t, v.Struct(patchBody{FieldPath: p}), p)
	}

	invalid := []string{"", "semponto", ".campo", "prefixo.", "a.b.c", "A_upper.campo", "a_x.9campo"}
	for _, p := range invalid {
		assert.Error(t, v.Struct(patchBody{FieldPath: p}), p)
	}
}

type listQuery struct {
	DateFilter string `form:"dateFilter" validate:"omitempty,oneof=day week month"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
}

type editBody struct {
	FieldPath   string `json:"fieldPath" validate:"required,fieldpath"`
	Instruction string `json:"instruction" validate:"required,max=10"`
}

func TestDetailsUsesRequestNamesAndPortuguese(t *testing.T) {
	v := New()

	details := Details(v.Struct(editBody{FieldPath: "semponto", Instruction: "longa demais aqui"}))
	assert.Equal(t, map[string]string{
		"fieldPath":   "use o formato prefixo.campo",
		"instruction": "deve ter no máximo 10 caracteres",
	}, details)

	details = Details(v.Struct(listQuery{DateFilter: "year", Page: -1}))
	assert.Equal(t, map[string]string{
		"dateFilter": "deve ser um de: day, week, month",
		"page":       "deve ser no mínimo 1",
	}, details)

	assert.Equal(t, map[string]string{"fieldPath": "campo obrigatório", "instruction": "campo obrigatório"}, Details(v.Struct(editBody{})))
}

func TestDetailsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, Details(nil))
	assert.Nil(t, Details(assert.AnError))
}
