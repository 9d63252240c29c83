package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareDefaultsAndSanitizes(t *testing.T) {
	row, err := prepare(Entry{
		ActorType:  ActorDoctor,
		Action:     ActionFieldPatch,
		ResourceID: uuid.New(),
		Before:     nil,
		After:      map[string]any{"alergias": "dipirona", "updated_at": "2024-01-01", "vazio": nil},
		Sensitive:  true,
	})

	require.NoError(t, err)
	assert.Equal(t, LegalBasisHealthCare, row.entry.LegalBasis)
	assert.Equal(t, ResourceConsultation, row.entry.ResourceType)
	assert.Nil(t, row.before)
	assert.JSONEq(t, `{"alergias":"dipirona"}`, string(row.after))
}

func TestPrepareKeepsExplicitLegalBasis(t *testing.T) {
	row, err := prepare(Entry{LegalBasis: "consentimento", ResourceType: "patient"})
	require.NoError(t, err)
	assert.Equal(t, "consentimento", row.entry.LegalBasis)
	assert.Equal(t, "patient", row.entry.ResourceType)
}
