package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextKeepsClinicalText(t *testing.T) {
	tests := []string{
		"glicemia <100 e LDL >160",
		"meta PA < 130/80 e IMC > 25",
		"  <b>negrito</b> &lt;literal&gt; ",
		"linha 1\nlinha 2\tcom tab",
	}
	for _, in := range tests {
		assert.Equal(t, in, Text(in))
	}
}

func TestTextDropsControlCharacters(t *testing.T) {
	assert.Equal(t, "ab", Text("a\x00b\x1b"))
	assert.Equal(t, "a\uFFFDb", Text("a\xffb"))
}

func TestValueWalksNestedJSON(t *testing.T) {
	in := map[string]any{
		"nome":   "Ana\x00",
		"doses":  []any{"<10mg", 2.0},
		"ativo":  true,
		"vazio":  nil,
		"nested": map[string]any{"obs": " texto\x07 "},
	}
	out := Value(in).(map[string]any)

	assert.Equal(t, "Ana", out["nome"])
	assert.Equal(t, []any{"<10mg", 2.0}, out["doses"])
	assert.Equal(t, true, out["ativo"])
	assert.Nil(t, out["vazio"])
	assert.Equal(t, " texto ", out["nested"].(map[string]any)["obs"])
}

func TestSnapshotDropsVolatileKeys(t *testing.T) {
	out := Snapshot(map[string]any{
		"status":     "CREATED",
		"etapa":      nil,
		"created_at": "2024-01-01",
		"updated_at": "2024-01-02",
	})
	assert.Equal(t, map[string]any{"status": "CREATED"}, out)
	assert.Nil(t, Snapshot(nil))
}
