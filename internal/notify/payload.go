package notify

import "encoding/json"

const (
	OriginManual = "manual"
	OriginAI     = "IA"
)

// FieldPatch describes a persisted field edit.
type FieldPatch struct {
	Category       string
	ConsultationID string
	FieldPath      string
	Value          any
	Origin         string
	SolutionStage  string
}

// Instruction is a free-text edit request for the AI service. The value
// arrives later through the automation callback.
type Instruction struct {
	Category       string
	ConsultationID string
	FieldPath      string
	Text           string
	SolutionStage  string
}

// StageEntry announces that a consultation entered a stage.
type StageEntry struct {
	Event          string
	ConsultationID string
	DoctorID       string
	PatientID      string
	SolutionStage  string
}

// Delivery is one queued POST. It is what travels through the task queue.
type Delivery struct {
	Operation      string          `json:"operation"`
	ConsultationID string          `json:"consultationId"`
	URL            string          `json:"url"`
	Body           json.RawMessage `json:"body"`
}

// value is always present, even when null or false
func (p FieldPatch) body() ([]byte, error) {
	out := map[string]any{
		"fieldPath":  p.FieldPath,
		"value":      p.Value,
		"consultaId": p.ConsultationID,
		"origem":     p.Origin,
	}
	if p.SolutionStage != "" {
		out["solucao_etapa"] = p.SolutionStage
	}
	return json.Marshal(out)
}

func (i Instruction) body() ([]byte, error) {
	out := map[string]any{
		"fieldPath":  i.FieldPath,
		"texto":      i.Text,
		"consultaId": i.ConsultationID,
		"origem":     OriginAI,
	}
	if i.SolutionStage != "" {
		out["solucao_etapa"] = i.SolutionStage
	}
	return json.Marshal(out)
}

func (e StageEntry) body() ([]byte, error) {
	out := map[string]any{
		"event":      e.Event,
		"consultaId": e.ConsultationID,
		"doctorId":   e.DoctorID,
		"patientId":  e.PatientID,
	}
	if e.SolutionStage != "" {
		out["solucao_etapa"] = e.SolutionStage
	}
	return json.Marshal(out)
}
