package domain

import "strings"

// Status is the coarse lifecycle position of a consultation.
type Status string

const (
	StatusCreated          Status = "CREATED"
	StatusRecording        Status = "RECORDING"
	StatusProcessing       Status = "PROCESSING"
	StatusValidation       Status = "VALIDATION"
	StatusValidAnamnese    Status = "VALID_ANAMNESE"
	StatusValidDiagnostico Status = "VALID_DIAGNOSTICO"
	StatusValidSolucao     Status = "VALID_SOLUCAO"
	StatusCompleted        Status = "COMPLETED"
	StatusError            Status = "ERROR"
	StatusCancelled        Status = "CANCELLED"
	StatusAgendamento      Status = "AGENDAMENTO"
)

// Stage is the documentation phase (etapa). Empty means not yet assigned.
type Stage string

const (
	StageNone        Stage = ""
	StageAnamnese    Stage = "ANAMNESE"
	StageDiagnostico Stage = "DIAGNOSTICO"
	StageSolucao     Stage = "SOLUCAO"
)

// SolutionStage is one of the six treatment pillars (solucao_etapa).
// Empty unless Stage is SOLUCAO.
type SolutionStage string

const (
	SolutionNone            SolutionStage = ""
	SolutionLTB             SolutionStage = "LTB"
	SolutionMentalidade     SolutionStage = "MENTALIDADE"
	SolutionAlimentacao     SolutionStage = "ALIMENTACAO"
	SolutionSuplementacao   SolutionStage = "SUPLEMENTACAO"
	SolutionAtividadeFisica SolutionStage = "ATIVIDADE_FISICA"
	SolutionHabitosDeVida   SolutionStage = "HABITOS_DE_VIDA"
)

// ConsultationType distinguishes in-person from remote consultations.
type ConsultationType string

const (
	TypePresencial   ConsultationType = "PRESENCIAL"
	TypeTelemedicina ConsultationType = "TELEMEDICINA"
)

var knownStatuses = map[Status]struct{}{
	StatusCreated: {}, StatusRecording: {}, StatusProcessing: {}, StatusValidation: {},
	StatusValidAnamnese: {}, StatusValidDiagnostico: {}, StatusValidSolucao: {},
	StatusCompleted: {}, StatusError: {}, StatusCancelled: {}, StatusAgendamento: {},
}

var knownStages = map[Stage]struct{}{
	StageAnamnese: {}, StageDiagnostico: {}, StageSolucao: {},
}

var knownSolutionStages = map[SolutionStage]struct{}{
	SolutionLTB: {}, SolutionMentalidade: {}, SolutionAlimentacao: {},
	SolutionSuplementacao: {}, SolutionAtividadeFisica: {}, SolutionHabitosDeVida: {},
}

// initial statuses a consultation may be created with
var creatableStatuses = map[Status]struct{}{
	StatusCreated: {}, StatusRecording: {}, StatusAgendamento: {},
}

func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

func IsKnownStage(s Stage) bool {
	_, ok := knownStages[s]
	return ok
}

func IsKnownSolutionStage(s SolutionStage) bool {
	_, ok := knownSolutionStages[s]
	return ok
}

func IsKnownConsultationType(t ConsultationType) bool {
	return t == TypePresencial || t == TypeTelemedicina
}

// IsCreatableStatus reports whether a new consultation may start in s.
func IsCreatableStatus(s Status) bool {
	_, ok := creatableStatuses[s]
	return ok
}

// IsTerminal reports whether no further transitions leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// ParseStatus normalizes user input. Unknown values are returned as-is so
// callers can reject them with a precise message.
func ParseStatus(raw string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(raw)))
}

func ParseStage(raw string) Stage {
	return Stage(strings.ToUpper(strings.TrimSpace(raw)))
}

func ParseSolutionStage(raw string) SolutionStage {
	return SolutionStage(strings.ToUpper(strings.TrimSpace(raw)))
}

func ParseConsultationType(raw string) ConsultationType {
	return ConsultationType(strings.ToUpper(strings.TrimSpace(raw)))
}
