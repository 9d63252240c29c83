package domain

import (
	"fmt"

	"consulta_backend/platform/apperr"
)

// Action names a row of the transition table. It is recorded in the audit
// trail and returned to clients.
type Action string

const (
	ActionStartRecording      Action = "start_recording"
	ActionStartProcessing     Action = "start_processing"
	ActionSchedule            Action = "schedule"
	ActionStartScheduled      Action = "start_scheduled"
	ActionSubmitAnamnese      Action = "submit_anamnese"
	ActionValidateAnamnese    Action = "validate_anamnese"
	ActionAdvanceDiagnostico  Action = "advance_diagnostico"
	ActionValidateDiagnostico Action = "validate_diagnostico"
	ActionAdvanceSolucao      Action = "advance_solucao"
	ActionValidateSolucao     Action = "validate_solucao"
	ActionAdvancePillar       Action = "advance_pillar"
	ActionSelectAlimentacao   Action = "select_alimentacao"
	ActionFinalize            Action = "finalize"
	ActionComplete            Action = "complete"
	ActionFail                Action = "fail"
	ActionCancel              Action = "cancel"
)

// EntryEvent is the stage-entry notification fired after a transition
// lands. Empty means no notification.
type EntryEvent string

const (
	EntryNone         EntryEvent = ""
	EntryDiagnostico  EntryEvent = "diagnostico"
	EntrySolucao      EntryEvent = "solucao"
	EntrySolucaoEtapa EntryEvent = "solucao_etapa"
	EntryEntregaveis  EntryEvent = "entregaveis"
)

// Pattern matches a source state. Nil slices match anything.
type Pattern struct {
	Statuses       []Status
	Stages         []Stage
	SolutionStages []SolutionStage
}

func (p Pattern) Matches(s State) bool {
	return containsOrEmpty(p.Statuses, s.Status) &&
		containsOrEmpty(p.Stages, s.Stage) &&
		containsOrEmpty(p.SolutionStages, s.SolutionStage)
}

func containsOrEmpty[T comparable](set []T, v T) bool {
	if set == nil {
		return true
	}
	for _, item := range set {
		if item == v {
			return true
		}
	}
	return false
}

// Transition is one legal move. KeepStage rows carry the source stage and
// solution stage over unchanged (used by fail and cancel).
type Transition struct {
	Action    Action
	From      Pattern
	To        State
	KeepStage bool
	Default   bool

	// RequiresSchedule rows need consulta_inicio to be known.
	RequiresSchedule bool
	Entry            EntryEvent
}

// Next returns the state the transition produces from s.
func (t Transition) Next(s State) State {
	if t.KeepStage {
		return State{Status: t.To.Status, Stage: s.Stage, SolutionStage: s.SolutionStage}
	}
	return t.To
}

func statuses(s ...Status) []Status                { return s }
func stages(s ...Stage) []Stage                    { return s }
func solutions(s ...SolutionStage) []SolutionStage { return s }

var nonTerminal = statuses(
	StatusCreated, StatusRecording, StatusProcessing, StatusValidation,
	StatusValidAnamnese, StatusValidDiagnostico, StatusValidSolucao, StatusAgendamento,
)

// pillar advances on the default path. ALIMENTACAO is reachable only by
// explicit selection and rejoins at SUPLEMENTACAO.
func pillarStep(from, to SolutionStage) Transition {
	return Transition{
		Action:  ActionAdvancePillar,
		From:    Pattern{Statuses: statuses(StatusValidSolucao), Stages: stages(StageSolucao), SolutionStages: solutions(from)},
		To:      State{Status: StatusValidSolucao, Stage: StageSolucao, SolutionStage: to},
		Default: true,
		Entry:   EntrySolucaoEtapa,
	}
}

var transitions = []Transition{
	{
		Action:  ActionStartRecording,
		From:    Pattern{Statuses: statuses(StatusCreated)},
		To:      State{Status: StatusRecording},
		Default: true,
	},
	{
		Action: ActionStartProcessing,
		From:   Pattern{Statuses: statuses(StatusCreated)},
		To:     State{Status: StatusProcessing},
	},
	{
		Action:  ActionStartProcessing,
		From:    Pattern{Statuses: statuses(StatusRecording)},
		To:      State{Status: StatusProcessing},
		Default: true,
	},
	{
		Action:           ActionSchedule,
		From:             Pattern{Statuses: statuses(StatusCreated)},
		To:               State{Status: StatusAgendamento},
		RequiresSchedule: true,
	},
	{
		Action: ActionStartScheduled,
		From:   Pattern{Statuses: statuses(StatusAgendamento)},
		To:     State{Status: StatusCreated},
	},
	{
		Action:  ActionStartScheduled,
		From:    Pattern{Statuses: statuses(StatusAgendamento)},
		To:      State{Status: StatusRecording},
		Default: true,
	},
	{
		Action:  ActionSubmitAnamnese,
		From:    Pattern{Statuses: statuses(StatusProcessing), Stages: stages(StageNone, StageAnamnese)},
		To:      State{Status: StatusValidation, Stage: StageAnamnese},
		Default: true,
	},
	{
		Action:  ActionValidateAnamnese,
		From:    Pattern{Statuses: statuses(StatusValidation), Stages: stages(StageAnamnese)},
		To:      State{Status: StatusValidAnamnese, Stage: StageAnamnese},
		Default: true,
	},
	{
		Action:  ActionAdvanceDiagnostico,
		From:    Pattern{Statuses: statuses(StatusValidAnamnese)},
		To:      State{Status: StatusProcessing, Stage: StageDiagnostico},
		Default: true,
		Entry:   EntryDiagnostico,
	},
	{
		Action:  ActionValidateDiagnostico,
		From:    Pattern{Statuses: statuses(StatusProcessing), Stages: stages(StageDiagnostico)},
		To:      State{Status: StatusValidDiagnostico, Stage: StageDiagnostico},
		Default: true,
	},
	{
		Action:  ActionAdvanceSolucao,
		From:    Pattern{Statuses: statuses(StatusValidDiagnostico)},
		To:      State{Status: StatusProcessing, Stage: StageSolucao, SolutionStage: SolutionLTB},
		Default: true,
		Entry:   EntrySolucao,
	},
	{
		Action:  ActionValidateSolucao,
		From:    Pattern{Statuses: statuses(StatusProcessing), Stages: stages(StageSolucao), SolutionStages: solutions(SolutionLTB)},
		To:      State{Status: StatusValidSolucao, Stage: StageSolucao, SolutionStage: SolutionLTB},
		Default: true,
	},
	pillarStep(SolutionLTB, SolutionMentalidade),
	pillarStep(SolutionMentalidade, SolutionSuplementacao),
	pillarStep(SolutionAlimentacao, SolutionSuplementacao),
	pillarStep(SolutionSuplementacao, SolutionAtividadeFisica),
	pillarStep(SolutionAtividadeFisica, SolutionHabitosDeVida),
	{
		Action: ActionSelectAlimentacao,
		From: Pattern{
			Statuses:       statuses(StatusValidSolucao),
			Stages:         stages(StageSolucao),
			SolutionStages: solutions(SolutionMentalidade, SolutionSuplementacao),
		},
		To:    State{Status: StatusValidSolucao, Stage: StageSolucao, SolutionStage: SolutionAlimentacao},
		Entry: EntrySolucaoEtapa,
	},
	{
		Action:  ActionFinalize,
		From:    Pattern{Statuses: statuses(StatusValidSolucao), Stages: stages(StageSolucao), SolutionStages: solutions(SolutionHabitosDeVida)},
		To:      State{Status: StatusProcessing, Stage: StageSolucao, SolutionStage: SolutionHabitosDeVida},
		Default: true,
		Entry:   EntryEntregaveis,
	},
	{
		Action:  ActionComplete,
		From:    Pattern{Statuses: statuses(StatusProcessing), Stages: stages(StageSolucao), SolutionStages: solutions(SolutionHabitosDeVida)},
		To:      State{Status: StatusCompleted, Stage: StageSolucao, SolutionStage: SolutionHabitosDeVida},
		Default: true,
	},
	{
		Action:    ActionFail,
		From:      Pattern{Statuses: nonTerminal},
		To:        State{Status: StatusError},
		KeepStage: true,
	},
	{
		Action:    ActionCancel,
		From:      Pattern{Statuses: nonTerminal},
		To:        State{Status: StatusCancelled},
		KeepStage: true,
	},
}

// Transitions returns a copy of the table.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// Target is a requested destination. Zero fields are unconstrained; a
// fully zero Target asks for the default transition.
type Target struct {
	Status        Status
	Stage         Stage
	SolutionStage SolutionStage
}

func (t Target) IsZero() bool {
	return t.Status == "" && t.Stage == StageNone && t.SolutionStage == SolutionNone
}

func (t Target) accepts(s State) bool {
	return (t.Status == "" || t.Status == s.Status) &&
		(t.Stage == StageNone || t.Stage == s.Stage) &&
		(t.SolutionStage == SolutionNone || t.SolutionStage == s.SolutionStage)
}

// Available lists the transitions legal from s, defaults first.
func Available(s State) []Transition {
	var defaults, explicit []Transition
	for _, t := range transitions {
		if !t.From.Matches(s) {
			continue
		}
		if t.Default {
			defaults = append(defaults, t)
		} else {
			explicit = append(explicit, t)
		}
	}
	return append(defaults, explicit...)
}

// Resolve picks the transition from current toward target. An empty target
// selects the default row. Otherwise the rows whose resulting state agrees
// with every set target component are candidates; a single candidate wins,
// several are settled by the default flag. No candidate is a Validation error.
func Resolve(current State, target Target) (Transition, error) {
	if current.Status.IsTerminal() {
		return Transition{}, apperr.Validation(fmt.Sprintf("consulta em estado final %s não pode avançar", current.Status))
	}

	var candidates []Transition
	for _, t := range Available(current) {
		if target.IsZero() {
			if t.Default {
				return t, nil
			}
			continue
		}
		if target.accepts(t.Next(current)) {
			candidates = append(candidates, t)
		}
	}

	switch len(candidates) {
	case 0:
		if target.IsZero() {
			return Transition{}, apperr.Validation(fmt.Sprintf("nenhuma transição padrão a partir de %s", current))
		}
		return Transition{}, apperr.Validation(fmt.Sprintf("transição inválida de %s para %s", current, describeTarget(target)))
	case 1:
		return candidates[0], nil
	}
	for _, t := range candidates {
		if t.Default {
			return t, nil
		}
	}
	return Transition{}, apperr.Validation(fmt.Sprintf("transição ambígua de %s para %s", current, describeTarget(target)))
}

func describeTarget(t Target) string {
	status := string(t.Status)
	if status == "" {
		status = "*"
	}
	return State{Status: Status(status), Stage: t.Stage, SolutionStage: t.SolutionStage}.String()
}
