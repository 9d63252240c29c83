package domain

import "fmt"

// State is the orchestrator's view of a consultation: the triple it
// transitions between.
type State struct {
	Status        Status
	Stage         Stage
	SolutionStage SolutionStage
}

// Validate enforces that a solution stage is present exactly when the stage
// is SOLUCAO, and that every set component is a known value.
func (s State) Validate() error {
	if !IsKnownStatus(s.Status) {
		return fmt.Errorf("status desconhecido: %q", s.Status)
	}
	if s.Stage != StageNone && !IsKnownStage(s.Stage) {
		return fmt.Errorf("etapa desconhecida: %q", s.Stage)
	}
	if s.SolutionStage != SolutionNone && !IsKnownSolutionStage(s.SolutionStage) {
		return fmt.Errorf("solucao_etapa desconhecida: %q", s.SolutionStage)
	}
	if (s.Stage == StageSolucao) != (s.SolutionStage != SolutionNone) {
		return fmt.Errorf("solucao_etapa deve estar definida se e somente se etapa for SOLUCAO")
	}
	return nil
}

func (s State) String() string {
	out := string(s.Status)
	if s.Stage != StageNone {
		out += "(" + string(s.Stage)
		if s.SolutionStage != SolutionNone {
			out += "," + string(s.SolutionStage)
		}
		out += ")"
	}
	return out
}
