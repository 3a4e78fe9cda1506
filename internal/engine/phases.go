package engine

import "slices"

const (
	PhaseChampSelect  = "ChampSelect"
	PhaseFinalization = "FINALIZATION"
)

// TargetPhases are the client phases during which the flag is meaningful:
// skin selection and its finalization sub-phase.
var TargetPhases = []string{
	PhaseChampSelect,
	PhaseFinalization,
}

func InTargetPhase(phase string) bool {
	return slices.Contains(TargetPhases, phase)
}
