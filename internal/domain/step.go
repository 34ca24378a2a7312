package domain

// TransactionStep is the position of an authorization in the persistence sequence.
// Steps only move forward.
type TransactionStep int

const (
	StepHistory TransactionStep = iota
	StepClaimMaster
	StepAccompaniment
	StepPhases
	StepCommitted
)

func (s TransactionStep) String() string {
	switch s {
	case StepHistory:
		return "HISTORY"
	case StepClaimMaster:
		return "CLAIM_MASTER"
	case StepAccompaniment:
		return "ACCOMPANIMENT"
	case StepPhases:
		return "PHASES"
	case StepCommitted:
		return "COMMITTED"
	default:
		return "UNKNOWN"
	}
}

// Next returns the step that follows s.
func (s TransactionStep) Next() (TransactionStep, error) {
	switch s {
	case StepHistory:
		return StepClaimMaster, nil
	case StepClaimMaster:
		return StepAccompaniment, nil
	case StepAccompaniment:
		return StepPhases, nil
	case StepPhases:
		return StepCommitted, nil
	}
	return s, NewInvalidTransitionError(s, s+1)
}

func (s TransactionStep) IsTerminal() bool {
	return s == StepCommitted
}
