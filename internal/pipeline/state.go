package pipeline

// State is the orchestrator's position in the rollback pipeline. Progression
// to the next state requires the previous step's contract to succeed; any
// failure transitions directly to Aborted and no later step runs.
type State int

const (
	Idle State = iota
	ResolvingTarget
	ConfirmingIntent
	BackingUp
	Reverting
	Verifying
	// LedgerUpdated is the terminal state of a fully verified rollback.
	LedgerUpdated
	// Reported is the dry-run terminal state: target resolved, nothing mutated.
	Reported
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ResolvingTarget:
		return "ResolvingTarget"
	case ConfirmingIntent:
		return "ConfirmingIntent"
	case BackingUp:
		return "BackingUp"
	case Reverting:
		return "Reverting"
	case Verifying:
		return "Verifying"
	case LedgerUpdated:
		return "LedgerUpdated"
	case Reported:
		return "Reported"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the pipeline has finished in this state.
func (s State) Terminal() bool {
	return s == LedgerUpdated || s == Reported || s == Aborted
}
