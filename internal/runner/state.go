package runner

// State is a step of the run pipeline.
type State int

const (
	Idle State = iota
	Resolving
	Fetching
	Validating
	Invoking
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Fetching:
		return "fetching"
	case Validating:
		return "validating"
	case Invoking:
		return "invoking"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
