package scopekit

// State represents a lifecycle state a spawned unit can be in. Use the
// exported constants (StatePending, StateActive, etc.) instead of raw
// strings to avoid typos.
type State string

const (
	// StatePending contains units waiting in the pool queue.
	StatePending State = "pending"
	// StateActive contains units currently being run by workers.
	StateActive State = "active"
	// StateDelayed contains units scheduled for later or in backoff retry.
	StateDelayed State = "delayed"
	// StateSucceeded counts units that completed without error.
	StateSucceeded State = "succeeded"
	// StateDead counts units that permanently failed.
	StateDead State = "dead"
)

// AllStates lists every valid state in a stable order.
var AllStates = []State{StatePending, StateActive, StateDelayed, StateSucceeded, StateDead}

// String returns the raw string value of the state.
func (s State) String() string { return string(s) }

// ParseState converts a string into a State, returning an error for unknown values.
func ParseState(s string) (State, error) {
	switch s {
	case string(StatePending):
		return StatePending, nil
	case string(StateActive):
		return StateActive, nil
	case string(StateDelayed):
		return StateDelayed, nil
	case string(StateSucceeded):
		return StateSucceeded, nil
	case string(StateDead):
		return StateDead, nil
	default:
		return "", ErrUnknownState
	}
}
