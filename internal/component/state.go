package component

// State is one step in a component's lifecycle. Transitions never skip a
// state and a single component's transitions are never interleaved.
type State string

const (
	StateNotInitialized State = "not_initialized"
	StateInitializing   State = "initializing"
	StateReady          State = "ready"
	StateFailed         State = "failed"
	StateCleaningUp     State = "cleaning_up"
)

// String implements fmt.Stringer.
func (s State) String() string { return string(s) }

// validTransitions encodes the allowed state machine edges.
var validTransitions = map[State][]State{
	StateNotInitialized: {StateInitializing},
	StateInitializing:   {StateReady, StateFailed},
	StateReady:          {StateCleaningUp},
	StateFailed:         {StateInitializing, StateCleaningUp},
	StateCleaningUp:     {StateNotInitialized},
}

// canTransition reports whether moving from one state to the next is legal.
func canTransition(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
