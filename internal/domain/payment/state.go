package payment

// State is the position of a checkout attempt in the payment flow.
type State string

const (
	StateIdle           State = "idle"
	StateMethodSelected State = "method_selected"
	StateValidating     State = "validating"
	StateAuthorized     State = "authorized"
	StateCommitted      State = "committed"
	StateRejected       State = "rejected"
	StateCanceled       State = "canceled"
)

var transitions = map[State][]State{
	StateIdle:           {StateMethodSelected, StateCanceled},
	StateMethodSelected: {StateValidating, StateMethodSelected, StateCanceled},
	StateValidating:     {StateAuthorized, StateRejected},
	StateAuthorized:     {StateCommitted, StateRejected},
	// A rejected attempt can be retried with corrected input or another
	// method.
	StateRejected: {StateMethodSelected, StateCanceled},
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateCommitted || s == StateCanceled
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}
