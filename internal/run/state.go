package run

// State is where a booking run stands
type State string

const (
	StateNotLoggedIn        State = "not_logged_in"
	StateAwaitingManualAuth State = "awaiting_manual_auth"
	StateOnBookingPage      State = "on_booking_page"
	StateFormFilled         State = "form_filled"
	StateSubmitted          State = "submitted"
	StateClassified         State = "classified"
	StateFailed             State = "failed"
)

// Classified may go back to Submitted when a room is booked from search results.
var transitions = map[State][]State{
	StateNotLoggedIn:        {StateAwaitingManualAuth, StateOnBookingPage},
	StateAwaitingManualAuth: {StateOnBookingPage},
	StateOnBookingPage:      {StateFormFilled},
	StateFormFilled:         {StateSubmitted},
	StateSubmitted:          {StateClassified},
	StateClassified:         {StateSubmitted},
}

// CanTransition reports whether a run may move from one state to another.
// Every state but Failed may fail.
func CanTransition(from, to State) bool {
	if from == StateFailed {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further work happens in s
func (s State) Terminal() bool {
	return s == StateClassified || s == StateFailed
}
