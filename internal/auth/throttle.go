package auth

// Throttle counts login form displays per session and locks the form once
// the count exceeds the configured maximum. Note this is a display-count,
// not a strict attempt-count: it increments on every rendering of the
// form, including re-renders after a mismatch.
type Throttle struct {
	// Max is the display ceiling. 0 means unlimited.
	Max int
}

// RecordFormDisplay increments the session's display counter and returns
// the new count.
func (t Throttle) RecordFormDisplay(state *SessionState) int {
	state.Attempts++
	return state.Attempts
}

// Locked reports whether the given display count exceeds the ceiling.
func (t Throttle) Locked(count int) bool {
	return t.Max > 0 && count > t.Max
}

// Reset clears the session's display counter. Called exactly on
// successful authentication.
func (t Throttle) Reset(state *SessionState) {
	state.Attempts = 0
}
