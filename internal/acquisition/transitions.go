package acquisition

// CanTransition reports whether a request may move from one state to another
// when transition validation is enabled: VALIDATED -> DOWNLOADED -> FINISHED,
// any state -> ERROR, and re-applying the current state.
func CanTransition(from, to State) bool {
	if !to.Valid() {
		return false
	}
	if from == to || to == StateError {
		return true
	}
	switch from {
	case StateValidated:
		return to == StateDownloaded
	case StateDownloaded:
		return to == StateFinished
	}
	return false
}
