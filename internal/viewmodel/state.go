package viewmodel

// Phase is the mutation/query state machine position.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// State is the UI-facing state machine value. Message is only set for errors.
type State struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message,omitempty"`
}

func stateIdle() State    { return State{Phase: PhaseIdle} }
func stateLoading() State { return State{Phase: PhaseLoading} }
func stateSuccess() State { return State{Phase: PhaseSuccess} }
func stateError(msg string) State {
	return State{Phase: PhaseError, Message: msg}
}
