package flow

import "fmt"

// Outcome classifies how a command was handled.
type Outcome int

const (
	// OutcomeAdvanced means the command moved the session to another step.
	OutcomeAdvanced Outcome = iota + 1
	// OutcomeApplied means the command took effect on the current step.
	OutcomeApplied
	// OutcomeDeferred means input is incomplete; nothing changed.
	OutcomeDeferred
	// OutcomeRejected means input was invalid; nothing changed.
	OutcomeRejected
	// OutcomeIgnored means the command does not apply to the active step.
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeApplied:
		return "applied"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeRejected:
		return "rejected"
	case OutcomeIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

const (
	SourceRenderer  = "renderer"
	SourceOpponent  = "opponent"
	SourceFinalizer = "finalizer"
)

// Warning reports a collaborator failure the flow continued past.
type Warning struct {
	Source string
	Err    error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Source, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }
