package watch

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned by Transition for an event the state does
// not accept.
var ErrInvalidTransition = errors.New("invalid watch transition")

// State is where the cycle is with the current artifact.
type State int

const (
	// Idle means no artifact is being handled.
	Idle State = iota
	// ArtifactDetected means a new screenshot was seen and not yet analyzed.
	ArtifactDetected
	// Analyzing means detection and matching are running.
	Analyzing
	// Updating means the flow file is being patched.
	Updating
	// Archived means the artifact was moved out of the watched directory.
	Archived
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ArtifactDetected:
		return "artifact_detected"
	case Analyzing:
		return "analyzing"
	case Updating:
		return "updating"
	case Archived:
		return "archived"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event drives a State change.
type Event int

const (
	// ArtifactSeen reports a new eligible screenshot.
	ArtifactSeen Event = iota
	// AnalysisStarted reports that analysis began.
	AnalysisStarted
	// AnalysisSucceeded reports that every step was matched or reported not found.
	AnalysisSucceeded
	// UpdateSucceeded reports that the flow file was written.
	UpdateSucceeded
	// Failed reports a timeout, collaborator error or I/O error.
	Failed
	// Cancelled reports shutdown before the artifact was finished.
	Cancelled
	// Reset returns to Idle after archiving.
	Reset
)

func (e Event) String() string {
	switch e {
	case ArtifactSeen:
		return "artifact_seen"
	case AnalysisStarted:
		return "analysis_started"
	case AnalysisSucceeded:
		return "analysis_succeeded"
	case UpdateSucceeded:
		return "update_succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	case Reset:
		return "reset"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Transition returns the state that follows s on e.
//
// Failures while detected, analyzing or updating all lead to Archived, so a
// broken artifact is never retried. Cancellation before archiving returns to
// Idle and leaves the artifact where it is.
func Transition(s State, e Event) (State, error) {
	switch {
	case s == Idle && e == ArtifactSeen:
		return ArtifactDetected, nil
	case s == ArtifactDetected && e == AnalysisStarted:
		return Analyzing, nil
	case s == Analyzing && e == AnalysisSucceeded:
		return Updating, nil
	case s == Updating && e == UpdateSucceeded:
		return Archived, nil
	case e == Failed && (s == ArtifactDetected || s == Analyzing || s == Updating):
		return Archived, nil
	case e == Cancelled && (s == ArtifactDetected || s == Analyzing || s == Updating):
		return Idle, nil
	case s == Archived && e == Reset:
		return Idle, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
}
