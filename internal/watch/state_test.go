package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionCycle(t *testing.T) {
	steps := []struct {
		event Event
		want  State
	}{
		{ArtifactSeen, ArtifactDetected},
		{AnalysisStarted, Analyzing},
		{AnalysisSucceeded, Updating},
		{UpdateSucceeded, Archived},
		{Reset, Idle},
	}

	s := Idle
	for _, st := range steps {
		next, err := Transition(s, st.event)
		require.NoError(t, err, "%s on %s", st.event, s)
		assert.Equal(t, st.want, next)
		s = next
	}
}

func TestTransitionFailuresArchive(t *testing.T) {
	for _, s := range []State{ArtifactDetected, Analyzing, Updating} {
		next, err := Transition(s, Failed)
		require.NoError(t, err)
		assert.Equal(t, Archived, next, "failure in %s", s)
	}
}

func TestTransitionCancelLeavesArtifact(t *testing.T) {
	for _, s := range []State{ArtifactDetected, Analyzing, Updating} {
		next, err := Transition(s, Cancelled)
		require.NoError(t, err)
		assert.Equal(t, Idle, next, "cancel in %s", s)
	}
}

func TestTransitionIsTotal(t *testing.T) {
	states := []State{Idle, ArtifactDetected, Analyzing, Updating, Archived}
	events := []Event{ArtifactSeen, AnalysisStarted, AnalysisSucceeded, UpdateSucceeded, Failed, Cancelled, Reset}

	valid := 0
	for _, s := range states {
		for _, e := range events {
			next, err := Transition(s, e)
			if err != nil {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, s, next, "invalid transitions keep the state")
				continue
			}
			valid++
		}
	}
	assert.Equal(t, 11, valid)
}

func TestArchivedIsNeverRedetected(t *testing.T) {
	_, err := Transition(Archived, ArtifactSeen)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = Transition(Archived, Cancelled)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStateAndEventNames(t *testing.T) {
	assert.Equal(t, "artifact_detected", ArtifactDetected.String())
	assert.Equal(t, "archived", Archived.String())
	assert.Equal(t, "state(9)", State(9).String())
	assert.Equal(t, "update_succeeded", UpdateSucceeded.String())
	assert.Equal(t, "event(42)", Event(42).String())
}
