package state_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openmcq/corrector/internal/model"
	"github.com/openmcq/corrector/internal/protocol"
	"github.com/openmcq/corrector/internal/service"
	"github.com/openmcq/corrector/internal/state"
)

func TestMachineLifecycle(t *testing.T) {
	t.Parallel()
	runID := uuid.New()
	m := state.NewMachine()
	require.Equal(t, state.ActionNone, m.Action())

	m.OnEvent(service.ScanStarted{RunID: runID, Path: "exam.mcq.config", PID: 42})
	require.Equal(t, state.ActionInProgress, m.Action())
	require.Nil(t, m.PendingRequest())

	req := protocol.NameRequest{Picture: "p1.png", SuggestedName: "Alice"}
	m.OnEvent(service.RequestReceived{RunID: runID, Path: "exam.mcq.config", Request: req})
	require.Equal(t, state.ActionPendingRequest, m.Action())
	require.Equal(t, req, m.PendingRequest())

	m.RequestResolved()
	require.Equal(t, state.ActionInProgress, m.Action())
	require.Nil(t, m.PendingRequest())

	outcome := model.Outcome{Path: "exam.mcq.config", Log: "done\n"}
	m.OnEvent(service.ScanEnded{RunID: runID, Path: "exam.mcq.config", Outcome: outcome})
	require.Equal(t, state.ActionDisplayResults, m.Action())
	got, ok := m.Outcome()
	require.True(t, ok)
	require.Equal(t, outcome, got)

	m.Reset()
	require.Equal(t, state.ActionNone, m.Action())
	_, ok = m.Outcome()
	require.False(t, ok)
}

func TestMachineEndWhileRequestPending(t *testing.T) {
	t.Parallel()
	m := state.NewMachine()
	m.OnEvent(service.ScanStarted{Path: "exam.mcq.config"})
	m.OnEvent(service.RequestReceived{Request: protocol.IntegrityRequest{}})

	// an aborted or crashed scan ends regardless of the open question
	m.OnEvent(service.ScanEnded{Outcome: model.Outcome{Err: errors.New("killed")}})
	require.Equal(t, state.ActionDisplayResults, m.Action())
	require.Nil(t, m.PendingRequest())
	got, ok := m.Outcome()
	require.True(t, ok)
	require.True(t, got.Failed())
}

func TestMachineResolveOutsidePendingIsNoop(t *testing.T) {
	t.Parallel()
	m := state.NewMachine()
	m.OnEvent(service.ScanStarted{})
	m.RequestResolved()
	require.Equal(t, state.ActionInProgress, m.Action())

	m.OnEvent(service.ScanEnded{Outcome: model.Outcome{}})
	m.RequestResolved()
	require.Equal(t, state.ActionDisplayResults, m.Action())
}

func TestMachineRestartClearsPreviousOutcome(t *testing.T) {
	t.Parallel()
	m := state.NewMachine()
	m.OnEvent(service.ScanStarted{})
	m.OnEvent(service.ScanEnded{Outcome: model.Outcome{Log: "first"}})

	m.OnEvent(service.ScanStarted{})
	require.Equal(t, state.ActionInProgress, m.Action())
	_, ok := m.Outcome()
	require.False(t, ok)
}

func TestActionString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "none", state.ActionNone.String())
	require.Equal(t, "in-progress", state.ActionInProgress.String())
	require.Equal(t, "pending-request", state.ActionPendingRequest.String())
	require.Equal(t, "display-results", state.ActionDisplayResults.String())
	require.Equal(t, "unknown", state.Action(99).String())
}
