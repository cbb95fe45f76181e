package service

import (
	"github.com/google/uuid"

	"github.com/openmcq/corrector/internal/model"
	"github.com/openmcq/corrector/internal/protocol"
)

// Event is a lifecycle signal the Manager publishes to the surrounding
// application. The set is closed: ScanStarted, RequestReceived and
// ScanEnded are the only events the UI layer may depend on.
type Event interface {
	event()
}

// ScanStarted fires once the isolated process is running. PID identifies
// the process so the interface can offer cancellation.
type ScanStarted struct {
	RunID uuid.UUID
	Path  string
	PID   int
}

// RequestReceived fires for each ambiguity the scan raises. The answer is
// delivered later, out of band, through Manager.Respond.
type RequestReceived struct {
	RunID   uuid.UUID
	Path    string
	Request protocol.Request
}

// ScanEnded fires exactly once per attempt, whether the scan succeeded,
// faulted or was aborted.
type ScanEnded struct {
	RunID   uuid.UUID
	Path    string
	Outcome model.Outcome
}

func (ScanStarted) event()     {}
func (RequestReceived) event() {}
func (ScanEnded) event()       {}
