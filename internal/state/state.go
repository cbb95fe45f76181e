// Package state tracks the user-visible action the application is in.
// It consumes the manager lifecycle events and exposes the finite state
// the interface renders.
package state

import (
	"sync"

	"github.com/openmcq/corrector/internal/model"
	"github.com/openmcq/corrector/internal/protocol"
	"github.com/openmcq/corrector/internal/service"
)

type Action int

const (
	ActionNone Action = iota
	ActionInProgress
	ActionPendingRequest
	ActionDisplayResults
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionInProgress:
		return "in-progress"
	case ActionPendingRequest:
		return "pending-request"
	case ActionDisplayResults:
		return "display-results"
	}
	return "unknown"
}

// Machine advances the current action from lifecycle events. All methods
// are safe for concurrent use; events are expected in publication order.
type Machine struct {
	mu      sync.Mutex
	action  Action
	request protocol.Request
	outcome *model.Outcome
}

func NewMachine() *Machine {
	return &Machine{}
}

func (m *Machine) OnEvent(ev service.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev := ev.(type) {
	case service.ScanStarted:
		m.action = ActionInProgress
		m.request = nil
		m.outcome = nil
	case service.RequestReceived:
		m.action = ActionPendingRequest
		m.request = ev.Request
	case service.ScanEnded:
		m.action = ActionDisplayResults
		m.request = nil
		outcome := ev.Outcome
		m.outcome = &outcome
	}
}

// RequestResolved returns the machine to in-progress once the pending
// request has been answered.
func (m *Machine) RequestResolved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.action == ActionPendingRequest {
		m.action = ActionInProgress
		m.request = nil
	}
}

// Reset returns to the idle state, e.g. when the results view is closed.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.action = ActionNone
	m.request = nil
	m.outcome = nil
}

func (m *Machine) Action() Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.action
}

// PendingRequest returns the request awaiting an operator answer, nil if
// none.
func (m *Machine) PendingRequest() protocol.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.request
}

// Outcome returns the result of the last finished attempt.
func (m *Machine) Outcome() (model.Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome == nil {
		return model.Outcome{}, false
	}
	return *m.outcome, true
}
