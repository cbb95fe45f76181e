package service

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/openmcq/corrector/internal/protocol"
)

// CommandFunc builds the command spawning the isolated scan process for a
// configuration path. The default re-executes the corrector binary with
// the hidden _scan subcommand; tests substitute a helper process.
type CommandFunc func(path string) (Command, error)

// DefaultCommand spawns this very binary as the isolated scan process.
func DefaultCommand(path string) (Command, error) {
	exe, err := os.Executable()
	if err != nil {
		return Command{}, fmt.Errorf("locating corrector binary: %w", err)
	}
	return Command{Path: exe, Args: []string{"_scan", path}, Env: os.Environ()}, nil
}

// Manager is the single point of control the application uses to run
// scans. It owns at most one active Worker at a time and re-publishes the
// worker signals on its events channel, so downstream state transitions
// stay serialized on the consumer side.
type Manager struct {
	mu      sync.Mutex
	worker  *Worker
	events  chan Event
	command CommandFunc
}

type ManagerOption func(*Manager)

// WithCommandFunc overrides how the isolated process is spawned.
func WithCommandFunc(f CommandFunc) ManagerOption {
	return func(m *Manager) {
		m.command = f
	}
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		events:  make(chan Event, 16),
		command: DefaultCommand,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Events delivers the lifecycle signals of all scan attempts, in order.
// The consumer must not block for long: every attempt produces a
// ScanStarted, zero or more RequestReceived and exactly one ScanEnded.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Running reports whether a scan attempt is currently active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.worker != nil
}

// LaunchScan starts a new scan attempt for path. Returns
// ErrScanInProgress while a previous attempt is still active; path
// validity is the caller's concern.
func (m *Manager) LaunchScan(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.worker != nil && !m.worker.done() {
		return ErrScanInProgress
	}

	proto, err := m.command(path)
	if err != nil {
		return err
	}
	w := newWorker(path, proto)
	if err := w.start(ctx); err != nil {
		return err
	}
	m.worker = w
	go m.pump(w)
	return nil
}

// pump re-publishes one worker's signals on the manager events channel.
// ScanEnded is published before the slot is cleared: a launcher polling
// Running() can then never slip a fresh ScanStarted ahead of the previous
// attempt's ScanEnded. Handlers reacting to ScanEnded itself need not wait
// for the clear; LaunchScan also accepts a finished worker in the slot.
func (m *Manager) pump(w *Worker) {
	for sig := range w.Signals() {
		m.events <- sig
		if _, ended := sig.(ScanEnded); ended {
			m.clear(w)
		}
	}
}

func (m *Manager) clear(w *Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.worker == w {
		m.worker = nil
	}
}

// AbortScan kills the active scan process, if any. The ScanEnded event
// still fires so the application always returns to an idle state.
func (m *Manager) AbortScan() {
	m.mu.Lock()
	w := m.worker
	m.mu.Unlock()
	if w != nil {
		w.Abort()
	}
}

// Respond delivers the operator answer for the pending request of the
// active attempt.
func (m *Manager) Respond(ans protocol.Answer) error {
	m.mu.Lock()
	w := m.worker
	m.mu.Unlock()
	if w == nil {
		return ErrScanNotStarted
	}
	return w.Respond(ans)
}
