package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openmcq/corrector/internal/model"
	"github.com/openmcq/corrector/internal/protocol"
)

var (
	ErrNoPendingRequest = errors.New("no pending request")
	ErrAnswerMismatch   = errors.New("answer does not match pending request")
)

// Worker supervises one isolated scan process. It owns both ends of the
// duplex conflict channel for the process lifetime: the supervisor end for
// regular traffic, and a copy of the child end kept so that a synthetic
// EndOfCommunication can be injected once the process is gone. A Worker is
// single use: after the ScanEnded signal it is inert.
type Worker struct {
	path   string
	runID  uuid.UUID
	runner *Runner
	proto  Command

	conn   *protocol.Conn // supervisor end
	inject *protocol.Conn // retained child end, for synthetic sentinel
	files  []*os.File     // child end descriptors handed to the process

	signals chan Event

	mu      sync.Mutex
	pending protocol.Request
	fault   error
	inert   bool

	releaseOnce sync.Once
}

func newWorker(path string, proto Command) *Worker {
	return &Worker{
		path:    path,
		runID:   uuid.New(),
		runner:  NewRunner(),
		proto:   proto,
		signals: make(chan Event, 8),
	}
}

// Signals delivers the worker lifecycle events in order. The channel is
// closed after ScanEnded.
func (w *Worker) Signals() <-chan Event {
	return w.signals
}

// start builds the duplex channel, spawns the isolated process bound to
// one end, emits ScanStarted and enters the receive loop on its own
// goroutine. The caller never blocks on it.
func (w *Worker) start(ctx context.Context) error {
	fromChildR, fromChildW, err := os.Pipe()
	if err != nil {
		close(w.signals)
		return fmt.Errorf("creating child-to-supervisor pipe: %w", err)
	}
	toChildR, toChildW, err := os.Pipe()
	if err != nil {
		_ = fromChildR.Close()
		_ = fromChildW.Close()
		close(w.signals)
		return fmt.Errorf("creating supervisor-to-child pipe: %w", err)
	}

	w.conn = protocol.NewConn(fromChildR, toChildW)
	w.inject = protocol.NewConn(toChildR, fromChildW)
	w.files = []*os.File{toChildR, fromChildW} // fds 3 and 4 in the child

	proto := w.proto
	proto.ExtraFiles = w.files
	if err := w.runner.Start(ctx, proto, w.relayStderr); err != nil {
		w.release()
		close(w.signals)
		return err
	}

	w.signals <- ScanStarted{RunID: w.runID, Path: w.path, PID: w.runner.PID()}
	go w.supervise(ctx)
	return nil
}

func (w *Worker) supervise(ctx context.Context) {
	var res Result
	var g errgroup.Group
	g.Go(func() error {
		w.receiveLoop(ctx)
		return nil
	})
	g.Go(func() error {
		res = <-w.runner.ResultsChan()
		// The process is dead. If it never sent the sentinel (crash or
		// kill), the receive loop is blocked on a read that will not
		// complete; inject EndOfCommunication from our copy of the child
		// end so the loop unblocks and cleanup runs the one normal path.
		if err := w.inject.Send(protocol.EndOfCommunication{}); err != nil {
			slog.DebugContext(ctx, "injecting end of communication", "error", err)
		}
		return nil
	})
	_ = g.Wait()
	w.finish(ctx, res)
}

// receiveLoop relays channel traffic until EndOfCommunication. Requests
// are re-emitted as signals without waiting for the answer inline; fault
// payloads are stored, latest one wins. A transport fault is logged and
// treated exactly like the sentinel.
func (w *Worker) receiveLoop(ctx context.Context) {
	for {
		msg, err := w.conn.Receive()
		if err != nil {
			slog.DebugContext(ctx, "conflict channel closed abnormally", "error", err)
			return
		}
		switch m := msg.(type) {
		case protocol.EndOfCommunication:
			return
		case protocol.Request:
			w.mu.Lock()
			w.pending = m
			w.mu.Unlock()
			w.signals <- RequestReceived{RunID: w.runID, Path: w.path, Request: m}
		default:
			if fault, ok := msg.(error); ok {
				w.mu.Lock()
				w.fault = fault
				w.mu.Unlock()
				continue
			}
			slog.WarnContext(ctx, "unrecognized message on conflict channel", "type", fmt.Sprintf("%T", msg))
		}
	}
}

// done reports whether the attempt has finished. It turns true before the
// ScanEnded signal is emitted, so a consumer reacting to that event may
// launch the next attempt right away.
func (w *Worker) done() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inert
}

// Respond sends the operator answer for the pending request down the
// channel. It is a protocol fault to respond when no request is pending or
// with an answer of the wrong shape.
func (w *Worker) Respond(ans protocol.Answer) error {
	w.mu.Lock()
	if w.inert {
		w.mu.Unlock()
		return ErrScanNotStarted
	}
	pending := w.pending
	if pending == nil {
		w.mu.Unlock()
		return ErrNoPendingRequest
	}
	if !protocol.Matches(pending, ans) {
		w.mu.Unlock()
		return fmt.Errorf("%w: %T does not answer %T", ErrAnswerMismatch, ans, pending)
	}
	w.pending = nil
	w.mu.Unlock()
	return w.conn.Send(ans)
}

// Abort forcibly terminates the isolated process. The exit watcher then
// joins it and injects the synthetic sentinel, so the ScanEnded signal
// still fires through the regular cleanup path. Safe to call repeatedly.
func (w *Worker) Abort() {
	if err := w.runner.Kill(); err != nil {
		slog.Debug("aborting scan process", "error", err)
	}
}

// finish is the single cleanup path for normal and aborted termination.
func (w *Worker) finish(ctx context.Context, res Result) {
	w.release()

	w.mu.Lock()
	fault := w.fault
	w.pending = nil
	w.inert = true
	w.mu.Unlock()

	outcome := model.Outcome{Path: w.path, Err: fault}
	if res.Stdout != nil {
		outcome.Log = res.Stdout.String()
	}
	// The exit status is a sanity signal only; the channel is the source
	// of truth for the outcome.
	if res.Err != nil {
		slog.DebugContext(ctx, "scan process exited abnormally", "error", res.Err, "state", res.State)
	}

	w.signals <- ScanEnded{RunID: w.runID, Path: w.path, Outcome: outcome}
	close(w.signals)
}

// release closes all four pipe descriptors exactly once.
func (w *Worker) release() {
	w.releaseOnce.Do(func() {
		if w.conn != nil {
			_ = w.conn.Close()
		}
		if w.inject != nil {
			_ = w.inject.Close()
		}
	})
}

func (w *Worker) relayStderr(ctx context.Context, line string) {
	slog.DebugContext(ctx, "scan process stderr", "line", line)
}
