// Package scanjob is the isolated side of the conflict protocol. It runs
// inside the child process spawned for one scan attempt and is the only
// code allowed to block on operator input.
package scanjob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/openmcq/corrector/internal/engine"
	"github.com/openmcq/corrector/internal/model"
	"github.com/openmcq/corrector/internal/protocol"
)

// Run executes the scan of path and speaks the conflict protocol over conn
// for every ambiguity the engine raises. Whatever happens during the run,
// a fault (if any) is transmitted first and EndOfCommunication is sent
// last, so the supervising receive loop always terminates. Diagnostics go
// to out, which the supervisor captures as the scan log.
func Run(ctx context.Context, path string, conn *protocol.Conn, eng engine.Engine, out io.Writer) {
	if out == nil {
		out = io.Discard
	}

	// Registered first so it runs after every other deferred step,
	// including the panic recovery below.
	defer func() {
		if err := conn.Send(protocol.EndOfCommunication{}); err != nil {
			fmt.Fprintf(out, "ERROR: closing communication failed: %v\n", err)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			transmit(conn, out, fmt.Errorf("scan panicked: %v", r))
		}
	}()

	// Relative resource lookups inside the scan resolve against the
	// directory holding the configuration file.
	restore, err := pushd(filepath.Dir(path))
	if err != nil {
		transmit(conn, out, err)
		return
	}
	defer restore()

	resolver := &pipeResolver{conn: conn}
	if err := eng.Scan(ctx, path, resolver); err != nil {
		transmit(conn, out, err)
		return
	}
	fmt.Fprintf(out, "Scan completed: %q.\n", path)
}

// transmit serializes err over the channel. A fault whose concrete type
// does not survive serialization is downgraded to a generic Fault carrying
// only the message text, with a local diagnostic in the captured log.
func transmit(conn *protocol.Conn, out io.Writer, err error) {
	var msg protocol.Message
	if m, ok := err.(protocol.Message); ok && protocol.RoundTrips(m) {
		msg = m
	} else {
		fmt.Fprintf(out, "ERROR: fault %T is not serializable, sending generic fault instead.\n", err)
		msg = protocol.Fault{Text: err.Error()}
	}
	if serr := conn.Send(msg); serr != nil {
		fmt.Fprintf(out, "ERROR: transmitting fault failed: %v\n", serr)
	}
	fmt.Fprintf(out, "Scan failed: %v\n", err)
}

// pushd changes the working directory and returns the function restoring
// the previous one. The restore must run on every exit path of the run.
func pushd(dir string) (restore func(), err error) {
	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("reading working directory: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return nil, fmt.Errorf("entering scan directory: %w", err)
	}
	return func() { _ = os.Chdir(prev) }, nil
}

// pipeResolver answers engine ambiguities by blocking on one
// send-request / receive-answer exchange per question.
type pipeResolver struct {
	conn *protocol.Conn
}

func (r *pipeResolver) exchange(req protocol.Request) (protocol.Message, error) {
	if err := r.conn.Send(req); err != nil {
		return nil, fmt.Errorf("sending %T: %w", req, err)
	}
	ans, err := r.conn.Receive()
	if err != nil {
		return nil, fmt.Errorf("waiting for answer to %T: %w", req, err)
	}
	return ans, nil
}

func (r *pipeResolver) SelectVersion(_ context.Context, pictureA, pictureB string) (protocol.IntegrityAnswer, error) {
	ans, err := r.exchange(protocol.IntegrityRequest{PictureA: pictureA, PictureB: pictureB})
	if err != nil {
		return 0, err
	}
	choice, ok := ans.(protocol.IntegrityAnswer)
	if !ok {
		return 0, fmt.Errorf("unexpected answer %T to integrity request", ans)
	}
	switch choice {
	case protocol.KeepFirst, protocol.KeepSecond:
		return choice, nil
	}
	return 0, fmt.Errorf("can't handle integrity answer %v here", choice)
}

func (r *pipeResolver) ReviewName(_ context.Context, picture, suggestion string) (string, error) {
	ans, err := r.exchange(protocol.NameRequest{Picture: picture, SuggestedName: suggestion})
	if err != nil {
		return "", err
	}
	name, ok := ans.(protocol.NameAnswer)
	if !ok {
		return "", fmt.Errorf("unexpected answer %T to name request", ans)
	}
	return string(name), nil
}

func (r *pipeResolver) ReviewAnswers(_ context.Context, page model.PageData) (protocol.AnswersAnswer, error) {
	ans, err := r.exchange(protocol.AnswersRequest{Page: page})
	if err != nil {
		return protocol.AnswersAnswer{}, err
	}
	review, ok := ans.(protocol.AnswersAnswer)
	if !ok {
		return protocol.AnswersAnswer{}, fmt.Errorf("unexpected answer %T to answers request", ans)
	}
	return review, nil
}
