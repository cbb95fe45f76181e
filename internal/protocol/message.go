package protocol

import (
	"encoding/gob"
	"fmt"

	"github.com/openmcq/corrector/internal/model"
)

// Message is implemented by every value that may travel the conflict
// channel. The set of implementations is closed: the isolated side only
// initiates requests, faults and EndOfCommunication, the supervising side
// only sends answers.
type Message interface {
	message()
}

// Request asks the operator to resolve one ambiguity. Exactly one request
// is outstanding per channel at any time.
type Request interface {
	Message
	request()
}

// Answer is the operator reply to the pending Request. Its concrete type
// must match the request variant, see Matches.
type Answer interface {
	Message
	answer()
}

// IntegrityRequest reports two candidate scans matching the same document
// page. The operator chooses which one to keep.
type IntegrityRequest struct {
	PictureA string
	PictureB string
}

// NameRequest reports a student name the recognizer could not confirm.
type NameRequest struct {
	Picture       string
	SuggestedName string
}

// AnswersRequest reports a page whose answer marks are below the
// confidence threshold.
type AnswersRequest struct {
	Page model.PageData
}

// IntegrityAnswer replies to an IntegrityRequest.
type IntegrityAnswer int

const (
	KeepFirst IntegrityAnswer = iota + 1
	KeepSecond
	NextDocument
	PreviousDocument
)

func (a IntegrityAnswer) String() string {
	switch a {
	case KeepFirst:
		return "keep-first"
	case KeepSecond:
		return "keep-second"
	case NextDocument:
		return "next"
	case PreviousDocument:
		return "previous"
	}
	return fmt.Sprintf("IntegrityAnswer(%d)", int(a))
}

// NameAnswer replies to a NameRequest with the confirmed student name.
type NameAnswer string

// Decision is the operator verdict on a reviewed page.
type Decision int

const (
	DecisionAccept Decision = iota + 1
	DecisionNext
	DecisionPrevious
)

// AnswersAnswer replies to an AnswersRequest with a decision and the
// checkbox overrides the operator made, if any.
type AnswersAnswer struct {
	Decision    Decision
	Corrections []model.Correction
}

// EndOfCommunication signals that the isolated side has nothing further to
// send. Receiving it is the only normal way the supervising receive loop
// terminates. A dedicated type is used so it is distinguishable from nil.
type EndOfCommunication struct{}

// Fault is the generic runtime fault a non-serializable scan error is
// downgraded to. Only the textual description survives the boundary.
type Fault struct {
	Text string
}

func (f Fault) Error() string { return f.Text }

// ScanError is a structured scan fault that round-trips the channel as-is.
// Engines should prefer it over plain errors when they want the supervisor
// to see more than the message text.
type ScanError struct {
	Kind string
	Text string
}

func (e ScanError) Error() string {
	if e.Kind == "" {
		return e.Text
	}
	return e.Kind + ": " + e.Text
}

func (IntegrityRequest) message() {}
func (IntegrityRequest) request() {}

func (NameRequest) message() {}
func (NameRequest) request() {}

func (AnswersRequest) message() {}
func (AnswersRequest) request() {}

func (IntegrityAnswer) message() {}
func (IntegrityAnswer) answer()  {}

func (NameAnswer) message() {}
func (NameAnswer) answer()  {}

func (AnswersAnswer) message() {}
func (AnswersAnswer) answer()  {}

func (EndOfCommunication) message() {}

func (Fault) message() {}

func (ScanError) message() {}

func init() {
	gob.Register(IntegrityRequest{})
	gob.Register(NameRequest{})
	gob.Register(AnswersRequest{})
	gob.Register(IntegrityAnswer(0))
	gob.Register(NameAnswer(""))
	gob.Register(AnswersAnswer{})
	gob.Register(EndOfCommunication{})
	gob.Register(Fault{})
	gob.Register(ScanError{})
}

// Matches reports whether ans has the right shape to answer req.
func Matches(req Request, ans Answer) bool {
	switch req.(type) {
	case IntegrityRequest:
		_, ok := ans.(IntegrityAnswer)
		return ok
	case NameRequest:
		_, ok := ans.(NameAnswer)
		return ok
	case AnswersRequest:
		_, ok := ans.(AnswersAnswer)
		return ok
	}
	return false
}
