package engine

import (
	"context"

	"github.com/openmcq/corrector/internal/model"
	"github.com/openmcq/corrector/internal/protocol"
)

// Resolver answers the ambiguities a scan raises. The corrector passes an
// implementation that forwards each question to the human operator; tests
// pass canned ones. Engines receive it explicitly, there is no process-wide
// handler registry.
type Resolver interface {
	// SelectVersion decides which of two scans of the same page to keep.
	// Only KeepFirst and KeepSecond are valid returns.
	SelectVersion(ctx context.Context, pictureA, pictureB string) (protocol.IntegrityAnswer, error)
	// ReviewName confirms or replaces a student name the recognizer was
	// unsure about.
	ReviewName(ctx context.Context, picture, suggestion string) (string, error)
	// ReviewAnswers lets the operator confirm or edit the checked boxes of
	// one page.
	ReviewAnswers(ctx context.Context, page model.PageData) (protocol.AnswersAnswer, error)
}

// Engine runs the scan analysis of one MCQ configuration. It may block for
// a long time, loop, or crash; the corrector always executes it inside an
// isolated process.
type Engine interface {
	Scan(ctx context.Context, path string, r Resolver) error
}
