package lifecycle

import (
	"time"

	"github.com/edgekit-ai/edgekit/internal/component"
)

// FailedKind pairs a component kind with its initialization error.
type FailedKind struct {
	Kind component.Kind
	Err  error
}

// InitializationResult summarises one initialization batch. Successful and
// Failed together cover every requested kind exactly once.
type InitializationResult struct {
	Successful []component.Kind
	Failed     []FailedKind
	Duration   time.Duration
	Timestamp  time.Time
}

// AllSucceeded reports whether no kind failed.
func (r InitializationResult) AllSucceeded() bool {
	return len(r.Failed) == 0
}

// FailureFor returns the error recorded for a kind, if it failed.
func (r InitializationResult) FailureFor(kind component.Kind) (error, bool) {
	for _, f := range r.Failed {
		if f.Kind == kind {
			return f.Err, true
		}
	}
	return nil, false
}
