// Package executor abstracts the external edit-execution backend (the
// ML/media-processing service). The scheduler treats it as an opaque
// long-running operation: progress arrives on an update channel, the result
// on return. Implementations must honor ctx cancellation.
package executor

import (
	"context"

	"github.com/framecraft/api/internal/model"
)

// Progress is a single update from a running step, 0-100.
type Progress struct {
	Percent int
	Step    string
}

// Request is one pipeline step to run against a source payload.
type Request struct {
	Step             string
	Operation        model.EditOperation
	AssetKind        model.AssetKind
	SourcePayloadRef string
}

// Result references the payload a step produced.
type Result struct {
	PayloadRef string
}

// Executor runs one pipeline step to completion. Updates sent on the progress
// channel are best effort; the channel is never closed by the executor and
// sends must not block (the scheduler drains it with buffering).
type Executor interface {
	Execute(ctx context.Context, req *Request, progress chan<- Progress) (*Result, error)
}
