// Package videogen drives the asynchronous text-to-video render pipelines.
//
// Both upstream renderers are submit-then-poll services. Each one hides its
// wire protocol behind the Backend interface and reports progress through a
// single Outcome union, so the poll loop and the orchestration above it never
// branch on which renderer is in use.
package videogen

import (
	"context"
	"time"
)

// State classifies a single poll observation.
type State int

const (
	// StatePending means the job is still rendering.
	StatePending State = iota
	// StateDone means the render finished and Outcome.Video holds the bytes.
	StateDone
	// StateFailed means the renderer reported a terminal error.
	StateFailed
)

// Outcome is the result of one poll against a render backend.
type Outcome struct {
	State  State
	Video  []byte
	Reason string
}

// Pending reports a job that is still in progress.
func Pending() Outcome { return Outcome{State: StatePending} }

// Done reports a finished render.
func Done(video []byte) Outcome { return Outcome{State: StateDone, Video: video} }

// Failed reports a terminal renderer error.
func Failed(reason string) Outcome { return Outcome{State: StateFailed, Reason: reason} }

// Backend is one upstream render service.
type Backend interface {
	// Label names the pipeline; it doubles as the artifact key prefix and
	// must stay stable across releases.
	Label() string
	// PollInterval is how long to wait between status checks.
	PollInterval() time.Duration
	// Submit enqueues a render for the given story and returns the job id.
	Submit(ctx context.Context, story string) (string, error)
	// Poll observes the job once. Terminal observations carry either the
	// video bytes or a failure reason.
	Poll(ctx context.Context, jobID string) (Outcome, error)
}
