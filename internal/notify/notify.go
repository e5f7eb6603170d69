// Package notify fans job lifecycle and lock contention events out to users.
// Delivery runs off the hot path: the scheduler hands an event to a
// Dispatcher, the asynq-backed one enqueues it as a task and a worker pushes
// it to the configured sink.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Event types
const (
	EventJobCompleted  = "job_completed"
	EventJobFailed     = "job_failed"
	EventLockContended = "lock_contended"
)

// TaskTypeDispatch is the asynq task type for notification delivery.
const TaskTypeDispatch = "notification:dispatch"

// Event is one user-facing notification.
type Event struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	AssetID string `json:"assetId"`
	JobID   string `json:"jobId,omitempty"`
	Message string `json:"message"`
}

// Sink delivers an event to a user. The push channel (mobile, email, in-app)
// belongs to an external subsystem behind this interface.
type Sink interface {
	Notify(ctx context.Context, userID string, event Event) error
}

// Dispatcher accepts events from the scheduler. Dispatch must not block job
// processing; failures are logged, never surfaced to the job.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

// LogSink writes notifications to the structured log. The default sink until
// a real delivery channel is wired.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a logging sink.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(_ context.Context, userID string, event Event) error {
	s.log.Info().
		Str("user_id", userID).
		Str("event", event.Type).
		Str("asset_id", event.AssetID).
		Str("job_id", event.JobID).
		Msg(event.Message)
	return nil
}

// Inline delivers events synchronously to the sink, skipping the queue. Used
// with the memory backend and in tests.
type Inline struct {
	sink Sink
	log  zerolog.Logger
}

// NewInline creates a queue-less dispatcher.
func NewInline(sink Sink, log zerolog.Logger) *Inline {
	return &Inline{sink: sink, log: log}
}

func (d *Inline) Dispatch(ctx context.Context, event Event) {
	if err := d.sink.Notify(ctx, event.UserID, event); err != nil {
		d.log.Warn().Err(err).Str("event", event.Type).Msg("notification delivery failed")
	}
}
