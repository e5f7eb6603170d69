package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// AsynqDispatcher enqueues events as asynq tasks on the notifications queue.
type AsynqDispatcher struct {
	client *asynq.Client
	log    zerolog.Logger
}

// NewAsynqDispatcher creates a queue-backed dispatcher.
func NewAsynqDispatcher(client *asynq.Client, log zerolog.Logger) *AsynqDispatcher {
	return &AsynqDispatcher{client: client, log: log}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		d.log.Warn().Err(err).Str("event", event.Type).Msg("failed to marshal notification")
		return
	}

	task := asynq.NewTask(TaskTypeDispatch, data)
	if _, err := d.client.EnqueueContext(ctx, task,
		asynq.Queue("notifications"),
		asynq.MaxRetry(3),
	); err != nil {
		d.log.Warn().Err(err).Str("event", event.Type).Msg("failed to enqueue notification")
	}
}

// Worker processes queued notification tasks.
type Worker struct {
	sink Sink
}

// NewWorker creates a notification worker delivering to sink.
func NewWorker(sink Sink) *Worker {
	return &Worker{sink: sink}
}

// ProcessTask handles a notification:dispatch task.
func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var event Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %w", err)
	}
	return w.sink.Notify(ctx, event.UserID, event)
}
