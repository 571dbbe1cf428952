package stream

import (
	"context"
	"log/slog"
)

// Worker drains change messages from an inbox channel and hands them to the
// sink. It decouples request handling from broker latency: a save never waits
// on Kafka.
type Worker struct {
	sink   Sink
	inbox  <-chan []ChangeMessage
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan []ChangeMessage, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run consumes until the context is cancelled. Publish failures are logged
// and skipped; the stream is best-effort while the database stays the source
// of truth.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msgs := <-w.inbox:
			if err := w.sink.Publish(ctx, msgs...); err != nil {
				w.logger.Error("failed to publish change messages",
					"error", err,
					"count", len(msgs),
				)
			}
		}
	}
}
