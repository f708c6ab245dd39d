package worker

import (
	"context"
	"log/slog"

	audit "satnam/pkg/platform/audit"
)

// Worker drains queued audit events into a store so slow sinks never block
// the wizard. Emit drops events when the queue is full rather than block.
type Worker struct {
	store  audit.Store
	inbox  chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, buffer int, logger *slog.Logger) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: make(chan audit.Event, buffer), logger: logger}
}

// Append queues event. It satisfies audit.Store.
func (w *Worker) Append(ctx context.Context, event audit.Event) error {
	select {
	case w.inbox <- event:
	default:
		w.logger.WarnContext(ctx, "audit queue full; event dropped", "action", event.Action)
	}
	return nil
}

// Run persists events until ctx ends, then flushes what is already queued.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.persist(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case event := <-w.inbox:
			w.persist(context.Background(), event)
		default:
			return
		}
	}
}

func (w *Worker) persist(ctx context.Context, event audit.Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to persist audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
