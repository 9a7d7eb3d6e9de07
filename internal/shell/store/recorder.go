package store

import (
	"context"
	"log/slog"

	"github.com/artpar/stackd/internal/core/domain"
)

// =============================================================================
// Event Recorder
// =============================================================================

// EventRecorder persists container lifecycle events emitted during stack
// operations. Recording is best-effort: failed writes are logged, not
// returned.
type EventRecorder struct {
	store  Store
	logger *slog.Logger
}

// NewEventRecorder creates an event recorder backed by the given store.
func NewEventRecorder(s Store, logger *slog.Logger) *EventRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRecorder{
		store:  s,
		logger: logger.With("component", "events"),
	}
}

// RecordEvent writes one container event to the store.
func (r *EventRecorder) RecordEvent(ctx context.Context, event domain.ContainerEvent) {
	if err := r.store.CreateEvent(ctx, &event); err != nil {
		r.logger.Warn("failed to record container event",
			"stack_id", event.StackID,
			"type", string(event.Type),
			"container", event.Container,
			"error", err)
	}
}
