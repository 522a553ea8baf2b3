// Package service implements business logic on top of ports.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/fluxcrm/leadengine/internal/domain/event"
	"github.com/fluxcrm/leadengine/internal/port/messagequeue"
)

// publishEvent sends a domain event on a subject equal to its type.
// The mutation has already committed, so a publish failure is logged and
// swallowed rather than surfaced to the caller.
func publishEvent(ctx context.Context, queue messagequeue.Queue, ev event.Event) {
	if queue == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal event", "type", ev.Type, "error", err)
		return
	}

	if err := queue.Publish(ctx, string(ev.Type), data); err != nil {
		slog.Error("publish event", "type", ev.Type, "entity_id", ev.EntityID, "error", err)
	}
}
