package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/fluxcrm/leadengine/internal/domain/event"
	"github.com/fluxcrm/leadengine/internal/port/messagequeue"
)

// Forward subscribes the hub to the domain event subjects and relays every
// event to the connections allowed to see its tenant. The returned function
// cancels both subscriptions.
func (h *Hub) Forward(ctx context.Context, queue messagequeue.Queue) (func(), error) {
	handler := func(ctx context.Context, subject string, data []byte) error {
		var ev event.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Error("ws event decode failed", "subject", subject, "error", err)
			return nil // malformed events are dropped, not redelivered
		}
		h.BroadcastToTenant(ctx, ev.TenantID, Message{
			Type:    string(ev.Type),
			Payload: data,
		})
		return nil
	}

	stopPipeline, err := queue.Subscribe(ctx, messagequeue.SubjectPipeline, handler)
	if err != nil {
		return nil, err
	}
	stopFollowup, err := queue.Subscribe(ctx, messagequeue.SubjectFollowup, handler)
	if err != nil {
		stopPipeline()
		return nil, err
	}

	return func() {
		stopPipeline()
		stopFollowup()
	}, nil
}
