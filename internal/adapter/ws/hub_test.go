package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fluxcrm/leadengine/internal/domain/event"
	"github.com/fluxcrm/leadengine/internal/port/messagequeue"
)

func TestNewHub(t *testing.T) {
	h := NewHub()
	if h.ConnectionCount() != 0 {
		t.Errorf("new hub has %d connections, want 0", h.ConnectionCount())
	}
}

func TestBroadcastToTenant_NoConnections(t *testing.T) {
	h := NewHub()
	// Must not panic or block with nobody listening.
	h.BroadcastToTenant(context.Background(), "t1", Message{Type: "pipeline.lead.created"})
}

// fakeQueue hands subscribed handlers back to the test for direct invocation.
type fakeQueue struct {
	handlers map[string]messagequeue.Handler
	stopped  int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{handlers: make(map[string]messagequeue.Handler)}
}

func (q *fakeQueue) Publish(context.Context, string, []byte) error { return nil }

func (q *fakeQueue) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	q.handlers[subject] = handler
	return func() { q.stopped++ }, nil
}

func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

func TestForward(t *testing.T) {
	h := NewHub()
	q := newFakeQueue()

	stop, err := h.Forward(context.Background(), q)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(q.handlers) != 2 {
		t.Fatalf("subscribed to %d subjects, want pipeline and followup", len(q.handlers))
	}
	for _, subject := range []string{messagequeue.SubjectPipeline, messagequeue.SubjectFollowup} {
		if q.handlers[subject] == nil {
			t.Errorf("no handler for %s", subject)
		}
	}

	ev := event.New(event.TypeLeadCreated, "t1", "l1", nil)
	data, _ := json.Marshal(ev)
	if err := q.handlers[messagequeue.SubjectPipeline](context.Background(), string(ev.Type), data); err != nil {
		t.Errorf("handler returned %v for a valid event", err)
	}

	// Malformed payloads are dropped without requesting redelivery.
	if err := q.handlers[messagequeue.SubjectPipeline](context.Background(), "pipeline.lead.created", []byte("{broken")); err != nil {
		t.Errorf("handler returned %v for a malformed event", err)
	}

	stop()
	if q.stopped != 2 {
		t.Errorf("stop cancelled %d subscriptions, want 2", q.stopped)
	}
}
