package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/fluxcrm/leadengine/internal/adapter/memory"
	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/event"
	"github.com/fluxcrm/leadengine/internal/domain/lead"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/domain/stage"
	"github.com/fluxcrm/leadengine/internal/domain/tenant"
	"github.com/fluxcrm/leadengine/internal/port/messagequeue"
)

// mockQueue records published messages for assertions.
type mockQueue struct {
	mu        sync.Mutex
	published []publishedMsg
}

type publishedMsg struct {
	subject string
	data    []byte
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, publishedMsg{subject: subject, data: data})
	return nil
}

func (q *mockQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

// events unmarshals every published envelope in publish order.
func (q *mockQueue) events(t *testing.T) []event.Event {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]event.Event, len(q.published))
	for i, p := range q.published {
		if err := json.Unmarshal(p.data, &out[i]); err != nil {
			t.Fatalf("unmarshal event %d on %s: %v", i, p.subject, err)
		}
		if p.subject != string(out[i].Type) {
			t.Fatalf("event %d published on %q, envelope type %q", i, p.subject, out[i].Type)
		}
	}
	return out
}

type pipelineFixture struct {
	svc    *PipelineService
	queue  *mockQueue
	scope  principal.Scope
	tenant *tenant.Tenant
	stageA *stage.Stage
	stageB *stage.Stage
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	tn, err := store.CreateTenant(ctx, tenant.CreateRequest{Name: "Acme", Slug: "acme"})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	scope := principal.Scope{UserID: "mgr", TenantIDs: []string{tn.ID}, CanWrite: true, IsManager: true}

	a, err := store.CreateStage(ctx, scope, tn.ID, stage.CreateRequest{Name: "New"})
	if err != nil {
		t.Fatalf("create stage: %v", err)
	}
	b, err := store.CreateStage(ctx, scope, tn.ID, stage.CreateRequest{Name: "Won"})
	if err != nil {
		t.Fatalf("create stage: %v", err)
	}

	queue := &mockQueue{}
	return &pipelineFixture{
		svc:    NewPipelineService(store, queue, nil),
		queue:  queue,
		scope:  scope,
		tenant: tn,
		stageA: a,
		stageB: b,
	}
}

func TestPipelineService_CreateLead(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	l, err := f.svc.CreateLead(ctx, f.scope, f.tenant.ID, lead.CreateRequest{
		StageID: f.stageA.ID, Name: "Maria", Course: "fullstack", Value: 1200,
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}

	evs := f.queue.events(t)
	if len(evs) != 1 {
		t.Fatalf("published %d events, want 1", len(evs))
	}
	ev := evs[0]
	if ev.Type != event.TypeLeadCreated || ev.TenantID != f.tenant.ID || ev.EntityID != l.ID {
		t.Errorf("event = {%s %s %s}, want {%s %s %s}",
			ev.Type, ev.TenantID, ev.EntityID, event.TypeLeadCreated, f.tenant.ID, l.ID)
	}
}

func TestPipelineService_CreateLead_InvalidNoEvent(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.svc.CreateLead(context.Background(), f.scope, f.tenant.ID, lead.CreateRequest{
		StageID: f.stageA.ID, Name: "", Course: "fullstack",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if evs := f.queue.events(t); len(evs) != 0 {
		t.Fatalf("failed mutation published %d events", len(evs))
	}
}

func TestPipelineService_MoveLead(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	l, err := f.svc.CreateLead(ctx, f.scope, f.tenant.ID, lead.CreateRequest{
		StageID: f.stageA.ID, Name: "Maria", Course: "fullstack",
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}

	if _, err := f.svc.MoveLead(ctx, f.scope, l.ID, f.stageB.ID); err != nil {
		t.Fatalf("move lead: %v", err)
	}

	evs := f.queue.events(t)
	if len(evs) != 2 {
		t.Fatalf("published %d events, want create + move", len(evs))
	}
	moved := evs[1]
	if moved.Type != event.TypeLeadMoved {
		t.Fatalf("event type = %s, want %s", moved.Type, event.TypeLeadMoved)
	}
	var payload struct {
		From string `json:"from_stage_id"`
		To   string `json:"to_stage_id"`
	}
	if err := json.Unmarshal(moved.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.From != f.stageA.ID || payload.To != f.stageB.ID {
		t.Errorf("payload = {%s -> %s}, want {%s -> %s}", payload.From, payload.To, f.stageA.ID, f.stageB.ID)
	}

	// A same-stage move succeeds quietly.
	if _, err := f.svc.MoveLead(ctx, f.scope, l.ID, f.stageB.ID); err != nil {
		t.Fatalf("same-stage move: %v", err)
	}
	if evs := f.queue.events(t); len(evs) != 2 {
		t.Fatalf("same-stage move published an event (total %d)", len(evs))
	}
}

func TestPipelineService_DeleteStage(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateLead(ctx, f.scope, f.tenant.ID, lead.CreateRequest{
		StageID: f.stageA.ID, Name: "Maria", Course: "fullstack",
	}); err != nil {
		t.Fatalf("create lead: %v", err)
	}

	if err := f.svc.DeleteStage(ctx, f.scope, f.tenant.ID, f.stageA.ID, &f.stageB.ID); err != nil {
		t.Fatalf("delete stage: %v", err)
	}

	evs := f.queue.events(t)
	last := evs[len(evs)-1]
	if last.Type != event.TypeStageDeleted || last.EntityID != f.stageA.ID {
		t.Fatalf("last event = {%s %s}, want {%s %s}", last.Type, last.EntityID, event.TypeStageDeleted, f.stageA.ID)
	}
	var payload struct {
		StageID      string `json:"stage_id"`
		RedirectedTo string `json:"redirected_to"`
	}
	if err := json.Unmarshal(last.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.RedirectedTo != f.stageB.ID {
		t.Errorf("redirected_to = %s, want %s", payload.RedirectedTo, f.stageB.ID)
	}
}

func TestPipelineService_DeleteLead(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	l, err := f.svc.CreateLead(ctx, f.scope, f.tenant.ID, lead.CreateRequest{
		StageID: f.stageA.ID, Name: "Maria", Course: "fullstack",
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}

	if err := f.svc.DeleteLead(ctx, f.scope, l.ID, false); err != nil {
		t.Fatalf("delete lead: %v", err)
	}

	evs := f.queue.events(t)
	last := evs[len(evs)-1]
	if last.Type != event.TypeLeadDeleted || last.EntityID != l.ID {
		t.Fatalf("last event = {%s %s}, want {%s %s}", last.Type, last.EntityID, event.TypeLeadDeleted, l.ID)
	}

	// Deleting a missing lead publishes nothing further.
	if err := f.svc.DeleteLead(ctx, f.scope, l.ID, false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if again := f.queue.events(t); len(again) != len(evs) {
		t.Fatalf("failed delete published an event (total %d)", len(again))
	}
}

func TestPipelineService_ReorderStages(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	if _, err := f.svc.ReorderStages(ctx, f.scope, f.tenant.ID, []string{f.stageB.ID, f.stageA.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	evs := f.queue.events(t)
	if len(evs) != 1 || evs[0].Type != event.TypeStageReordered {
		t.Fatalf("events = %v, want one %s", evs, event.TypeStageReordered)
	}
	if evs[0].EntityID != f.tenant.ID {
		t.Errorf("entity = %s, want tenant id %s", evs[0].EntityID, f.tenant.ID)
	}
}
