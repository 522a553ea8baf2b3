package service

import (
	"context"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain/event"
	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/domain/task"
	"github.com/fluxcrm/leadengine/internal/port/database"
	"github.com/fluxcrm/leadengine/internal/port/messagequeue"
)

// FollowupService handles follow-up task and scheduled message logic.
type FollowupService struct {
	store database.FollowupStore
	queue messagequeue.Queue
}

// NewFollowupService creates a new FollowupService. queue may be nil.
func NewFollowupService(store database.FollowupStore, queue messagequeue.Queue) *FollowupService {
	return &FollowupService{store: store, queue: queue}
}

// CreateTask attaches a follow-up task to a lead.
func (s *FollowupService) CreateTask(ctx context.Context, scope principal.Scope, req task.CreateRequest) (*task.Task, error) {
	t, err := s.store.CreateTask(ctx, scope, req)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, event.New(event.TypeTaskCreated, t.TenantID, t.ID, t))
	return t, nil
}

// GetTask returns a task by ID.
func (s *FollowupService) GetTask(ctx context.Context, scope principal.Scope, id string) (*task.Task, error) {
	return s.store.GetTask(ctx, scope, id)
}

// ListTasks returns a lead's tasks ordered by due date.
func (s *FollowupService) ListTasks(ctx context.Context, scope principal.Scope, leadID string) ([]task.Task, error) {
	return s.store.ListTasks(ctx, scope, leadID)
}

// CompleteTask marks a pending task completed.
func (s *FollowupService) CompleteTask(ctx context.Context, scope principal.Scope, id string) (*task.Task, error) {
	t, err := s.store.CompleteTask(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, event.New(event.TypeTaskCompleted, t.TenantID, t.ID, t))
	return t, nil
}

// CancelTask marks a pending task cancelled.
func (s *FollowupService) CancelTask(ctx context.Context, scope principal.Scope, id string) (*task.Task, error) {
	t, err := s.store.CancelTask(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, event.New(event.TypeTaskCancelled, t.TenantID, t.ID, t))
	return t, nil
}

// ScheduleMessage attaches a scheduled message to a lead. A send time in
// the past is accepted; the dispatcher picks the message up on its next
// poll.
func (s *FollowupService) ScheduleMessage(ctx context.Context, scope principal.Scope, req message.CreateRequest) (*message.ScheduledMessage, error) {
	m, err := s.store.CreateMessage(ctx, scope, req)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, event.New(event.TypeMessageScheduled, m.TenantID, m.ID, m))
	return m, nil
}

// GetMessage returns a scheduled message by ID.
func (s *FollowupService) GetMessage(ctx context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error) {
	return s.store.GetMessage(ctx, scope, id)
}

// ListMessages returns a lead's scheduled messages ordered by send time.
func (s *FollowupService) ListMessages(ctx context.Context, scope principal.Scope, leadID string) ([]message.ScheduledMessage, error) {
	return s.store.ListMessages(ctx, scope, leadID)
}

// MarkMessageSent records a successful delivery performed by an external
// collaborator.
func (s *FollowupService) MarkMessageSent(ctx context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error) {
	m, err := s.store.MarkMessageSent(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, event.New(event.TypeMessageSent, m.TenantID, m.ID, m))
	return m, nil
}

// MarkMessageFailed records a failed delivery with its reason.
func (s *FollowupService) MarkMessageFailed(ctx context.Context, scope principal.Scope, id, reason string) (*message.ScheduledMessage, error) {
	m, err := s.store.MarkMessageFailed(ctx, scope, id, reason)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, event.New(event.TypeMessageFailed, m.TenantID, m.ID, m))
	return m, nil
}

// DueMessages returns the messages in scope due for dispatch at asOf.
func (s *FollowupService) DueMessages(ctx context.Context, scope principal.Scope, asOf time.Time) ([]message.ScheduledMessage, error) {
	return s.store.DueMessages(ctx, scope, asOf)
}

// CancelMessage withdraws a message that has not been dispatched yet.
func (s *FollowupService) CancelMessage(ctx context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error) {
	m, err := s.store.CancelMessage(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, event.New(event.TypeMessageCancelled, m.TenantID, m.ID, m))
	return m, nil
}
