package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/domain/task"
)

// --- Tasks ---

func (s *Store) CreateTask(_ context.Context, scope principal.Scope, req task.CreateRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.getLeadLocked(scope, req.LeadID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &task.Task{
		ID:          newID(),
		TenantID:    l.TenantID,
		LeadID:      l.ID,
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueAt:       req.DueAt,
		Status:      task.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[t.ID] = t

	out := *t
	return &out, nil
}

func (s *Store) getTaskLocked(scope principal.Scope, id string) (*task.Task, error) {
	t, ok := s.tasks[id]
	if !ok || !scope.Allows(t.TenantID) {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

func (s *Store) GetTask(_ context.Context, scope principal.Scope, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTaskLocked(scope, id)
	if err != nil {
		return nil, err
	}
	out := *t
	return &out, nil
}

func (s *Store) ListTasks(_ context.Context, scope principal.Scope, leadID string) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getLeadLocked(scope, leadID); err != nil {
		return nil, err
	}

	var out []task.Task
	for _, t := range s.tasks {
		if t.LeadID == leadID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (s *Store) CompleteTask(_ context.Context, scope principal.Scope, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTaskLocked(scope, id)
	if err != nil {
		return nil, err
	}
	if err := t.Complete(s.now()); err != nil {
		return nil, err
	}
	out := *t
	return &out, nil
}

func (s *Store) CancelTask(_ context.Context, scope principal.Scope, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTaskLocked(scope, id)
	if err != nil {
		return nil, err
	}
	if err := t.Cancel(s.now()); err != nil {
		return nil, err
	}
	out := *t
	return &out, nil
}

// --- Scheduled messages ---

func (s *Store) CreateMessage(_ context.Context, scope principal.Scope, req message.CreateRequest) (*message.ScheduledMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.getLeadLocked(scope, req.LeadID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	m := &message.ScheduledMessage{
		ID:          newID(),
		TenantID:    l.TenantID,
		LeadID:      l.ID,
		OwnerID:     req.OwnerID,
		Channel:     req.Channel,
		Body:        req.Body,
		ScheduledAt: req.ScheduledAt,
		Status:      message.StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.messages[m.ID] = m

	out := *m
	return &out, nil
}

func (s *Store) getMessageLocked(scope principal.Scope, id string) (*message.ScheduledMessage, error) {
	m, ok := s.messages[id]
	if !ok || !scope.Allows(m.TenantID) {
		return nil, fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

func (s *Store) GetMessage(_ context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.getMessageLocked(scope, id)
	if err != nil {
		return nil, err
	}
	out := *m
	return &out, nil
}

func (s *Store) ListMessages(_ context.Context, scope principal.Scope, leadID string) ([]message.ScheduledMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getLeadLocked(scope, leadID); err != nil {
		return nil, err
	}

	var out []message.ScheduledMessage
	for _, m := range s.messages {
		if m.LeadID == leadID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *Store) MarkMessageSent(_ context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.getMessageLocked(scope, id)
	if err != nil {
		return nil, err
	}
	if err := m.MarkSent(s.now()); err != nil {
		return nil, err
	}
	out := *m
	return &out, nil
}

func (s *Store) MarkMessageFailed(_ context.Context, scope principal.Scope, id, reason string) (*message.ScheduledMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.getMessageLocked(scope, id)
	if err != nil {
		return nil, err
	}
	if err := m.MarkFailed(s.now(), reason); err != nil {
		return nil, err
	}
	out := *m
	return &out, nil
}

func (s *Store) CancelMessage(_ context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.getMessageLocked(scope, id)
	if err != nil {
		return nil, err
	}
	if err := m.Cancel(s.now()); err != nil {
		return nil, err
	}
	out := *m
	return &out, nil
}

func (s *Store) DueMessages(_ context.Context, scope principal.Scope, asOf time.Time) ([]message.ScheduledMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []message.ScheduledMessage
	for _, m := range s.messages {
		if scope.Allows(m.TenantID) && m.Due(asOf) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}
