// Package task defines the follow-up Task domain entity and its state machine.
package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain"
)

// Status represents the current state of a task. Completed and cancelled
// are terminal; there is no transition out of them.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriorities is the set of accepted task priorities.
var ValidPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// Task is a follow-up obligation attached to a lead. Tasks always start
// pending and end completed or cancelled.
type Task struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	LeadID      string     `json:"lead_id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	DueAt       time.Time  `json:"due_at"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Overdue reports whether the task is past due and still pending. It is
// derived, never stored.
func (t *Task) Overdue(now time.Time) bool {
	return t.Status == StatusPending && t.DueAt.Before(now)
}

// Complete transitions the task to completed. Only pending tasks may
// complete; CompletedAt is set exactly once.
func (t *Task) Complete(now time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: task %s is %s", domain.ErrInvalidState, t.ID, t.Status)
	}
	t.Status = StatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// Cancel transitions the task to cancelled. Only pending tasks may cancel.
func (t *Task) Cancel(now time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: task %s is %s", domain.ErrInvalidState, t.ID, t.Status)
	}
	t.Status = StatusCancelled
	t.UpdatedAt = now
	return nil
}

// CreateRequest holds the fields needed to create a task.
type CreateRequest struct {
	LeadID      string    `json:"lead_id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    Priority  `json:"priority,omitempty"`
	DueAt       time.Time `json:"due_at"`
}

// Validate checks the CreateRequest and applies the priority default.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: task title is required", domain.ErrValidation)
	}
	if r.DueAt.IsZero() {
		return fmt.Errorf("%w: due_at is required", domain.ErrValidation)
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if !ValidPriorities[r.Priority] {
		return fmt.Errorf("%w: unknown priority %q", domain.ErrValidation, r.Priority)
	}
	return nil
}
