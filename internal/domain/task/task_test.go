package task

import (
	"errors"
	"testing"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain"
)

var due = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCreateRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr bool
	}{
		{name: "valid", req: CreateRequest{Title: "Call back", DueAt: due, Priority: PriorityHigh}},
		{name: "missing title", req: CreateRequest{DueAt: due}, wantErr: true},
		{name: "missing due date", req: CreateRequest{Title: "Call back"}, wantErr: true},
		{name: "unknown priority", req: CreateRequest{Title: "Call back", DueAt: due, Priority: "asap"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateRequest_Validate_DefaultPriority(t *testing.T) {
	req := CreateRequest{Title: "Call back", DueAt: due}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Priority != PriorityMedium {
		t.Fatalf("priority = %q, want %q", req.Priority, PriorityMedium)
	}
}

func TestTask_Complete(t *testing.T) {
	now := due.Add(time.Hour)
	tk := Task{ID: "t1", Status: StatusPending}

	if err := tk.Complete(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk.Status != StatusCompleted {
		t.Errorf("status = %q, want %q", tk.Status, StatusCompleted)
	}
	if tk.CompletedAt == nil || !tk.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt = %v, want %v", tk.CompletedAt, now)
	}

	// Terminal states reject further transitions.
	if err := tk.Complete(now); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
	if err := tk.Cancel(now); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestTask_Cancel(t *testing.T) {
	now := due.Add(time.Hour)
	tk := Task{ID: "t1", Status: StatusPending}

	if err := tk.Cancel(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk.Status != StatusCancelled {
		t.Errorf("status = %q, want %q", tk.Status, StatusCancelled)
	}
	if tk.CompletedAt != nil {
		t.Error("cancel must not set CompletedAt")
	}

	if err := tk.Complete(now); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}

func TestTask_Overdue(t *testing.T) {
	tk := Task{Status: StatusPending, DueAt: due}

	if tk.Overdue(due.Add(-time.Minute)) {
		t.Error("task before its due date is not overdue")
	}
	if !tk.Overdue(due.Add(time.Minute)) {
		t.Error("pending task past its due date is overdue")
	}

	tk.Status = StatusCompleted
	if tk.Overdue(due.Add(time.Minute)) {
		t.Error("completed task is never overdue")
	}
}
