package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/domain/task"
)

const taskColumns = `id, tenant_id, lead_id, owner_id, title, description, priority, due_at, status, completed_at, created_at, updated_at`

func scanTask(row scannable, t *task.Task) error {
	return row.Scan(&t.ID, &t.TenantID, &t.LeadID, &t.OwnerID, &t.Title, &t.Description,
		&t.Priority, &t.DueAt, &t.Status, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
}

const messageColumns = `id, tenant_id, lead_id, owner_id, channel, body, scheduled_at, status, sent_at, failure_reason, created_at, updated_at`

func scanMessage(row scannable, m *message.ScheduledMessage) error {
	return row.Scan(&m.ID, &m.TenantID, &m.LeadID, &m.OwnerID, &m.Channel, &m.Body,
		&m.ScheduledAt, &m.Status, &m.SentAt, &m.FailureReason, &m.CreatedAt, &m.UpdatedAt)
}

// leadTenant resolves a lead's tenant within scope, reading out-of-scope
// leads as not found.
func (s *Store) leadTenant(ctx context.Context, scope principal.Scope, leadID string) (string, error) {
	var tenantID string
	err := s.pool.QueryRow(ctx,
		`SELECT tenant_id FROM leads WHERE id = $1`, leadID).Scan(&tenantID)
	if err != nil {
		return "", notFoundWrap(err, "lead %s", leadID)
	}
	if err := inScope(scope, tenantID, "lead", leadID); err != nil {
		return "", err
	}
	return tenantID, nil
}

// --- Tasks ---

func (s *Store) CreateTask(ctx context.Context, scope principal.Scope, req task.CreateRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenantID, err := s.leadTenant(ctx, scope, req.LeadID)
	if err != nil {
		return nil, err
	}

	var t task.Task
	row := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (tenant_id, lead_id, owner_id, title, description, priority, due_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+taskColumns,
		tenantID, req.LeadID, req.OwnerID, req.Title, req.Description, string(req.Priority), req.DueAt)
	if err := scanTask(row, &t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

func (s *Store) GetTask(ctx context.Context, scope principal.Scope, id string) (*task.Task, error) {
	var t task.Task
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if err := scanTask(row, &t); err != nil {
		return nil, notFoundWrap(err, "get task %s", id)
	}
	if err := inScope(scope, t.TenantID, "task", id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, scope principal.Scope, leadID string) ([]task.Task, error) {
	if _, err := s.leadTenant(ctx, scope, leadID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE lead_id = $1 ORDER BY due_at ASC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for lead %s: %w", leadID, err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var t task.Task
		if err := scanTask(rows, &t); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return orEmpty(tasks), rows.Err()
}

// transitionTask performs a guarded pending-only transition inside one
// transaction. The row is locked first so the scope check and the status
// check see the same version; the losing side of a race reports
// ErrInvalidState, never a silent overwrite.
func (s *Store) transitionTask(ctx context.Context, scope principal.Scope, id string, to task.Status) (*task.Task, error) {
	var t task.Task
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
		if err := scanTask(row, &t); err != nil {
			return notFoundWrap(err, "task %s", id)
		}
		if err := inScope(scope, t.TenantID, "task", id); err != nil {
			return err
		}
		if t.Status != task.StatusPending {
			return fmt.Errorf("%w: task %s is %s", domain.ErrInvalidState, id, t.Status)
		}

		completedAt := "NULL"
		if to == task.StatusCompleted {
			completedAt = "now()"
		}
		row = tx.QueryRow(ctx,
			`UPDATE tasks SET status = $2, completed_at = `+completedAt+`, updated_at = now()
			 WHERE id = $1
			 RETURNING `+taskColumns, id, string(to))
		return scanTask(row, &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CompleteTask(ctx context.Context, scope principal.Scope, id string) (*task.Task, error) {
	return s.transitionTask(ctx, scope, id, task.StatusCompleted)
}

func (s *Store) CancelTask(ctx context.Context, scope principal.Scope, id string) (*task.Task, error) {
	return s.transitionTask(ctx, scope, id, task.StatusCancelled)
}

// --- Scheduled messages ---

func (s *Store) CreateMessage(ctx context.Context, scope principal.Scope, req message.CreateRequest) (*message.ScheduledMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenantID, err := s.leadTenant(ctx, scope, req.LeadID)
	if err != nil {
		return nil, err
	}

	var m message.ScheduledMessage
	row := s.pool.QueryRow(ctx,
		`INSERT INTO scheduled_messages (tenant_id, lead_id, owner_id, channel, body, scheduled_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+messageColumns,
		tenantID, req.LeadID, req.OwnerID, string(req.Channel), req.Body, req.ScheduledAt)
	if err := scanMessage(row, &m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return &m, nil
}

func (s *Store) GetMessage(ctx context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error) {
	var m message.ScheduledMessage
	row := s.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM scheduled_messages WHERE id = $1`, id)
	if err := scanMessage(row, &m); err != nil {
		return nil, notFoundWrap(err, "get message %s", id)
	}
	if err := inScope(scope, m.TenantID, "message", id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListMessages(ctx context.Context, scope principal.Scope, leadID string) ([]message.ScheduledMessage, error) {
	if _, err := s.leadTenant(ctx, scope, leadID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM scheduled_messages WHERE lead_id = $1 ORDER BY scheduled_at ASC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list messages for lead %s: %w", leadID, err)
	}
	defer rows.Close()

	var msgs []message.ScheduledMessage
	for rows.Next() {
		var m message.ScheduledMessage
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return orEmpty(msgs), rows.Err()
}

// transitionMessage mirrors transitionTask for the scheduled-only states.
func (s *Store) transitionMessage(ctx context.Context, scope principal.Scope, id string, to message.Status, reason string) (*message.ScheduledMessage, error) {
	var m message.ScheduledMessage
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+messageColumns+` FROM scheduled_messages WHERE id = $1 FOR UPDATE`, id)
		if err := scanMessage(row, &m); err != nil {
			return notFoundWrap(err, "message %s", id)
		}
		if err := inScope(scope, m.TenantID, "message", id); err != nil {
			return err
		}
		if m.Status != message.StatusScheduled {
			return fmt.Errorf("%w: message %s is %s", domain.ErrInvalidState, id, m.Status)
		}

		sentAt := "NULL"
		if to == message.StatusSent {
			sentAt = "now()"
		}
		row = tx.QueryRow(ctx,
			`UPDATE scheduled_messages SET status = $2, sent_at = `+sentAt+`, failure_reason = $3, updated_at = now()
			 WHERE id = $1
			 RETURNING `+messageColumns, id, string(to), reason)
		return scanMessage(row, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) MarkMessageSent(ctx context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error) {
	return s.transitionMessage(ctx, scope, id, message.StatusSent, "")
}

func (s *Store) MarkMessageFailed(ctx context.Context, scope principal.Scope, id, reason string) (*message.ScheduledMessage, error) {
	return s.transitionMessage(ctx, scope, id, message.StatusFailed, reason)
}

func (s *Store) CancelMessage(ctx context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error) {
	return s.transitionMessage(ctx, scope, id, message.StatusCancelled, "")
}

// DueMessages returns scheduled messages whose send time has passed,
// oldest first. The dispatcher calls this with the system scope; tenant
// operators see only their own backlog.
func (s *Store) DueMessages(ctx context.Context, scope principal.Scope, asOf time.Time) ([]message.ScheduledMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM scheduled_messages
		 WHERE status = 'scheduled' AND scheduled_at <= $1`
	args := []any{asOf}
	if !scope.All {
		query += ` AND tenant_id = ANY($2)`
		args = append(args, scope.TenantIDs)
	}
	query += ` ORDER BY scheduled_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("due messages: %w", err)
	}
	defer rows.Close()

	var msgs []message.ScheduledMessage
	for rows.Next() {
		var m message.ScheduledMessage
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return orEmpty(msgs), rows.Err()
}
