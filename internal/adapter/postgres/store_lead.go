package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/lead"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
)

const leadColumns = `id, tenant_id, stage_id, name, course, value, assigned_to, tags, notes, attributes, created_at, updated_at`

func scanLead(row scannable, l *lead.Lead) error {
	var attrs []byte
	if err := row.Scan(&l.ID, &l.TenantID, &l.StageID, &l.Name, &l.Course, &l.Value,
		&l.AssignedTo, &l.Tags, &l.Notes, &attrs, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return err
	}
	if attrs != nil {
		_ = json.Unmarshal(attrs, &l.Attributes)
	}
	return nil
}

func marshalAttrs(attrs map[string]any) ([]byte, error) {
	if attrs == nil {
		return nil, nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return data, nil
}

// stageOwner resolves the owning tenant of a stage inside the transaction.
// A missing stage is a validation error; any other failure is passed through
// so it does not masquerade as bad input.
func stageOwner(ctx context.Context, tx pgx.Tx, stageID string) (string, error) {
	var tenantID string
	err := tx.QueryRow(ctx,
		`SELECT tenant_id FROM stages WHERE id = $1`, stageID).Scan(&tenantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: stage %s does not exist", domain.ErrValidation, stageID)
	}
	if err != nil {
		return "", fmt.Errorf("lookup stage %s: %w", stageID, err)
	}
	return tenantID, nil
}

func (s *Store) CreateLead(ctx context.Context, scope principal.Scope, tenantID string, req lead.CreateRequest) (*lead.Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := requireScope(scope, tenantID); err != nil {
		return nil, err
	}

	attrs, err := marshalAttrs(req.Attributes)
	if err != nil {
		return nil, err
	}

	var l lead.Lead
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		owner, err := stageOwner(ctx, tx, req.StageID)
		if err != nil {
			return err
		}
		if owner != tenantID {
			return fmt.Errorf("%w: stage %s does not belong to the tenant", domain.ErrValidation, req.StageID)
		}

		row := tx.QueryRow(ctx,
			`INSERT INTO leads (tenant_id, stage_id, name, course, value, assigned_to, tags, notes, attributes)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING `+leadColumns,
			tenantID, req.StageID, req.Name, req.Course, req.Value,
			req.AssignedTo, orEmpty(req.Tags), req.Notes, attrs)
		if err := scanLead(row, &l); err != nil {
			return fmt.Errorf("create lead: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) GetLead(ctx context.Context, scope principal.Scope, id string) (*lead.Lead, error) {
	var l lead.Lead
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	if err := scanLead(row, &l); err != nil {
		return nil, notFoundWrap(err, "get lead %s", id)
	}
	if err := inScope(scope, l.TenantID, "lead", id); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) ListLeads(ctx context.Context, scope principal.Scope, tenantID string) ([]lead.Lead, error) {
	if err := requireScope(scope, tenantID); err != nil {
		return nil, err
	}

	// Non-managers get the "my leads" view; that is a view filter, not a
	// security boundary.
	query := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = $1 ORDER BY created_at ASC`
	args := []any{tenantID}
	if !scope.IsManager {
		query = `SELECT ` + leadColumns + ` FROM leads
		 WHERE tenant_id = $1 AND assigned_to = $2 ORDER BY created_at ASC`
		args = append(args, scope.UserID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []lead.Lead
	for rows.Next() {
		var l lead.Lead
		if err := scanLead(rows, &l); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return orEmpty(leads), rows.Err()
}

func (s *Store) MoveLead(ctx context.Context, scope principal.Scope, id, newStageID string) (*lead.Lead, error) {
	var l lead.Lead
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id)
		if err := scanLead(row, &l); err != nil {
			return notFoundWrap(err, "move lead %s", id)
		}
		if err := inScope(scope, l.TenantID, "lead", id); err != nil {
			return err
		}

		if l.StageID == newStageID {
			return nil
		}

		owner, err := stageOwner(ctx, tx, newStageID)
		if err != nil {
			return err
		}
		if owner != l.TenantID {
			return fmt.Errorf("%w: stage %s does not belong to the lead's tenant",
				domain.ErrValidation, newStageID)
		}

		row = tx.QueryRow(ctx,
			`UPDATE leads SET stage_id = $2, updated_at = now()
			 WHERE id = $1
			 RETURNING `+leadColumns, id, newStageID)
		if err := scanLead(row, &l); err != nil {
			return fmt.Errorf("move lead %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) UpdateLead(ctx context.Context, scope principal.Scope, id string, req lead.UpdateRequest) (*lead.Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var l lead.Lead
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id)
		if err := scanLead(row, &l); err != nil {
			return notFoundWrap(err, "update lead %s", id)
		}
		if err := inScope(scope, l.TenantID, "lead", id); err != nil {
			return err
		}

		req.Apply(&l)
		attrs, err := marshalAttrs(l.Attributes)
		if err != nil {
			return err
		}

		row = tx.QueryRow(ctx,
			`UPDATE leads
			 SET name = $2, course = $3, value = $4, assigned_to = $5,
			     tags = $6, notes = $7, attributes = $8, updated_at = now()
			 WHERE id = $1
			 RETURNING `+leadColumns,
			id, l.Name, l.Course, l.Value, l.AssignedTo, orEmpty(l.Tags), l.Notes, attrs)
		if err := scanLead(row, &l); err != nil {
			return fmt.Errorf("update lead %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) DeleteLead(ctx context.Context, scope principal.Scope, id string, force bool) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var l lead.Lead
		row := tx.QueryRow(ctx,
			`SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id)
		if err := scanLead(row, &l); err != nil {
			return notFoundWrap(err, "delete lead %s", id)
		}
		if err := inScope(scope, l.TenantID, "lead", id); err != nil {
			return err
		}

		var open int
		err := tx.QueryRow(ctx,
			`SELECT (SELECT count(*) FROM tasks WHERE lead_id = $1 AND status = 'pending')
			      + (SELECT count(*) FROM scheduled_messages WHERE lead_id = $1 AND status = 'scheduled')`,
			id).Scan(&open)
		if err != nil {
			return fmt.Errorf("count open obligations for lead %s: %w", id, err)
		}
		if open > 0 && !force {
			return fmt.Errorf("lead %s has %d open obligations: %w", id, open, domain.ErrConflict)
		}

		// ON DELETE CASCADE removes the dependents in the same transaction.
		tag, err := tx.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
		return execExpectOne(tag, err, "delete lead %s", id)
	})
}
