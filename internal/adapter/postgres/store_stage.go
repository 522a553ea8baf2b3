package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/domain/stage"
)

const stageColumns = `id, tenant_id, name, color, ord, created_at, updated_at`

func scanStage(row scannable, st *stage.Stage) error {
	return row.Scan(&st.ID, &st.TenantID, &st.Name, &st.Color, &st.Order, &st.CreatedAt, &st.UpdatedAt)
}

// lockTenantStages takes row locks on all of the tenant's stages, ordered by
// ord. This serializes concurrent stage writes per tenant: the second
// reorder/delete blocks until the first commits.
func lockTenantStages(ctx context.Context, tx pgx.Tx, tenantID string) ([]stage.Stage, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+stageColumns+` FROM stages
		 WHERE tenant_id = $1 ORDER BY ord ASC
		 FOR UPDATE`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("lock stages for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var stages []stage.Stage
	for rows.Next() {
		var st stage.Stage
		if err := scanStage(rows, &st); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

func (s *Store) CreateStage(ctx context.Context, scope principal.Scope, tenantID string, req stage.CreateRequest) (*stage.Stage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := requireScope(scope, tenantID); err != nil {
		return nil, err
	}

	var st stage.Stage
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := lockTenantStages(ctx, tx, tenantID)
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx,
			`INSERT INTO stages (tenant_id, name, color, ord)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+stageColumns,
			tenantID, req.Name, req.Color, len(current))
		if err := scanStage(row, &st); err != nil {
			return fmt.Errorf("create stage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListStages(ctx context.Context, scope principal.Scope, tenantID string) ([]stage.Stage, error) {
	if err := requireScope(scope, tenantID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+stageColumns+` FROM stages WHERE tenant_id = $1 ORDER BY ord ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	var stages []stage.Stage
	for rows.Next() {
		var st stage.Stage
		if err := scanStage(rows, &st); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, st)
	}
	return orEmpty(stages), rows.Err()
}

func (s *Store) ReorderStages(ctx context.Context, scope principal.Scope, tenantID string, orderedIDs []string) ([]stage.Stage, error) {
	if err := requireScope(scope, tenantID); err != nil {
		return nil, err
	}

	var reordered []stage.Stage
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := lockTenantStages(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		if err := stage.ValidatePermutation(current, orderedIDs); err != nil {
			return err
		}

		// Two-phase write through negative ords; the (tenant_id, ord)
		// unique constraint is deferred and checks at commit, when the
		// permutation is complete.
		for i, id := range orderedIDs {
			_, err := tx.Exec(ctx,
				`UPDATE stages SET ord = $3, updated_at = now()
				 WHERE id = $1 AND tenant_id = $2`,
				id, tenantID, -(i + 1))
			if err != nil {
				return fmt.Errorf("reorder stage %s: %w", id, err)
			}
		}
		_, err = tx.Exec(ctx,
			`UPDATE stages SET ord = -ord - 1 WHERE tenant_id = $1 AND ord < 0`, tenantID)
		if err != nil {
			return fmt.Errorf("finalize reorder: %w", err)
		}

		rows, err := tx.Query(ctx,
			`SELECT `+stageColumns+` FROM stages WHERE tenant_id = $1 ORDER BY ord ASC`, tenantID)
		if err != nil {
			return fmt.Errorf("reload stages: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var st stage.Stage
			if err := scanStage(rows, &st); err != nil {
				return fmt.Errorf("scan stage: %w", err)
			}
			reordered = append(reordered, st)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return reordered, nil
}

func (s *Store) DeleteStage(ctx context.Context, scope principal.Scope, tenantID, stageID string, redirectID *string) error {
	if err := requireScope(scope, tenantID); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := lockTenantStages(ctx, tx, tenantID)
		if err != nil {
			return err
		}

		found := false
		for _, st := range current {
			if st.ID == stageID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("delete stage %s: %w", stageID, domain.ErrNotFound)
		}

		// Lead count is checked inside the same transaction as the delete,
		// after the stage rows are locked, so a concurrent MoveLead commits
		// either entirely before or entirely after this operation.
		rows, err := tx.Query(ctx,
			`SELECT id FROM leads WHERE stage_id = $1 FOR UPDATE`, stageID)
		if err != nil {
			return fmt.Errorf("lock leads in stage %s: %w", stageID, err)
		}
		occupants := 0
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan lead id: %w", err)
			}
			occupants++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("lock leads in stage %s: %w", stageID, err)
		}

		if occupants > 0 && redirectID == nil {
			return fmt.Errorf("%w: stage %s has %d leads and no redirect stage was given",
				domain.ErrValidation, stageID, occupants)
		}
		if redirectID != nil {
			if *redirectID == stageID {
				return fmt.Errorf("%w: redirect stage must differ from the deleted stage", domain.ErrValidation)
			}
			redirectOK := false
			for _, st := range current {
				if st.ID == *redirectID {
					redirectOK = true
					break
				}
			}
			if !redirectOK {
				return fmt.Errorf("%w: redirect stage %s does not belong to the tenant",
					domain.ErrValidation, *redirectID)
			}

			_, err = tx.Exec(ctx,
				`UPDATE leads SET stage_id = $2, updated_at = now() WHERE stage_id = $1`,
				stageID, *redirectID)
			if err != nil {
				return fmt.Errorf("redistribute leads from stage %s: %w", stageID, err)
			}
		}

		tag, err := tx.Exec(ctx, `DELETE FROM stages WHERE id = $1`, stageID)
		if err := execExpectOne(tag, err, "delete stage %s", stageID); err != nil {
			return err
		}

		// Close the gap so orders stay dense and 0-based.
		_, err = tx.Exec(ctx,
			`UPDATE stages s SET ord = n.new_ord, updated_at = now()
			 FROM (SELECT id, row_number() OVER (ORDER BY ord ASC) - 1 AS new_ord
			       FROM stages WHERE tenant_id = $1) n
			 WHERE s.id = n.id AND s.ord <> n.new_ord`, tenantID)
		if err != nil {
			return fmt.Errorf("compact stage order: %w", err)
		}
		return nil
	})
}
