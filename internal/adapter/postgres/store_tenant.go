package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/tenant"
)

const tenantColumns = `id, name, slug, kind, status, created_at, updated_at`

func scanTenant(row scannable, t *tenant.Tenant) error {
	return row.Scan(&t.ID, &t.Name, &t.Slug, &t.Kind, &t.Status, &t.CreatedAt, &t.UpdatedAt)
}

func (s *Store) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var t tenant.Tenant
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO tenants (name, slug, kind)
			 VALUES ($1, $2, $3)
			 RETURNING `+tenantColumns,
			req.Name, req.Slug, string(req.Kind))
		if err := scanTenant(row, &t); err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}

		if req.SeedStagesFrom == "" {
			return nil
		}

		// One-shot copy of a root tenant's stages; not a live link.
		var srcKind string
		err := tx.QueryRow(ctx,
			`SELECT kind FROM tenants WHERE id = $1`, req.SeedStagesFrom).Scan(&srcKind)
		if err != nil {
			return notFoundWrap(err, "seed tenant %s", req.SeedStagesFrom)
		}
		if tenant.Kind(srcKind) != tenant.KindRoot {
			return fmt.Errorf("%w: stages can only be seeded from a root tenant", domain.ErrValidation)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO stages (tenant_id, name, color, ord)
			 SELECT $1, name, color, ord FROM stages WHERE tenant_id = $2`,
			t.ID, req.SeedStagesFrom)
		if err != nil {
			return fmt.Errorf("seed stages: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	if err := scanTenant(row, &t); err != nil {
		return nil, notFoundWrap(err, "get tenant %s", id)
	}
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := scanTenant(rows, &t); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *Store) UpdateTenant(ctx context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var t tenant.Tenant
	row := s.pool.QueryRow(ctx,
		`UPDATE tenants
		 SET name = COALESCE(NULLIF($2, ''), name),
		     status = COALESCE($3, status),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+tenantColumns,
		id, req.Name, statusOrNil(req.Status))
	if err := scanTenant(row, &t); err != nil {
		return nil, notFoundWrap(err, "update tenant %s", id)
	}
	return &t, nil
}

func statusOrNil(st *tenant.Status) *string {
	if st == nil {
		return nil
	}
	s := string(*st)
	return &s
}
