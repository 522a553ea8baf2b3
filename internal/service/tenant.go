package service

import (
	"context"
	"fmt"

	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/domain/tenant"
	"github.com/fluxcrm/leadengine/internal/port/database"
)

// TenantService handles tenant administration. All operations require the
// unrestricted scope; tenant operators manage their data, not tenants.
type TenantService struct {
	store    database.TenantStore
	resolver *Resolver
}

// NewTenantService creates a new TenantService. resolver may be nil when
// no scope cache needs invalidating (tests).
func NewTenantService(store database.TenantStore, resolver *Resolver) *TenantService {
	return &TenantService{store: store, resolver: resolver}
}

func requireAdmin(scope principal.Scope) error {
	if !scope.All {
		return fmt.Errorf("tenant administration: %w", domain.ErrForbidden)
	}
	return nil
}

// Create provisions a tenant, optionally seeding its pipeline stages from
// the named root tenant.
func (s *TenantService) Create(ctx context.Context, scope principal.Scope, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := requireAdmin(scope); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.CreateTenant(ctx, req)
}

// Get returns a tenant by ID. Operators can fetch their own tenant;
// anything else resolves to not found.
func (s *TenantService) Get(ctx context.Context, scope principal.Scope, id string) (*tenant.Tenant, error) {
	if !scope.Allows(id) {
		return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	return s.store.GetTenant(ctx, id)
}

// List returns all tenants.
func (s *TenantService) List(ctx context.Context, scope principal.Scope) ([]tenant.Tenant, error) {
	if err := requireAdmin(scope); err != nil {
		return nil, err
	}
	return s.store.ListTenants(ctx)
}

// Update applies partial updates to a tenant. A status change invalidates
// the resolver's cached status so suspensions apply immediately.
func (s *TenantService) Update(ctx context.Context, scope principal.Scope, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	if err := requireAdmin(scope); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := s.store.UpdateTenant(ctx, id, req)
	if err != nil {
		return nil, err
	}

	if req.Status != nil && s.resolver != nil {
		s.resolver.Invalidate(ctx, id)
	}
	return t, nil
}
