package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/domain/tenant"
	"github.com/fluxcrm/leadengine/internal/port/cache"
	"github.com/fluxcrm/leadengine/internal/port/database"
)

// Resolver turns a caller identity into an access scope, verifying that
// the caller's tenant exists and is active. Tenant status is cached so
// the check does not hit the store on every request.
type Resolver struct {
	store database.TenantStore
	cache cache.Cache
	ttl   time.Duration
}

// NewResolver creates a Resolver. cache may be nil, which disables caching.
func NewResolver(store database.TenantStore, c cache.Cache, ttl time.Duration) *Resolver {
	return &Resolver{store: store, cache: c, ttl: ttl}
}

// ResolveScope derives the access scope for the principal. Suspended
// tenants resolve to ErrForbidden; super admins skip the tenant check
// because their scope is not tied to one tenant.
func (r *Resolver) ResolveScope(ctx context.Context, p principal.Principal) (principal.Scope, error) {
	scope, err := principal.Resolve(p)
	if err != nil {
		return principal.Scope{}, err
	}
	if scope.All {
		return scope, nil
	}

	status, err := r.tenantStatus(ctx, p.TenantID)
	if err != nil {
		return principal.Scope{}, err
	}
	if status != tenant.StatusActive {
		return principal.Scope{}, fmt.Errorf("tenant %s is %s: %w", p.TenantID, status, domain.ErrForbidden)
	}

	return scope, nil
}

// Invalidate drops the cached status for a tenant. Called after tenant
// updates so a suspension takes effect without waiting for the TTL.
func (r *Resolver) Invalidate(ctx context.Context, tenantID string) {
	if r.cache != nil {
		_ = r.cache.Delete(ctx, statusKey(tenantID))
	}
}

func (r *Resolver) tenantStatus(ctx context.Context, tenantID string) (tenant.Status, error) {
	key := statusKey(tenantID)

	if r.cache != nil {
		if data, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			return tenant.Status(data), nil
		}
	}

	t, err := r.store.GetTenant(ctx, tenantID)
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, key, []byte(t.Status), r.ttl)
	}
	return t.Status, nil
}

func statusKey(tenantID string) string {
	return "tenant-status:" + tenantID
}
