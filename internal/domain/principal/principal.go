// Package principal defines the authenticated actor and the scope
// resolution rules that gate every engine operation.
//
// Authentication happens upstream; the engine trusts the Principal it is
// handed and only derives authorization from it.
package principal

import (
	"fmt"

	"github.com/fluxcrm/leadengine/internal/domain"
)

// Role represents the authorization level of a principal.
type Role string

const (
	RoleCloser     Role = "closer"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// ValidRoles is the set of all recognized roles.
var ValidRoles = map[Role]bool{
	RoleCloser:     true,
	RoleManager:    true,
	RoleAdmin:      true,
	RoleSuperAdmin: true,
}

// Principal is the authenticated actor making a request. TenantID is the
// home tenant and may be empty only for super_admin.
type Principal struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id,omitempty"`
	Role     Role   `json:"role"`
}

// Scope is the resolved set of tenants and capabilities a principal is
// authorized to act within. When All is true, TenantIDs is ignored and the
// scope covers every tenant.
type Scope struct {
	UserID    string
	TenantIDs []string
	All       bool
	CanWrite  bool
	IsManager bool
}

// Allows reports whether the scope covers the given tenant.
func (s Scope) Allows(tenantID string) bool {
	if s.All {
		return true
	}
	for _, id := range s.TenantIDs {
		if id == tenantID {
			return true
		}
	}
	return false
}

// Resolve derives the authorization scope from a principal. It is a pure
// function; callers wanting tenant-status enforcement layer it on top
// (see service.Resolver).
func Resolve(p Principal) (Scope, error) {
	if !ValidRoles[p.Role] {
		return Scope{}, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, p.Role)
	}

	scope := Scope{
		UserID:    p.UserID,
		CanWrite:  true,
		IsManager: p.Role == RoleManager || p.Role == RoleAdmin || p.Role == RoleSuperAdmin,
	}

	if p.Role == RoleSuperAdmin {
		scope.All = true
		return scope, nil
	}

	if p.TenantID == "" {
		return Scope{}, fmt.Errorf("resolve scope for user %s: %w", p.UserID, domain.ErrNoTenant)
	}
	scope.TenantIDs = []string{p.TenantID}
	return scope, nil
}

// SystemScope returns the all-tenant scope used by internal collaborators
// such as the message dispatcher.
func SystemScope() Scope {
	return Scope{UserID: "system", All: true, CanWrite: true, IsManager: true}
}
