package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
)

// Caller identity headers. The gateway in front of this service
// authenticates the user and forwards these; the engine itself never sees
// credentials.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	headerTenantID = "X-Tenant-ID"
)

// ScopeResolver turns a caller's identity into an access scope. It is
// implemented by the resolver service, which also verifies that the
// tenant exists and is active.
type ScopeResolver interface {
	ResolveScope(ctx context.Context, p principal.Principal) (principal.Scope, error)
}

type principalCtxKey struct{}
type scopeCtxKey struct{}

// Principal is middleware that reads the caller identity headers, resolves
// the access scope, and stores both in the request context. Requests
// without a user identity are rejected.
func Principal(resolver ScopeResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := principal.Principal{
				UserID:   r.Header.Get(headerUserID),
				TenantID: r.Header.Get(headerTenantID),
				Role:     principal.Role(r.Header.Get(headerUserRole)),
			}

			if p.UserID == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing "+headerUserID+" header")
				return
			}
			if !principal.ValidRoles[p.Role] {
				writeAuthError(w, http.StatusUnauthorized, "unknown role")
				return
			}

			scope, err := resolver.ResolveScope(r.Context(), p)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrNoTenant):
					writeAuthError(w, http.StatusBadRequest, "missing "+headerTenantID+" header")
				case errors.Is(err, domain.ErrNotFound):
					writeAuthError(w, http.StatusUnauthorized, "unknown tenant")
				case errors.Is(err, domain.ErrForbidden):
					writeAuthError(w, http.StatusForbidden, "tenant suspended")
				default:
					writeAuthError(w, http.StatusInternalServerError, "scope resolution failed")
				}
				return
			}

			ctx := context.WithValue(r.Context(), principalCtxKey{}, p)
			ctx = context.WithValue(ctx, scopeCtxKey{}, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFrom returns the caller identity stored in ctx.
func PrincipalFrom(ctx context.Context) (principal.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(principal.Principal)
	return p, ok
}

// ScopeFrom returns the resolved access scope stored in ctx.
func ScopeFrom(ctx context.Context) (principal.Scope, bool) {
	s, ok := ctx.Value(scopeCtxKey{}).(principal.Scope)
	return s, ok
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":` + quote(msg) + `}`))
}

// quote is a minimal JSON string quoter for static error messages.
func quote(s string) string {
	return `"` + s + `"`
}
