package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
)

// stubResolver resolves scopes without tenant-status checks, optionally
// failing specific tenants.
type stubResolver struct {
	failWith map[string]error
}

func (s *stubResolver) ResolveScope(_ context.Context, p principal.Principal) (principal.Scope, error) {
	if err, ok := s.failWith[p.TenantID]; ok {
		return principal.Scope{}, fmt.Errorf("tenant %s: %w", p.TenantID, err)
	}
	return principal.Resolve(p)
}

func TestPrincipalMiddleware(t *testing.T) {
	resolver := &stubResolver{failWith: map[string]error{
		"t-missing":   domain.ErrNotFound,
		"t-suspended": domain.ErrForbidden,
		"t-broken":    errors.New("store unavailable"),
	}}

	tests := []struct {
		name     string
		userID   string
		role     string
		tenantID string
		wantCode int
	}{
		{name: "closer", userID: "u1", role: "closer", tenantID: "t1", wantCode: http.StatusOK},
		{name: "super admin without tenant", userID: "root", role: "super_admin", wantCode: http.StatusOK},
		{name: "missing user", role: "closer", tenantID: "t1", wantCode: http.StatusUnauthorized},
		{name: "missing role", userID: "u1", tenantID: "t1", wantCode: http.StatusUnauthorized},
		{name: "unknown role", userID: "u1", role: "intern", tenantID: "t1", wantCode: http.StatusUnauthorized},
		{name: "tenant-bound role without tenant", userID: "u1", role: "manager", wantCode: http.StatusBadRequest},
		{name: "unknown tenant", userID: "u1", role: "closer", tenantID: "t-missing", wantCode: http.StatusUnauthorized},
		{name: "suspended tenant", userID: "u1", role: "closer", tenantID: "t-suspended", wantCode: http.StatusForbidden},
		{name: "resolver failure", userID: "u1", role: "closer", tenantID: "t-broken", wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotScope principal.Scope
			var called bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotScope, _ = ScopeFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.userID != "" {
				req.Header.Set("X-User-ID", tt.userID)
			}
			if tt.role != "" {
				req.Header.Set("X-User-Role", tt.role)
			}
			if tt.tenantID != "" {
				req.Header.Set("X-Tenant-ID", tt.tenantID)
			}
			rec := httptest.NewRecorder()
			Principal(resolver)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				if called {
					t.Fatal("handler ran on a rejected request")
				}
				return
			}
			if !called {
				t.Fatal("handler did not run")
			}
			if gotScope.UserID != tt.userID {
				t.Errorf("scope user = %q, want %q", gotScope.UserID, tt.userID)
			}
		})
	}
}

func TestPrincipalMiddleware_ContextValues(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			t.Error("principal missing from context")
		}
		if p.UserID != "u1" || p.Role != principal.RoleManager || p.TenantID != "t1" {
			t.Errorf("principal = %+v", p)
		}
		scope, ok := ScopeFrom(r.Context())
		if !ok {
			t.Error("scope missing from context")
		}
		if !scope.IsManager || !scope.Allows("t1") || scope.Allows("t2") {
			t.Errorf("scope = %+v", scope)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Role", "manager")
	req.Header.Set("X-Tenant-ID", "t1")
	rec := httptest.NewRecorder()
	Principal(&stubResolver{})(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
