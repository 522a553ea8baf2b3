package principal

import (
	"errors"
	"testing"

	"github.com/fluxcrm/leadengine/internal/domain"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		p           Principal
		wantErr     error
		wantAll     bool
		wantManager bool
		wantTenants []string
	}{
		{
			name:        "closer gets own tenant only",
			p:           Principal{UserID: "u1", TenantID: "t1", Role: RoleCloser},
			wantTenants: []string{"t1"},
		},
		{
			name:        "manager flag set",
			p:           Principal{UserID: "u1", TenantID: "t1", Role: RoleManager},
			wantManager: true,
			wantTenants: []string{"t1"},
		},
		{
			name:        "admin is manager within tenant",
			p:           Principal{UserID: "u1", TenantID: "t1", Role: RoleAdmin},
			wantManager: true,
			wantTenants: []string{"t1"},
		},
		{
			name:        "super admin covers all tenants",
			p:           Principal{UserID: "u1", Role: RoleSuperAdmin},
			wantAll:     true,
			wantManager: true,
		},
		{
			name:    "unknown role",
			p:       Principal{UserID: "u1", TenantID: "t1", Role: "owner"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "non-admin without tenant",
			p:       Principal{UserID: "u1", Role: RoleCloser},
			wantErr: domain.ErrNoTenant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := Resolve(tt.p)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if scope.All != tt.wantAll {
				t.Errorf("All = %v, want %v", scope.All, tt.wantAll)
			}
			if scope.IsManager != tt.wantManager {
				t.Errorf("IsManager = %v, want %v", scope.IsManager, tt.wantManager)
			}
			if !scope.CanWrite {
				t.Error("CanWrite should be true for every resolved scope")
			}
			if len(scope.TenantIDs) != len(tt.wantTenants) {
				t.Fatalf("TenantIDs = %v, want %v", scope.TenantIDs, tt.wantTenants)
			}
			for i, id := range tt.wantTenants {
				if scope.TenantIDs[i] != id {
					t.Errorf("TenantIDs[%d] = %q, want %q", i, scope.TenantIDs[i], id)
				}
			}
		})
	}
}

func TestScope_Allows(t *testing.T) {
	scoped := Scope{TenantIDs: []string{"t1"}}
	if !scoped.Allows("t1") {
		t.Error("scope should allow its own tenant")
	}
	if scoped.Allows("t2") {
		t.Error("scope should not allow a foreign tenant")
	}

	all := Scope{All: true}
	if !all.Allows("anything") {
		t.Error("all-tenant scope should allow any tenant")
	}
}

func TestSystemScope(t *testing.T) {
	s := SystemScope()
	if !s.All || !s.CanWrite || !s.IsManager {
		t.Fatalf("system scope should be unrestricted, got %+v", s)
	}
}
