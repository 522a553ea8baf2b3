package tenant

import (
	"errors"
	"testing"

	"github.com/fluxcrm/leadengine/internal/domain"
)

func TestCreateRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr bool
	}{
		{name: "valid member", req: CreateRequest{Name: "Acme", Slug: "acme", Kind: KindMember}},
		{name: "valid root", req: CreateRequest{Name: "HQ", Slug: "hq", Kind: KindRoot}},
		{name: "seeded member", req: CreateRequest{Name: "Acme", Slug: "acme", Kind: KindMember, SeedStagesFrom: "t-root"}},
		{name: "missing name", req: CreateRequest{Slug: "acme"}, wantErr: true},
		{name: "missing slug", req: CreateRequest{Name: "Acme"}, wantErr: true},
		{name: "unknown kind", req: CreateRequest{Name: "Acme", Slug: "acme", Kind: "franchise"}, wantErr: true},
		{name: "seeded root", req: CreateRequest{Name: "HQ", Slug: "hq", Kind: KindRoot, SeedStagesFrom: "t-other"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateRequest_Validate_DefaultKind(t *testing.T) {
	req := CreateRequest{Name: "Acme", Slug: "acme"}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Kind != KindMember {
		t.Fatalf("kind = %q, want %q", req.Kind, KindMember)
	}
}

func TestUpdateRequest_Validate(t *testing.T) {
	suspended := StatusSuspended
	bogus := Status("dormant")

	if err := (&UpdateRequest{Name: "Renamed"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (&UpdateRequest{Status: &suspended}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (&UpdateRequest{Status: &bogus}).Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTenant_Active(t *testing.T) {
	tn := Tenant{Status: StatusActive}
	if !tn.Active() {
		t.Error("active tenant reported inactive")
	}
	tn.Status = StatusSuspended
	if tn.Active() {
		t.Error("suspended tenant reported active")
	}
}
