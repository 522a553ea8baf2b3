package stage

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
		{name: "valid", req: CreateRequest{Name: "New", Color: "#FF0000"}},
		{name: "missing name", req: CreateRequest{Color: "#FF0000"}, wantErr: true},
		{name: "whitespace name", req: CreateRequest{Name: "   "}, wantErr: true},
		{name: "color defaulted", req: CreateRequest{Name: "New"}},
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
			if tt.req.Color == "" {
				t.Fatal("expected color to be defaulted")
			}
		})
	}
}

func TestCreateRequest_Validate_DefaultColor(t *testing.T) {
	req := CreateRequest{Name: "New"}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Color != DefaultColor {
		t.Fatalf("color = %q, want %q", req.Color, DefaultColor)
	}
}

func TestValidatePermutation(t *testing.T) {
	current := []Stage{
		{ID: "a", Order: 0},
		{ID: "b", Order: 1},
		{ID: "c", Order: 2},
	}

	tests := []struct {
		name    string
		ids     []string
		wantErr bool
	}{
		{name: "identity", ids: []string{"a", "b", "c"}},
		{name: "reversed", ids: []string{"c", "b", "a"}},
		{name: "too few", ids: []string{"a", "b"}, wantErr: true},
		{name: "too many", ids: []string{"a", "b", "c", "d"}, wantErr: true},
		{name: "foreign id", ids: []string{"a", "b", "x"}, wantErr: true},
		{name: "duplicate", ids: []string{"a", "b", "b"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePermutation(current, tt.ids)
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

func TestValidatePermutation_Empty(t *testing.T) {
	if err := ValidatePermutation(nil, nil); err != nil {
		t.Fatalf("empty permutation of empty set should be valid, got %v", err)
	}
}
