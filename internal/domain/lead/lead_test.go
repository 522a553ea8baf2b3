package lead

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
		{name: "valid", req: CreateRequest{StageID: "s1", Name: "Maria Silva", Course: "fullstack", Value: 1200}},
		{name: "zero value is fine", req: CreateRequest{StageID: "s1", Name: "Maria Silva", Course: "fullstack"}},
		{name: "missing name", req: CreateRequest{StageID: "s1", Course: "fullstack"}, wantErr: true},
		{name: "missing course", req: CreateRequest{StageID: "s1", Name: "Maria Silva"}, wantErr: true},
		{name: "missing stage", req: CreateRequest{Name: "Maria Silva", Course: "fullstack"}, wantErr: true},
		{name: "negative value", req: CreateRequest{StageID: "s1", Name: "Maria Silva", Course: "fullstack", Value: -1}, wantErr: true},
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

func TestUpdateRequest_Validate(t *testing.T) {
	empty := ""
	negative := -5.0

	tests := []struct {
		name    string
		req     UpdateRequest
		wantErr bool
	}{
		{name: "empty update", req: UpdateRequest{}},
		{name: "empty name", req: UpdateRequest{Name: &empty}, wantErr: true},
		{name: "empty course", req: UpdateRequest{Course: &empty}, wantErr: true},
		{name: "negative value", req: UpdateRequest{Value: &negative}, wantErr: true},
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

func TestUpdateRequest_Apply(t *testing.T) {
	l := Lead{
		Name:       "Maria Silva",
		Course:     "fullstack",
		Value:      1200,
		AssignedTo: "u1",
		Notes:      "warm",
		Attributes: map[string]any{"phone": "+5511999"},
	}

	name := "Maria S. Costa"
	value := 1500.0
	unassign := ""
	req := UpdateRequest{Name: &name, Value: &value, AssignedTo: &unassign}
	req.Apply(&l)

	if l.Name != name {
		t.Errorf("Name = %q, want %q", l.Name, name)
	}
	if l.Value != value {
		t.Errorf("Value = %v, want %v", l.Value, value)
	}
	if l.AssignedTo != "" {
		t.Errorf("AssignedTo = %q, want empty", l.AssignedTo)
	}
	// Untouched fields keep their values.
	if l.Course != "fullstack" {
		t.Errorf("Course = %q, want %q", l.Course, "fullstack")
	}
	if l.Notes != "warm" {
		t.Errorf("Notes = %q, want %q", l.Notes, "warm")
	}
	if l.Attributes["phone"] != "+5511999" {
		t.Errorf("Attributes altered: %v", l.Attributes)
	}
}
