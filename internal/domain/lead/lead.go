// Package lead defines the Lead domain entity, a sales prospect that is
// always in exactly one stage of one tenant.
package lead

import (
	"fmt"
	"strings"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain"
)

// Lead is a sales prospect record. The typed fields are the ones the
// engine's invariants reference; Attributes is an opaque extension bag
// (contact fields, sale fields) that no logic ever branches on.
type Lead struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	StageID    string         `json:"stage_id"`
	Name       string         `json:"name"`
	Course     string         `json:"course"`
	Value      float64        `json:"value"`
	AssignedTo string         `json:"assigned_to,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a lead.
type CreateRequest struct {
	StageID    string         `json:"stage_id"`
	Name       string         `json:"name"`
	Course     string         `json:"course"`
	Value      float64        `json:"value"`
	AssignedTo string         `json:"assigned_to,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Validate checks the CreateRequest for required fields. Stage membership
// is checked by the store, which owns the tenant's stage set.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: lead name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(r.Course) == "" {
		return fmt.Errorf("%w: lead course is required", domain.ErrValidation)
	}
	if r.StageID == "" {
		return fmt.Errorf("%w: stage_id is required", domain.ErrValidation)
	}
	if r.Value < 0 {
		return fmt.Errorf("%w: lead value must not be negative", domain.ErrValidation)
	}
	return nil
}

// UpdateRequest holds the partial fields of a lead update. Nil pointers
// leave the field untouched. StageID is deliberately absent: stage changes
// go through MoveLead so the membership invariant stays in one place.
type UpdateRequest struct {
	Name       *string        `json:"name,omitempty"`
	Course     *string        `json:"course,omitempty"`
	Value      *float64       `json:"value,omitempty"`
	AssignedTo *string        `json:"assigned_to,omitempty"`
	Tags       *[]string      `json:"tags,omitempty"`
	Notes      *string        `json:"notes,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Validate checks the UpdateRequest for values that would break invariants.
func (r *UpdateRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("%w: lead name must not be empty", domain.ErrValidation)
	}
	if r.Course != nil && strings.TrimSpace(*r.Course) == "" {
		return fmt.Errorf("%w: lead course must not be empty", domain.ErrValidation)
	}
	if r.Value != nil && *r.Value < 0 {
		return fmt.Errorf("%w: lead value must not be negative", domain.ErrValidation)
	}
	return nil
}

// Apply writes the non-nil fields of the request onto the lead.
func (r *UpdateRequest) Apply(l *Lead) {
	if r.Name != nil {
		l.Name = *r.Name
	}
	if r.Course != nil {
		l.Course = *r.Course
	}
	if r.Value != nil {
		l.Value = *r.Value
	}
	if r.AssignedTo != nil {
		l.AssignedTo = *r.AssignedTo
	}
	if r.Tags != nil {
		l.Tags = *r.Tags
	}
	if r.Notes != nil {
		l.Notes = *r.Notes
	}
	if r.Attributes != nil {
		l.Attributes = r.Attributes
	}
}
