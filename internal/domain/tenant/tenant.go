// Package tenant defines the tenant domain model, the isolation boundary
// for all pipeline data.
package tenant

import (
	"fmt"
	"strings"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain"
)

// Kind distinguishes the root organization tenant from member tenants.
type Kind string

const (
	KindRoot   Kind = "root"
	KindMember Kind = "member"
)

// Status represents whether a tenant may be operated on.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// Tenant represents an isolated tenant. Every Stage, Lead, Task and
// ScheduledMessage belongs to exactly one tenant.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the tenant accepts operations.
func (t *Tenant) Active() bool { return t.Status == StatusActive }

// CreateRequest holds the fields required to create a new tenant.
// SeedStagesFrom optionally names a root tenant whose stages are copied
// once at creation time; it is not a live link.
type CreateRequest struct {
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Kind           Kind   `json:"kind"`
	SeedStagesFrom string `json:"seed_stages_from,omitempty"`
}

// Validate checks the CreateRequest for required fields.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(r.Slug) == "" {
		return fmt.Errorf("%w: slug is required", domain.ErrValidation)
	}
	switch r.Kind {
	case KindRoot, KindMember:
	case "":
		r.Kind = KindMember
	default:
		return fmt.Errorf("%w: unknown tenant kind %q", domain.ErrValidation, r.Kind)
	}
	if r.SeedStagesFrom != "" && r.Kind == KindRoot {
		return fmt.Errorf("%w: a root tenant cannot be seeded from another tenant", domain.ErrValidation)
	}
	return nil
}

// UpdateRequest holds the fields that can be updated on a tenant.
type UpdateRequest struct {
	Name   string  `json:"name,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// Validate checks the UpdateRequest for consistent values.
func (r *UpdateRequest) Validate() error {
	if r.Status != nil {
		switch *r.Status {
		case StatusActive, StatusSuspended:
		default:
			return fmt.Errorf("%w: unknown tenant status %q", domain.ErrValidation, *r.Status)
		}
	}
	return nil
}
