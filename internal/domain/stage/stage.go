// Package stage defines the pipeline stage (kanban column) domain entity.
package stage

import (
	"fmt"
	"strings"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain"
)

// DefaultColor is applied when a stage is created without a color.
const DefaultColor = "#9CA3AF"

// Stage is a named, ordered pipeline step a lead can occupy. Order values
// are dense, 0-based and unique per tenant.
type Stage struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest holds the fields needed to create a stage. Order is
// assigned by the store, never by the caller.
type CreateRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Validate checks the CreateRequest and applies the color default.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: stage name is required", domain.ErrValidation)
	}
	if r.Color == "" {
		r.Color = DefaultColor
	}
	return nil
}

// ValidatePermutation checks that orderedIDs is exactly a permutation of the
// ids of current. This is the precondition for a full reorder write: no
// partial reorders and no foreign ids.
func ValidatePermutation(current []Stage, orderedIDs []string) error {
	if len(orderedIDs) != len(current) {
		return fmt.Errorf("%w: reorder must list all %d stages, got %d",
			domain.ErrValidation, len(current), len(orderedIDs))
	}
	existing := make(map[string]bool, len(current))
	for _, s := range current {
		existing[s.ID] = true
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !existing[id] {
			return fmt.Errorf("%w: stage %s does not belong to the tenant", domain.ErrValidation, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: stage %s listed twice", domain.ErrValidation, id)
		}
		seen[id] = true
	}
	return nil
}
