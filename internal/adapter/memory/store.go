// Package memory implements the database store ports with an in-process
// dataset. It backs tests and the dev mode of cmd/leadengine.
//
// All operations run under one mutex, which makes every multi-row write
// (reorder, stage deletion with redistribution, lead cascade) trivially
// atomic and stage writes linearizable per tenant.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/lead"
	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/domain/stage"
	"github.com/fluxcrm/leadengine/internal/domain/task"
	"github.com/fluxcrm/leadengine/internal/domain/tenant"
)

// Store implements database.Store in memory.
type Store struct {
	mu sync.Mutex

	tenants  map[string]*tenant.Tenant
	stages   map[string]*stage.Stage
	leads    map[string]*lead.Lead
	tasks    map[string]*task.Task
	messages map[string]*message.ScheduledMessage

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		tenants:  make(map[string]*tenant.Tenant),
		stages:   make(map[string]*stage.Stage),
		leads:    make(map[string]*lead.Lead),
		tasks:    make(map[string]*task.Task),
		messages: make(map[string]*message.ScheduledMessage),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the store's clock. Tests only.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func newID() string { return uuid.NewString() }

// requireTenantScope checks the tenant-argument form of scoping: the caller
// must be allowed to act on the tenant, and the tenant must exist.
// Callers hold s.mu.
func (s *Store) requireTenantScope(scope principal.Scope, tenantID string) error {
	if !scope.Allows(tenantID) {
		return fmt.Errorf("tenant %s: %w", tenantID, domain.ErrForbidden)
	}
	if _, ok := s.tenants[tenantID]; !ok {
		return fmt.Errorf("tenant %s: %w", tenantID, domain.ErrNotFound)
	}
	return nil
}

// tenantStages returns copies of the tenant's stages ordered by order value.
// Callers hold s.mu.
func (s *Store) tenantStages(tenantID string) []stage.Stage {
	var out []stage.Stage
	for _, st := range s.stages {
		if st.TenantID == tenantID {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// compactStageOrder rewrites the tenant's stage orders to a dense 0-based
// sequence, preserving relative order. Called after a stage deletion.
// Callers hold s.mu.
func (s *Store) compactStageOrder(tenantID string, now time.Time) {
	for i, st := range s.tenantStages(tenantID) {
		if st.Order != i {
			s.stages[st.ID].Order = i
			s.stages[st.ID].UpdatedAt = now
		}
	}
}

// --- TenantStore ---

func (s *Store) CreateTenant(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenants {
		if t.Slug == req.Slug {
			return nil, fmt.Errorf("tenant slug %q already exists: %w", req.Slug, domain.ErrConflict)
		}
	}

	var seed []stage.Stage
	if req.SeedStagesFrom != "" {
		src, ok := s.tenants[req.SeedStagesFrom]
		if !ok {
			return nil, fmt.Errorf("seed tenant %s: %w", req.SeedStagesFrom, domain.ErrNotFound)
		}
		if src.Kind != tenant.KindRoot {
			return nil, fmt.Errorf("%w: stages can only be seeded from a root tenant", domain.ErrValidation)
		}
		seed = s.tenantStages(src.ID)
	}

	now := s.now()
	t := &tenant.Tenant{
		ID:        newID(),
		Name:      req.Name,
		Slug:      req.Slug,
		Kind:      req.Kind,
		Status:    tenant.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tenants[t.ID] = t

	// One-shot copy of the source tenant's columns; not a live link.
	for _, src := range seed {
		st := &stage.Stage{
			ID:        newID(),
			TenantID:  t.ID,
			Name:      src.Name,
			Color:     src.Color,
			Order:     src.Order,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.stages[st.ID] = st
	}

	out := *t
	return &out, nil
}

func (s *Store) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, fmt.Errorf("get tenant %s: %w", id, domain.ErrNotFound)
	}
	out := *t
	return &out, nil
}

func (s *Store) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateTenant(_ context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, fmt.Errorf("update tenant %s: %w", id, domain.ErrNotFound)
	}
	if req.Name != "" {
		t.Name = req.Name
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	t.UpdatedAt = s.now()
	out := *t
	return &out, nil
}
