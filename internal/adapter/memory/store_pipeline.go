package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/fluxcrm/leadengine/internal/domain"
	"github.com/fluxcrm/leadengine/internal/domain/lead"
	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/domain/stage"
	"github.com/fluxcrm/leadengine/internal/domain/task"
)

// --- Stages ---

func (s *Store) CreateStage(_ context.Context, scope principal.Scope, tenantID string, req stage.CreateRequest) (*stage.Stage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTenantScope(scope, tenantID); err != nil {
		return nil, err
	}

	now := s.now()
	st := &stage.Stage{
		ID:        newID(),
		TenantID:  tenantID,
		Name:      req.Name,
		Color:     req.Color,
		Order:     len(s.tenantStages(tenantID)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.stages[st.ID] = st

	out := *st
	return &out, nil
}

func (s *Store) ListStages(_ context.Context, scope principal.Scope, tenantID string) ([]stage.Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTenantScope(scope, tenantID); err != nil {
		return nil, err
	}
	return s.tenantStages(tenantID), nil
}

func (s *Store) ReorderStages(_ context.Context, scope principal.Scope, tenantID string, orderedIDs []string) ([]stage.Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTenantScope(scope, tenantID); err != nil {
		return nil, err
	}

	current := s.tenantStages(tenantID)
	if err := stage.ValidatePermutation(current, orderedIDs); err != nil {
		return nil, err
	}

	// Full permutation write: every stage gets its new order in one step.
	now := s.now()
	for i, id := range orderedIDs {
		s.stages[id].Order = i
		s.stages[id].UpdatedAt = now
	}
	return s.tenantStages(tenantID), nil
}

func (s *Store) DeleteStage(_ context.Context, scope principal.Scope, tenantID, stageID string, redirectID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTenantScope(scope, tenantID); err != nil {
		return err
	}

	st, ok := s.stages[stageID]
	if !ok || st.TenantID != tenantID {
		return fmt.Errorf("delete stage %s: %w", stageID, domain.ErrNotFound)
	}

	// The lead count is re-checked here, inside the same critical section as
	// the deletion, so a concurrent MoveLead cannot produce orphans.
	var occupants []*lead.Lead
	for _, l := range s.leads {
		if l.StageID == stageID {
			occupants = append(occupants, l)
		}
	}

	if len(occupants) > 0 {
		if redirectID == nil {
			return fmt.Errorf("%w: stage %s has %d leads and no redirect stage was given",
				domain.ErrValidation, stageID, len(occupants))
		}
	}
	if redirectID != nil {
		if *redirectID == stageID {
			return fmt.Errorf("%w: redirect stage must differ from the deleted stage", domain.ErrValidation)
		}
		redirect, ok := s.stages[*redirectID]
		if !ok || redirect.TenantID != tenantID {
			return fmt.Errorf("%w: redirect stage %s does not belong to the tenant",
				domain.ErrValidation, *redirectID)
		}
	}

	now := s.now()
	for _, l := range occupants {
		l.StageID = *redirectID
		l.UpdatedAt = now
	}
	delete(s.stages, stageID)
	s.compactStageOrder(tenantID, now)
	return nil
}

// --- Leads ---

func (s *Store) CreateLead(_ context.Context, scope principal.Scope, tenantID string, req lead.CreateRequest) (*lead.Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTenantScope(scope, tenantID); err != nil {
		return nil, err
	}

	st, ok := s.stages[req.StageID]
	if !ok || st.TenantID != tenantID {
		return nil, fmt.Errorf("%w: stage %s does not belong to the tenant", domain.ErrValidation, req.StageID)
	}

	now := s.now()
	l := &lead.Lead{
		ID:         newID(),
		TenantID:   tenantID,
		StageID:    req.StageID,
		Name:       req.Name,
		Course:     req.Course,
		Value:      req.Value,
		AssignedTo: req.AssignedTo,
		Tags:       req.Tags,
		Notes:      req.Notes,
		Attributes: req.Attributes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.leads[l.ID] = l

	out := *l
	return &out, nil
}

// getLeadLocked resolves a lead by id within scope. Out-of-scope reads as
// not found. Callers hold s.mu.
func (s *Store) getLeadLocked(scope principal.Scope, id string) (*lead.Lead, error) {
	l, ok := s.leads[id]
	if !ok || !scope.Allows(l.TenantID) {
		return nil, fmt.Errorf("lead %s: %w", id, domain.ErrNotFound)
	}
	return l, nil
}

func (s *Store) GetLead(_ context.Context, scope principal.Scope, id string) (*lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.getLeadLocked(scope, id)
	if err != nil {
		return nil, err
	}
	out := *l
	return &out, nil
}

func (s *Store) ListLeads(_ context.Context, scope principal.Scope, tenantID string) ([]lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireTenantScope(scope, tenantID); err != nil {
		return nil, err
	}

	var out []lead.Lead
	for _, l := range s.leads {
		if l.TenantID != tenantID {
			continue
		}
		// "My leads" view for non-managers; not a security boundary.
		if !scope.IsManager && l.AssignedTo != scope.UserID {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MoveLead(_ context.Context, scope principal.Scope, id, newStageID string) (*lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.getLeadLocked(scope, id)
	if err != nil {
		return nil, err
	}

	if l.StageID == newStageID {
		out := *l
		return &out, nil
	}

	st, ok := s.stages[newStageID]
	if !ok || st.TenantID != l.TenantID {
		return nil, fmt.Errorf("%w: stage %s does not belong to the lead's tenant",
			domain.ErrValidation, newStageID)
	}

	l.StageID = newStageID
	l.UpdatedAt = s.now()
	out := *l
	return &out, nil
}

func (s *Store) UpdateLead(_ context.Context, scope principal.Scope, id string, req lead.UpdateRequest) (*lead.Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.getLeadLocked(scope, id)
	if err != nil {
		return nil, err
	}

	req.Apply(l)
	l.UpdatedAt = s.now()
	out := *l
	return &out, nil
}

func (s *Store) DeleteLead(_ context.Context, scope principal.Scope, id string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.getLeadLocked(scope, id)
	if err != nil {
		return err
	}

	open := 0
	for _, t := range s.tasks {
		if t.LeadID == id && t.Status == task.StatusPending {
			open++
		}
	}
	for _, m := range s.messages {
		if m.LeadID == id && m.Status == message.StatusScheduled {
			open++
		}
	}
	if open > 0 && !force {
		return fmt.Errorf("lead %s has %d open obligations: %w", id, open, domain.ErrConflict)
	}

	for tid, t := range s.tasks {
		if t.LeadID == id {
			delete(s.tasks, tid)
		}
	}
	for mid, m := range s.messages {
		if m.LeadID == id {
			delete(s.messages, mid)
		}
	}
	delete(s.leads, l.ID)
	return nil
}
