package service

import (
	"context"

	"github.com/fluxcrm/leadengine/internal/adapter/otel"
	"github.com/fluxcrm/leadengine/internal/domain/event"
	"github.com/fluxcrm/leadengine/internal/domain/lead"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/domain/stage"
	"github.com/fluxcrm/leadengine/internal/port/database"
	"github.com/fluxcrm/leadengine/internal/port/messagequeue"
)

// PipelineService handles stage and lead business logic. Every successful
// mutation publishes a domain event after commit.
type PipelineService struct {
	store   database.PipelineStore
	queue   messagequeue.Queue
	metrics *otel.Metrics
}

// NewPipelineService creates a new PipelineService. queue and metrics may
// be nil (tests, event publishing disabled).
func NewPipelineService(store database.PipelineStore, queue messagequeue.Queue, metrics *otel.Metrics) *PipelineService {
	return &PipelineService{store: store, queue: queue, metrics: metrics}
}

// CreateStage appends a stage at the end of the tenant's pipeline.
func (s *PipelineService) CreateStage(ctx context.Context, scope principal.Scope, tenantID string, req stage.CreateRequest) (*stage.Stage, error) {
	st, err := s.store.CreateStage(ctx, scope, tenantID, req)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, event.New(event.TypeStageCreated, st.TenantID, st.ID, st))
	return st, nil
}

// ListStages returns the tenant's stages in pipeline order.
func (s *PipelineService) ListStages(ctx context.Context, scope principal.Scope, tenantID string) ([]stage.Stage, error) {
	return s.store.ListStages(ctx, scope, tenantID)
}

// ReorderStages rewrites the tenant's stage order to match orderedIDs.
func (s *PipelineService) ReorderStages(ctx context.Context, scope principal.Scope, tenantID string, orderedIDs []string) ([]stage.Stage, error) {
	stages, err := s.store.ReorderStages(ctx, scope, tenantID, orderedIDs)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, event.New(event.TypeStageReordered, tenantID, tenantID, map[string]any{
		"ordered_ids": orderedIDs,
	}))
	return stages, nil
}

// DeleteStage removes a stage, redirecting its leads to redirectID when it
// has any.
func (s *PipelineService) DeleteStage(ctx context.Context, scope principal.Scope, tenantID, stageID string, redirectID *string) error {
	if err := s.store.DeleteStage(ctx, scope, tenantID, stageID, redirectID); err != nil {
		return err
	}

	payload := map[string]any{"stage_id": stageID}
	if redirectID != nil {
		payload["redirected_to"] = *redirectID
	}
	publishEvent(ctx, s.queue, event.New(event.TypeStageDeleted, tenantID, stageID, payload))
	return nil
}

// CreateLead creates a lead in the requested stage.
func (s *PipelineService) CreateLead(ctx context.Context, scope principal.Scope, tenantID string, req lead.CreateRequest) (*lead.Lead, error) {
	l, err := s.store.CreateLead(ctx, scope, tenantID, req)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.LeadsCreated.Add(ctx, 1)
	}
	publishEvent(ctx, s.queue, event.New(event.TypeLeadCreated, l.TenantID, l.ID, l))
	return l, nil
}

// GetLead returns a lead by ID.
func (s *PipelineService) GetLead(ctx context.Context, scope principal.Scope, id string) (*lead.Lead, error) {
	return s.store.GetLead(ctx, scope, id)
}

// ListLeads returns the tenant's leads visible to the caller.
func (s *PipelineService) ListLeads(ctx context.Context, scope principal.Scope, tenantID string) ([]lead.Lead, error) {
	return s.store.ListLeads(ctx, scope, tenantID)
}

// MoveLead places the lead in a new stage. A move to its current stage is
// a no-op and publishes no event.
func (s *PipelineService) MoveLead(ctx context.Context, scope principal.Scope, id, newStageID string) (*lead.Lead, error) {
	before, err := s.store.GetLead(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	l, err := s.store.MoveLead(ctx, scope, id, newStageID)
	if err != nil {
		return nil, err
	}

	if before.StageID != l.StageID {
		if s.metrics != nil {
			s.metrics.LeadsMoved.Add(ctx, 1)
		}
		publishEvent(ctx, s.queue, event.New(event.TypeLeadMoved, l.TenantID, l.ID, map[string]any{
			"from_stage_id": before.StageID,
			"to_stage_id":   l.StageID,
		}))
	}
	return l, nil
}

// UpdateLead applies partial updates to a lead.
func (s *PipelineService) UpdateLead(ctx context.Context, scope principal.Scope, id string, req lead.UpdateRequest) (*lead.Lead, error) {
	l, err := s.store.UpdateLead(ctx, scope, id, req)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.queue, event.New(event.TypeLeadUpdated, l.TenantID, l.ID, l))
	return l, nil
}

// DeleteLead removes a lead. Open follow-ups block the delete unless force
// is set, in which case they are cascade-deleted with the lead.
func (s *PipelineService) DeleteLead(ctx context.Context, scope principal.Scope, id string, force bool) error {
	l, err := s.store.GetLead(ctx, scope, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteLead(ctx, scope, id, force); err != nil {
		return err
	}

	publishEvent(ctx, s.queue, event.New(event.TypeLeadDeleted, l.TenantID, id, map[string]any{
		"forced": force,
	}))
	return nil
}
