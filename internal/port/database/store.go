// Package database defines the database store ports (interfaces).
//
// Every scoped method takes the caller's resolved principal.Scope as an
// explicit parameter; implementations must reject any operation whose target
// tenant is outside the scope. Id-based lookups outside the scope report
// domain.ErrNotFound so cross-tenant existence is never leaked.
package database

import (
	"context"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain/lead"
	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/domain/principal"
	"github.com/fluxcrm/leadengine/internal/domain/stage"
	"github.com/fluxcrm/leadengine/internal/domain/task"
	"github.com/fluxcrm/leadengine/internal/domain/tenant"
)

// TenantStore manages the tenant directory. Tenant administration is
// restricted to the all-tenant scope by the service layer.
type TenantStore interface {
	CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error)
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	UpdateTenant(ctx context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error)
}

// PipelineStore owns Stage and Lead entities and their invariants: dense
// 0-based stage order per tenant, and every lead referencing an existing
// stage of its own tenant.
type PipelineStore interface {
	CreateStage(ctx context.Context, scope principal.Scope, tenantID string, req stage.CreateRequest) (*stage.Stage, error)
	ListStages(ctx context.Context, scope principal.Scope, tenantID string) ([]stage.Stage, error)

	// ReorderStages assigns a new order to every stage of the tenant in one
	// atomic write. orderedIDs must be exactly the tenant's stage-id set.
	ReorderStages(ctx context.Context, scope principal.Scope, tenantID string, orderedIDs []string) ([]stage.Stage, error)

	// DeleteStage removes a stage. When the stage has leads, redirectID must
	// name another stage of the same tenant; the leads are reassigned to it
	// in the same atomic operation as the deletion.
	DeleteStage(ctx context.Context, scope principal.Scope, tenantID, stageID string, redirectID *string) error

	CreateLead(ctx context.Context, scope principal.Scope, tenantID string, req lead.CreateRequest) (*lead.Lead, error)
	GetLead(ctx context.Context, scope principal.Scope, id string) (*lead.Lead, error)

	// ListLeads returns the tenant's leads. For non-manager scopes the list
	// is narrowed to leads assigned to the scope's user. That is a view
	// filter, not a security boundary: GetLead still resolves any lead in
	// the tenant.
	ListLeads(ctx context.Context, scope principal.Scope, tenantID string) ([]lead.Lead, error)

	// MoveLead places the lead in newStageID. Moving to the current stage is
	// a no-op success.
	MoveLead(ctx context.Context, scope principal.Scope, id, newStageID string) (*lead.Lead, error)

	UpdateLead(ctx context.Context, scope principal.Scope, id string, req lead.UpdateRequest) (*lead.Lead, error)

	// DeleteLead removes a lead. With force false it fails with
	// domain.ErrConflict while the lead has a pending task or a scheduled
	// message; with force true the open obligations are cascade-deleted in
	// the same transaction. The obligation check lives here rather than in
	// the service so the check and the delete share one transaction.
	DeleteLead(ctx context.Context, scope principal.Scope, id string, force bool) error
}

// FollowupStore owns Task and ScheduledMessage entities and their
// due-date/status state machines.
type FollowupStore interface {
	CreateTask(ctx context.Context, scope principal.Scope, req task.CreateRequest) (*task.Task, error)
	GetTask(ctx context.Context, scope principal.Scope, id string) (*task.Task, error)
	ListTasks(ctx context.Context, scope principal.Scope, leadID string) ([]task.Task, error)
	CompleteTask(ctx context.Context, scope principal.Scope, id string) (*task.Task, error)
	CancelTask(ctx context.Context, scope principal.Scope, id string) (*task.Task, error)

	CreateMessage(ctx context.Context, scope principal.Scope, req message.CreateRequest) (*message.ScheduledMessage, error)
	GetMessage(ctx context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error)
	ListMessages(ctx context.Context, scope principal.Scope, leadID string) ([]message.ScheduledMessage, error)
	MarkMessageSent(ctx context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error)
	MarkMessageFailed(ctx context.Context, scope principal.Scope, id, reason string) (*message.ScheduledMessage, error)
	CancelMessage(ctx context.Context, scope principal.Scope, id string) (*message.ScheduledMessage, error)

	// DueMessages returns every scheduled message in scope with
	// scheduled_at <= asOf, oldest first, for the dispatcher to poll.
	DueMessages(ctx context.Context, scope principal.Scope, asOf time.Time) ([]message.ScheduledMessage, error)
}

// Store aggregates all store ports; both the postgres and the memory
// adapters implement the full set over one dataset so cross-store
// invariants (lead cascade) can run in a single transaction.
type Store interface {
	TenantStore
	PipelineStore
	FollowupStore
}
