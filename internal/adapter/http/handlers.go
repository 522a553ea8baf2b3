package http

import (
	"github.com/fluxcrm/leadengine/internal/service"
)

// Handlers bundles the services the REST layer exposes.
type Handlers struct {
	tenants   *service.TenantService
	pipeline  *service.PipelineService
	followups *service.FollowupService
	health    HealthChecker
}

// HealthChecker reports the liveness of the service's dependencies.
type HealthChecker interface {
	Healthy() map[string]bool
}

// NewHandlers creates the handler set. health may be nil, in which case
// /healthz always reports ok.
func NewHandlers(tenants *service.TenantService, pipeline *service.PipelineService, followups *service.FollowupService, health HealthChecker) *Handlers {
	return &Handlers{
		tenants:   tenants,
		pipeline:  pipeline,
		followups: followups,
		health:    health,
	}
}
