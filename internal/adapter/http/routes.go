package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fluxcrm/leadengine/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. wsHandler
// serves the event stream; it may be nil when streaming is disabled.
func MountRoutes(r chi.Router, h *Handlers, resolver middleware.ScopeResolver, wsHandler http.HandlerFunc) {
	r.Get("/healthz", h.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Principal(resolver))

		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		if wsHandler != nil {
			r.Get("/events/ws", wsHandler)
		}

		// Tenants
		r.Post("/tenants", h.CreateTenant)
		r.Get("/tenants", h.ListTenants)
		r.Get("/tenants/{id}", h.GetTenant)
		r.Patch("/tenants/{id}", h.UpdateTenant)

		// Stages (nested under tenants)
		r.Get("/tenants/{id}/stages", h.ListStages)
		r.Post("/tenants/{id}/stages", h.CreateStage)
		r.Put("/tenants/{id}/stages/order", h.ReorderStages)
		r.Delete("/tenants/{id}/stages/{stageID}", h.DeleteStage)

		// Leads (nested under tenants)
		r.Get("/tenants/{id}/leads", h.ListLeads)
		r.Post("/tenants/{id}/leads", h.CreateLead)

		// Leads (direct access)
		r.Get("/leads/{id}", h.GetLead)
		r.Patch("/leads/{id}", h.UpdateLead)
		r.Post("/leads/{id}/move", h.MoveLead)
		r.Delete("/leads/{id}", h.DeleteLead)

		// Tasks (nested under leads)
		r.Post("/leads/{id}/tasks", h.CreateTask)
		r.Get("/leads/{id}/tasks", h.ListTasks)

		// Tasks (direct access)
		r.Get("/tasks/{id}", h.GetTask)
		r.Post("/tasks/{id}/complete", h.CompleteTask)
		r.Post("/tasks/{id}/cancel", h.CancelTask)

		// Scheduled messages (nested under leads)
		r.Post("/leads/{id}/messages", h.ScheduleMessage)
		r.Get("/leads/{id}/messages", h.ListMessages)

		// Scheduled messages (direct access)
		r.Get("/messages/due", h.DueMessages)
		r.Get("/messages/{id}", h.GetMessage)
		r.Post("/messages/{id}/sent", h.MarkMessageSent)
		r.Post("/messages/{id}/failed", h.MarkMessageFailed)
		r.Post("/messages/{id}/cancel", h.CancelMessage)
	})
}
