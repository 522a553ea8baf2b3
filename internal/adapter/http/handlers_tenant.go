package http

import (
	"net/http"

	"github.com/fluxcrm/leadengine/internal/domain/tenant"
)

// CreateTenant provisions a new tenant. Unrestricted scope only.
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[tenant.CreateRequest](w, r)
	if !ok {
		return
	}

	t, err := h.tenants.Create(r.Context(), scope, req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTenants returns all tenants. Unrestricted scope only.
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	tenants, err := h.tenants.List(r.Context(), scope)
	if err != nil {
		writeDomainError(w, err, "tenants not found")
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

// GetTenant returns one tenant.
func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	t, err := h.tenants.Get(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTenant applies partial updates to a tenant. Unrestricted scope only.
func (h *Handlers) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[tenant.UpdateRequest](w, r)
	if !ok {
		return
	}

	t, err := h.tenants.Update(r.Context(), scope, urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}
