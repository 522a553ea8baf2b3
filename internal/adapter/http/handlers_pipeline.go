package http

import (
	"net/http"

	"github.com/fluxcrm/leadengine/internal/domain/lead"
	"github.com/fluxcrm/leadengine/internal/domain/stage"
)

// ListStages returns a tenant's pipeline stages in order.
func (h *Handlers) ListStages(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	stages, err := h.pipeline.ListStages(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

// CreateStage appends a stage to a tenant's pipeline.
func (h *Handlers) CreateStage(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[stage.CreateRequest](w, r)
	if !ok {
		return
	}

	st, err := h.pipeline.CreateStage(r.Context(), scope, urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

type reorderStagesRequest struct {
	OrderedIDs []string `json:"ordered_ids"`
}

// ReorderStages rewrites the pipeline order in one atomic operation.
func (h *Handlers) ReorderStages(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[reorderStagesRequest](w, r)
	if !ok {
		return
	}

	stages, err := h.pipeline.ReorderStages(r.Context(), scope, urlParam(r, "id"), req.OrderedIDs)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

type deleteStageRequest struct {
	RedirectStageID *string `json:"redirect_stage_id"`
}

// DeleteStage removes a stage, redirecting its leads when a redirect
// stage is named.
func (h *Handlers) DeleteStage(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	var req deleteStageRequest
	if r.ContentLength > 0 {
		if req, ok = readJSON[deleteStageRequest](w, r); !ok {
			return
		}
	}

	err := h.pipeline.DeleteStage(r.Context(), scope, urlParam(r, "id"), urlParam(r, "stageID"), req.RedirectStageID)
	if err != nil {
		writeDomainError(w, err, "stage not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLeads returns a tenant's leads visible to the caller.
func (h *Handlers) ListLeads(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	leads, err := h.pipeline.ListLeads(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

// CreateLead creates a lead in a tenant's pipeline.
func (h *Handlers) CreateLead(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[lead.CreateRequest](w, r)
	if !ok {
		return
	}

	l, err := h.pipeline.CreateLead(r.Context(), scope, urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// GetLead returns one lead.
func (h *Handlers) GetLead(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	l, err := h.pipeline.GetLead(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "lead not found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// UpdateLead applies partial updates to a lead.
func (h *Handlers) UpdateLead(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[lead.UpdateRequest](w, r)
	if !ok {
		return
	}

	l, err := h.pipeline.UpdateLead(r.Context(), scope, urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "lead not found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type moveLeadRequest struct {
	StageID string `json:"stage_id"`
}

// MoveLead places a lead in a different stage.
func (h *Handlers) MoveLead(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[moveLeadRequest](w, r)
	if !ok {
		return
	}

	l, err := h.pipeline.MoveLead(r.Context(), scope, urlParam(r, "id"), req.StageID)
	if err != nil {
		writeDomainError(w, err, "lead not found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// DeleteLead removes a lead. ?force=true cascade-deletes its open
// follow-ups; without it open obligations block the delete.
func (h *Handlers) DeleteLead(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	force := r.URL.Query().Get("force") == "true"

	if err := h.pipeline.DeleteLead(r.Context(), scope, urlParam(r, "id"), force); err != nil {
		writeDomainError(w, err, "lead not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
