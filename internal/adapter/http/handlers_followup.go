package http

import (
	"net/http"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/domain/task"
)

// CreateTask attaches a follow-up task to a lead.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[task.CreateRequest](w, r)
	if !ok {
		return
	}
	req.LeadID = urlParam(r, "id")

	t, err := h.followups.CreateTask(r.Context(), scope, req)
	if err != nil {
		writeDomainError(w, err, "lead not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTasks returns a lead's tasks ordered by due date.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	tasks, err := h.followups.ListTasks(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "lead not found")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetTask returns one task.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	t, err := h.followups.GetTask(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CompleteTask marks a pending task completed.
func (h *Handlers) CompleteTask(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	t, err := h.followups.CompleteTask(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CancelTask marks a pending task cancelled.
func (h *Handlers) CancelTask(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	t, err := h.followups.CancelTask(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ScheduleMessage attaches a scheduled message to a lead.
func (h *Handlers) ScheduleMessage(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[message.CreateRequest](w, r)
	if !ok {
		return
	}
	req.LeadID = urlParam(r, "id")

	m, err := h.followups.ScheduleMessage(r.Context(), scope, req)
	if err != nil {
		writeDomainError(w, err, "lead not found")
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ListMessages returns a lead's scheduled messages ordered by send time.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	msgs, err := h.followups.ListMessages(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "lead not found")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// GetMessage returns one scheduled message.
func (h *Handlers) GetMessage(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	m, err := h.followups.GetMessage(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// MarkMessageSent records a delivery performed outside the engine.
func (h *Handlers) MarkMessageSent(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	m, err := h.followups.MarkMessageSent(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type markFailedRequest struct {
	Reason string `json:"reason"`
}

// MarkMessageFailed records a failed delivery with its reason.
func (h *Handlers) MarkMessageFailed(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[markFailedRequest](w, r)
	if !ok {
		return
	}

	m, err := h.followups.MarkMessageFailed(r.Context(), scope, urlParam(r, "id"), req.Reason)
	if err != nil {
		writeDomainError(w, err, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// CancelMessage withdraws a message that has not been dispatched yet.
func (h *Handlers) CancelMessage(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	m, err := h.followups.CancelMessage(r.Context(), scope, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DueMessages returns the messages due for dispatch at as_of (default
// now), for external collaborators that run their own delivery.
func (h *Handlers) DueMessages(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(w, r)
	if !ok {
		return
	}

	asOf := time.Now().UTC()
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "as_of must be RFC3339")
			return
		}
		asOf = parsed
	}

	msgs, err := h.followups.DueMessages(r.Context(), scope, asOf)
	if err != nil {
		writeDomainError(w, err, "messages not found")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
