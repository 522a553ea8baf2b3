package http

import "net/http"

type healthResponse struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components,omitempty"`
}

// Healthz reports liveness. Any unhealthy dependency degrades the status
// but still answers 200; orchestrators use readiness probes for gating.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.health != nil {
		resp.Components = h.health.Healthy()
		for _, healthy := range resp.Components {
			if !healthy {
				resp.Status = "degraded"
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
