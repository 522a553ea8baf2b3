//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fluxcrm/leadengine/internal/domain/lead"
	"github.com/fluxcrm/leadengine/internal/domain/message"
	"github.com/fluxcrm/leadengine/internal/domain/stage"
	"github.com/fluxcrm/leadengine/internal/domain/task"
	"github.com/fluxcrm/leadengine/internal/domain/tenant"
)

// call performs an authenticated request against the test server.
func call(t *testing.T, method, path string, body any, user, role, tenantID string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, testServer.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", user)
	req.Header.Set("X-User-Role", role)
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestPipelineEndToEnd(t *testing.T) {
	// Provision a tenant as super admin.
	resp := call(t, "POST", "/api/v1/tenants", tenant.CreateRequest{Name: "E2E", Slug: "e2e"}, "root", "super_admin", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create tenant: %d", resp.StatusCode)
	}
	tn := decodeBody[tenant.Tenant](t, resp)

	// Build a two-stage pipeline as the tenant's manager.
	resp = call(t, "POST", "/api/v1/tenants/"+tn.ID+"/stages", stage.CreateRequest{Name: "New"}, "mgr", "manager", tn.ID)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create stage: %d", resp.StatusCode)
	}
	newStage := decodeBody[stage.Stage](t, resp)

	resp = call(t, "POST", "/api/v1/tenants/"+tn.ID+"/stages", stage.CreateRequest{Name: "Won"}, "mgr", "manager", tn.ID)
	wonStage := decodeBody[stage.Stage](t, resp)
	if wonStage.Order != 1 {
		t.Fatalf("second stage order = %d, want 1", wonStage.Order)
	}

	// Create a lead and move it through the pipeline.
	resp = call(t, "POST", "/api/v1/tenants/"+tn.ID+"/leads", lead.CreateRequest{
		StageID: newStage.ID, Name: "Maria", Course: "fullstack", Value: 1500,
		Attributes: map[string]any{"phone": "+5511999"},
	}, "mgr", "manager", tn.ID)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create lead: %d", resp.StatusCode)
	}
	l := decodeBody[lead.Lead](t, resp)

	resp = call(t, "POST", "/api/v1/leads/"+l.ID+"/move", map[string]string{"stage_id": wonStage.ID}, "mgr", "manager", tn.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move lead: %d", resp.StatusCode)
	}
	if moved := decodeBody[lead.Lead](t, resp); moved.StageID != wonStage.ID {
		t.Fatalf("moved lead stage = %s, want %s", moved.StageID, wonStage.ID)
	}

	// Follow-ups: a task completed, a message through the due queue.
	resp = call(t, "POST", "/api/v1/leads/"+l.ID+"/tasks", task.CreateRequest{
		Title: "Send contract", DueAt: time.Now().Add(time.Hour).UTC(),
	}, "mgr", "manager", tn.ID)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d", resp.StatusCode)
	}
	tk := decodeBody[task.Task](t, resp)

	resp = call(t, "POST", "/api/v1/tasks/"+tk.ID+"/complete", nil, "mgr", "manager", tn.ID)
	if done := decodeBody[task.Task](t, resp); done.Status != task.StatusCompleted {
		t.Fatalf("task status = %s, want completed", done.Status)
	}

	resp = call(t, "POST", "/api/v1/leads/"+l.ID+"/messages", message.CreateRequest{
		Channel: message.ChannelWhatsApp, Body: "contract attached", ScheduledAt: time.Now().Add(-time.Minute).UTC(),
	}, "mgr", "manager", tn.ID)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("schedule message: %d", resp.StatusCode)
	}
	m := decodeBody[message.ScheduledMessage](t, resp)

	resp = call(t, "GET", "/api/v1/messages/due", nil, "mgr", "manager", tn.ID)
	due := decodeBody[[]message.ScheduledMessage](t, resp)
	found := false
	for _, d := range due {
		if d.ID == m.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("due queue %v does not contain %s", due, m.ID)
	}

	resp = call(t, "POST", "/api/v1/messages/"+m.ID+"/sent", nil, "mgr", "manager", tn.ID)
	if sent := decodeBody[message.ScheduledMessage](t, resp); sent.Status != message.StatusSent {
		t.Fatalf("message status = %s, want sent", sent.Status)
	}

	// Terminal transitions conflict at the database level too.
	resp = call(t, "POST", "/api/v1/messages/"+m.ID+"/cancel", nil, "mgr", "manager", tn.ID)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("cancel sent message: expected 409, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestDeleteStageConcurrentMovePostgres(t *testing.T) {
	// Race a redirecting stage delete against a move of its occupant.
	// The transactions serialize on the locked rows, so the lead must
	// end on a live stage and orders must stay dense either way.
	for i := 0; i < 25; i++ {
		resp := call(t, "POST", "/api/v1/tenants",
			tenant.CreateRequest{Name: "Race", Slug: fmt.Sprintf("race-%d", i)}, "root", "super_admin", "")
		tn := decodeBody[tenant.Tenant](t, resp)

		mkStage := func(name string) stage.Stage {
			resp := call(t, "POST", "/api/v1/tenants/"+tn.ID+"/stages",
				stage.CreateRequest{Name: name}, "mgr", "manager", tn.ID)
			return decodeBody[stage.Stage](t, resp)
		}
		a, b, c := mkStage("A"), mkStage("B"), mkStage("C")

		resp = call(t, "POST", "/api/v1/tenants/"+tn.ID+"/leads", lead.CreateRequest{
			StageID: b.ID, Name: "Dana", Course: "fullstack",
		}, "mgr", "manager", tn.ID)
		l := decodeBody[lead.Lead](t, resp)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			resp := call(t, "DELETE", "/api/v1/tenants/"+tn.ID+"/stages/"+b.ID,
				map[string]string{"redirect_stage_id": c.ID}, "mgr", "manager", tn.ID)
			if resp.StatusCode != http.StatusNoContent {
				t.Errorf("delete stage: %d", resp.StatusCode)
			}
			_ = resp.Body.Close()
		}()
		go func() {
			defer wg.Done()
			resp := call(t, "POST", "/api/v1/leads/"+l.ID+"/move",
				map[string]string{"stage_id": a.ID}, "mgr", "manager", tn.ID)
			if resp.StatusCode != http.StatusOK {
				t.Errorf("move lead: %d", resp.StatusCode)
			}
			_ = resp.Body.Close()
		}()
		wg.Wait()

		resp = call(t, "GET", "/api/v1/tenants/"+tn.ID+"/stages", nil, "mgr", "manager", tn.ID)
		stages := decodeBody[[]stage.Stage](t, resp)
		live := make(map[string]bool, len(stages))
		for j, st := range stages {
			if st.Order != j {
				t.Fatalf("stage %q order = %d, want %d", st.Name, st.Order, j)
			}
			live[st.ID] = true
		}

		resp = call(t, "GET", "/api/v1/leads/"+l.ID, nil, "mgr", "manager", tn.ID)
		got := decodeBody[lead.Lead](t, resp)
		if !live[got.StageID] {
			t.Fatalf("lead stage %s is not a live stage", got.StageID)
		}
	}
}

func TestLeadStageValidationPostgres(t *testing.T) {
	resp := call(t, "POST", "/api/v1/tenants", tenant.CreateRequest{Name: "Val", Slug: "val"}, "root", "super_admin", "")
	tn := decodeBody[tenant.Tenant](t, resp)
	resp = call(t, "POST", "/api/v1/tenants/"+tn.ID+"/stages", stage.CreateRequest{Name: "New"}, "mgr", "manager", tn.ID)
	st := decodeBody[stage.Stage](t, resp)

	const missingStage = "00000000-0000-0000-0000-000000000000"

	// A stage id that matches no row is bad input, not an internal error.
	resp = call(t, "POST", "/api/v1/tenants/"+tn.ID+"/leads", lead.CreateRequest{
		StageID: missingStage, Name: "Dana", Course: "fullstack",
	}, "mgr", "manager", tn.ID)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("create lead in missing stage: expected 400, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = call(t, "POST", "/api/v1/tenants/"+tn.ID+"/leads", lead.CreateRequest{
		StageID: st.ID, Name: "Dana", Course: "fullstack",
	}, "mgr", "manager", tn.ID)
	l := decodeBody[lead.Lead](t, resp)

	resp = call(t, "POST", "/api/v1/leads/"+l.ID+"/move",
		map[string]string{"stage_id": missingStage}, "mgr", "manager", tn.ID)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("move lead to missing stage: expected 400, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestCrossTenantIsolationPostgres(t *testing.T) {
	resp := call(t, "POST", "/api/v1/tenants", tenant.CreateRequest{Name: "IsoA", Slug: "iso-a"}, "root", "super_admin", "")
	a := decodeBody[tenant.Tenant](t, resp)
	resp = call(t, "POST", "/api/v1/tenants", tenant.CreateRequest{Name: "IsoB", Slug: "iso-b"}, "root", "super_admin", "")
	b := decodeBody[tenant.Tenant](t, resp)

	resp = call(t, "POST", "/api/v1/tenants/"+a.ID+"/stages", stage.CreateRequest{Name: "New"}, "mgr-a", "manager", a.ID)
	st := decodeBody[stage.Stage](t, resp)
	resp = call(t, "POST", "/api/v1/tenants/"+a.ID+"/leads", lead.CreateRequest{
		StageID: st.ID, Name: "Secret", Course: "fullstack",
	}, "mgr-a", "manager", a.ID)
	l := decodeBody[lead.Lead](t, resp)

	// Tenant B's manager cannot see tenant A's lead.
	resp = call(t, "GET", "/api/v1/leads/"+l.ID, nil, "mgr-b", "manager", b.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign lead read: expected 404, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = call(t, "GET", "/api/v1/tenants/"+a.ID+"/leads", nil, "mgr-b", "manager", b.ID)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign lead list: expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}
