package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/agent-platform/internal/middleware"
	"github.com/capitalize-ai/agent-platform/internal/model"
	"github.com/capitalize-ai/agent-platform/internal/store"
	"github.com/capitalize-ai/agent-platform/pkg/logger"
)

type fakeQueue struct {
	jobs []string
	err  error
}

func (q *fakeQueue) EnqueueExecution(ctx context.Context, tenantID, agentID, content, conversationID string) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	jobID := "job-" + agentID
	q.jobs = append(q.jobs, jobID)
	return jobID, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedTenant(t *testing.T, st *store.Store, subdomain string) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{Name: "Test Tenant", Subdomain: subdomain}
	if err := st.CreateTenant(context.Background(), tenant); err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}
	return tenant
}

func seedAgent(t *testing.T, st *store.Store, tenantID string) *model.Agent {
	t.Helper()
	agent := &model.Agent{
		Name:         "Support Bot",
		Provider:     model.ProviderOpenAI,
		Model:        "gpt-4-turbo",
		SystemPrompt: "You are a helpful support agent.",
		Temperature:  0.7,
		MaxTokens:    1000,
		Active:       true,
	}
	if err := st.CreateAgent(context.Background(), tenantID, agent); err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	return agent
}

// doRequest routes the request through chi with the tenant pinned in context,
// the way the auth middleware would.
func doRequest(r chi.Router, method, path, tenantID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	ctx := context.WithValue(req.Context(), middleware.TenantIDKey, tenantID)
	ctx = context.WithValue(ctx, middleware.UserIDKey, "user-1")
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func agentRouter(h *AgentHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/agents", h.Create)
	r.Get("/agents", h.List)
	r.Get("/agents/{id}", h.Get)
	r.Delete("/agents/{id}", h.Delete)
	r.Post("/agents/{id}/execute", h.Execute)
	return r
}

func TestCreateAgent(t *testing.T) {
	st := newTestStore(t)
	tenant := seedTenant(t, st, "acme")
	h := NewAgentHandler(st, &fakeQueue{}, logger.NewNop())
	r := agentRouter(h)

	rec := doRequest(r, http.MethodPost, "/agents", tenant.ID, model.CreateAgentRequest{
		Name:         "Sales Bot",
		Provider:     model.ProviderAnthropic,
		Model:        "claude-3-haiku-20240307",
		SystemPrompt: "You are a friendly sales assistant.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created model.Agent
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Temperature != 0.7 || created.MaxTokens != 1000 {
		t.Fatalf("expected defaults applied, got %+v", created)
	}
}

func TestCreateAgentValidationFailure(t *testing.T) {
	st := newTestStore(t)
	tenant := seedTenant(t, st, "acme")
	h := NewAgentHandler(st, &fakeQueue{}, logger.NewNop())
	r := agentRouter(h)

	rec := doRequest(r, http.MethodPost, "/agents", tenant.ID, model.CreateAgentRequest{
		Name:         "Bad Bot",
		Provider:     model.ProviderOpenAI,
		Model:        "not-a-model",
		SystemPrompt: "You are a helpful assistant.",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetAgentFromOtherTenantIs404(t *testing.T) {
	st := newTestStore(t)
	tenantA := seedTenant(t, st, "tenant-a")
	tenantB := seedTenant(t, st, "tenant-b")
	agent := seedAgent(t, st, tenantA.ID)

	h := NewAgentHandler(st, &fakeQueue{}, logger.NewNop())
	r := agentRouter(h)

	rec := doRequest(r, http.MethodGet, "/agents/"+agent.ID, tenantB.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 across tenants, got %d", rec.Code)
	}
}

func TestExecuteAgentQueuesJob(t *testing.T) {
	st := newTestStore(t)
	tenant := seedTenant(t, st, "acme")
	agent := seedAgent(t, st, tenant.ID)
	queue := &fakeQueue{}

	h := NewAgentHandler(st, queue, logger.NewNop())
	r := agentRouter(h)

	rec := doRequest(r, http.MethodPost, "/agents/"+agent.ID+"/execute", tenant.ID, model.ExecuteAgentRequest{
		Message: "summarize today's tickets",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp model.ExecuteAgentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.JobID == "" || resp.AgentID != agent.ID {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("expected one queued job, got %d", len(queue.jobs))
	}
}

func TestExecuteUnknownAgentIs404(t *testing.T) {
	st := newTestStore(t)
	tenant := seedTenant(t, st, "acme")
	queue := &fakeQueue{}

	h := NewAgentHandler(st, queue, logger.NewNop())
	r := agentRouter(h)

	rec := doRequest(r, http.MethodPost, "/agents/"+store.NewID()+"/execute", tenant.ID, model.ExecuteAgentRequest{
		Message: "hello",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if len(queue.jobs) != 0 {
		t.Fatal("expected nothing queued for unknown agent")
	}
}

func TestExecuteEmptyMessageIs400(t *testing.T) {
	st := newTestStore(t)
	tenant := seedTenant(t, st, "acme")
	agent := seedAgent(t, st, tenant.ID)

	h := NewAgentHandler(st, &fakeQueue{}, logger.NewNop())
	r := agentRouter(h)

	rec := doRequest(r, http.MethodPost, "/agents/"+agent.ID+"/execute", tenant.ID, model.ExecuteAgentRequest{
		Message: "   ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteAgent(t *testing.T) {
	st := newTestStore(t)
	tenant := seedTenant(t, st, "acme")
	agent := seedAgent(t, st, tenant.ID)

	h := NewAgentHandler(st, &fakeQueue{}, logger.NewNop())
	r := agentRouter(h)

	rec := doRequest(r, http.MethodDelete, "/agents/"+agent.ID, tenant.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(r, http.MethodGet, "/agents/"+agent.ID, tenant.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}
