package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/agent-platform/internal/middleware"
	"github.com/capitalize-ai/agent-platform/internal/model"
	"github.com/capitalize-ai/agent-platform/internal/store"
	"github.com/capitalize-ai/agent-platform/pkg/logger"
)

// JobQueue submits background jobs.
type JobQueue interface {
	EnqueueExecution(ctx context.Context, tenantID, agentID, content, conversationID string) (string, error)
}

// AgentHandler handles agent endpoints.
type AgentHandler struct {
	store  *store.Store
	queue  JobQueue
	logger *logger.Logger
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(st *store.Store, queue JobQueue, log *logger.Logger) *AgentHandler {
	return &AgentHandler{
		store:  st,
		queue:  queue,
		logger: log,
	}
}

func agentFromRequest(req *model.CreateAgentRequest) *model.Agent {
	agent := &model.Agent{
		Name:          req.Name,
		Description:   req.Description,
		Provider:      req.Provider,
		Model:         req.Model,
		SystemPrompt:  req.SystemPrompt,
		Temperature:   0.7,
		MaxTokens:     1000,
		Configuration: req.Configuration,
		Active:        true,
	}
	if req.Temperature != nil {
		agent.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		agent.MaxTokens = *req.MaxTokens
	}
	if req.Active != nil {
		agent.Active = *req.Active
	}
	return agent
}

// Create handles POST /api/v1/agents
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	var req model.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent := agentFromRequest(&req)
	if err := h.store.CreateAgent(ctx, tenantID, agent); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, agent)
}

// List handles GET /api/v1/agents
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	agents, err := h.store.ListAgents(ctx, tenantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := model.ListAgentsResponse{
		Agents: make([]model.AgentResponse, 0, len(agents)),
		Total:  int64(len(agents)),
	}
	for _, agent := range agents {
		count, err := h.store.CountAgentConversations(ctx, tenantID, agent.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp.Agents = append(resp.Agents, model.AgentResponse{
			Agent:              agent,
			ConversationsCount: count,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/agents/:id
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	agent, err := h.store.GetAgent(ctx, tenantID, agentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	count, err := h.store.CountAgentConversations(ctx, tenantID, agentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.AgentResponse{
		Agent:              *agent,
		ConversationsCount: count,
	})
}

// Update handles PUT /api/v1/agents/:id
func (h *AgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.store.GetAgent(ctx, tenantID, agentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req model.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent := agentFromRequest(&req)
	agent.ID = existing.ID
	if req.Temperature == nil {
		agent.Temperature = existing.Temperature
	}
	if req.MaxTokens == nil {
		agent.MaxTokens = existing.MaxTokens
	}
	if req.Active == nil {
		agent.Active = existing.Active
	}
	if agent.Configuration == nil {
		agent.Configuration = existing.Configuration
	}

	if err := h.store.UpdateAgent(ctx, tenantID, agent); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.store.GetAgent(ctx, tenantID, agentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/agents/:id
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.DeleteAgent(ctx, tenantID, agentID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Execute handles POST /api/v1/agents/:id/execute
//
// Execution is asynchronous: the request is acknowledged with 202 as soon as
// the job is durably queued, and a worker runs the turn later.
func (h *AgentHandler) Execute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.ExecuteAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Reject unknown agents and conversations up front; once queued the
	// caller only learns about failures from the worker's logs.
	if _, err := h.store.GetAgent(ctx, tenantID, agentID); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.ConversationID != "" {
		if _, err := h.store.GetConversation(ctx, tenantID, req.ConversationID); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	jobID, err := h.queue.EnqueueExecution(ctx, tenantID, agentID, req.Message, req.ConversationID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "failed to queue execution")
		return
	}

	writeJSON(w, http.StatusAccepted, model.ExecuteAgentResponse{
		Message: "execution queued",
		JobID:   jobID,
		AgentID: agentID,
	})
}
