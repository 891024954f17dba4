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

// ChannelJobQueue submits inbound channel messages for async processing.
type ChannelJobQueue interface {
	EnqueueChannelMessage(ctx context.Context, tenantID, agentID string, channelType model.ChannelType, channelUserID, content string, metadata model.JSONMap) (string, error)
}

// ChannelHandler handles agent channel binding endpoints.
type ChannelHandler struct {
	store  *store.Store
	queue  ChannelJobQueue
	logger *logger.Logger
}

// NewChannelHandler creates a new channel handler.
func NewChannelHandler(st *store.Store, queue ChannelJobQueue, log *logger.Logger) *ChannelHandler {
	return &ChannelHandler{
		store:  st,
		queue:  queue,
		logger: log,
	}
}

// List handles GET /api/v1/agents/:id/channels
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetAgent(ctx, tenantID, agentID); err != nil {
		writeDomainError(w, err)
		return
	}

	channels, err := h.store.ListAgentChannels(ctx, tenantID, agentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ListAgentChannelsResponse{Channels: channels})
}

// Upsert handles PUT /api/v1/agents/:id/channels
//
// Binding the same channel type twice replaces the configuration instead of
// erroring, so credential rotation is a plain re-PUT.
func (h *ChannelHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetAgent(ctx, tenantID, agentID); err != nil {
		writeDomainError(w, err)
		return
	}

	var req model.CreateAgentChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ch := &model.AgentChannel{
		AgentID:       agentID,
		ChannelType:   req.ChannelType,
		Configuration: req.Configuration,
	}
	if err := h.store.UpsertAgentChannel(ctx, tenantID, ch); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ch)
}

// Inbound handles POST /api/v1/agents/:id/channels/:type/messages
//
// This is the async channel path: the message is durably queued with 202 and
// a worker resolves the conversation, runs the turn, and delivers the reply
// back over the channel.
func (h *ChannelHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")
	channelType := model.ChannelType(chi.URLParam(r, "type"))

	if err := middleware.ValidateID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !model.ValidChannelType(channelType) {
		writeError(w, http.StatusBadRequest, "invalid channel type")
		return
	}

	var req model.InboundChannelMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChannelUserID == "" {
		writeError(w, http.StatusBadRequest, "channel_user_id is required")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The binding must exist so the worker can deliver the reply.
	if _, err := h.store.GetAgentChannel(ctx, tenantID, agentID, channelType); err != nil {
		writeDomainError(w, err)
		return
	}

	jobID, err := h.queue.EnqueueChannelMessage(ctx, tenantID, agentID, channelType, req.ChannelUserID, req.Content, req.Metadata)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "failed to queue message")
		return
	}

	writeJSON(w, http.StatusAccepted, model.InboundChannelMessageResponse{
		Message: "message queued",
		JobID:   jobID,
	})
}

// Delete handles DELETE /api/v1/agents/:id/channels/:type
func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")
	channelType := model.ChannelType(chi.URLParam(r, "type"))

	if err := middleware.ValidateID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !model.ValidChannelType(channelType) {
		writeError(w, http.StatusBadRequest, "invalid channel type")
		return
	}

	if err := h.store.DeleteAgentChannel(ctx, tenantID, agentID, channelType); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
