package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/agent-platform/internal/middleware"
	"github.com/capitalize-ai/agent-platform/internal/model"
	"github.com/capitalize-ai/agent-platform/internal/orchestrator"
	"github.com/capitalize-ai/agent-platform/internal/store"
	"github.com/capitalize-ai/agent-platform/pkg/logger"
)

// Processor runs one conversation turn synchronously.
type Processor interface {
	ProcessUserMessage(ctx context.Context, tenantID string, agent *model.Agent, conv *model.Conversation, content string) (*orchestrator.Result, error)
}

// ConversationHandler handles conversation and message endpoints.
type ConversationHandler struct {
	store  *store.Store
	proc   Processor
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(st *store.Store, proc Processor, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		store:  st,
		proc:   proc,
		logger: log,
	}
}

// ListByAgent handles GET /api/v1/agents/:id/conversations
func (h *ConversationHandler) ListByAgent(w http.ResponseWriter, r *http.Request) {
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

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	convs, err := h.store.ListConversationsByAgent(ctx, tenantID, agentID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := model.ListConversationsResponse{
		Conversations: make([]model.ConversationResponse, 0, len(convs)),
		Total:         int64(len(convs)),
	}
	for _, conv := range convs {
		count, err := h.store.CountMessages(ctx, tenantID, conv.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		tokens, err := h.store.TotalTokens(ctx, tenantID, conv.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp.Conversations = append(resp.Conversations, model.ConversationResponse{
			Conversation:  conv,
			AgentName:     agent.Name,
			MessagesCount: count,
			TotalTokens:   tokens,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /api/v1/agents/:id/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req model.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, created, err := h.store.FindOrCreateActiveConversation(ctx, tenantID, agentID, req.ChannelType, req.ChannelUserID, req.Metadata)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, conv)
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.store.GetConversation(ctx, tenantID, conversationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	count, err := h.store.CountMessages(ctx, tenantID, conv.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tokens, err := h.store.TotalTokens(ctx, tenantID, conv.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ConversationResponse{
		Conversation:  *conv,
		MessagesCount: count,
		TotalTokens:   tokens,
	})
}

// Update handles PUT/PATCH /api/v1/conversations/:id
func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.store.GetConversation(ctx, tenantID, conversationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req model.UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Status != "" {
		conv.Status = req.Status
	}
	if req.Metadata != nil {
		conv.Metadata = req.Metadata
	}

	if err := h.store.UpdateConversation(ctx, tenantID, conv); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// ListMessages handles GET /api/v1/conversations/:id/messages
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetConversation(ctx, tenantID, conversationID); err != nil {
		writeDomainError(w, err)
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	messages, err := h.store.ListMessages(ctx, tenantID, conversationID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	count, err := h.store.CountMessages(ctx, tenantID, conversationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tokens, err := h.store.TotalTokens(ctx, tenantID, conversationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ListMessagesResponse{
		Messages: messages,
		Meta: model.ListMessagesMeta{
			Total:       count,
			TotalTokens: tokens,
		},
	})
}

// SendMessage handles POST /api/v1/conversations/:id/messages
//
// This is the synchronous path: the user message is processed inline and the
// assistant reply returned in the response body. Provider failures surface as
// typed HTTP errors after the error sentinel is persisted.
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.store.GetConversation(ctx, tenantID, conversationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if conv.Status != model.StatusActive {
		writeError(w, http.StatusConflict, "conversation is not active")
		return
	}

	agent, err := h.store.GetAgent(ctx, tenantID, conv.AgentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.proc.ProcessUserMessage(ctx, tenantID, agent, conv, req.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.SendMessageResponse{
		Message:    result.Message,
		Content:    result.Content,
		TokensUsed: result.TokensUsed,
	})
}
