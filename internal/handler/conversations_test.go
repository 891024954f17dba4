package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/agent-platform/internal/llm"
	"github.com/capitalize-ai/agent-platform/internal/model"
	"github.com/capitalize-ai/agent-platform/internal/orchestrator"
	"github.com/capitalize-ai/agent-platform/internal/store"
	"github.com/capitalize-ai/agent-platform/pkg/logger"
)

type fakeProcessor struct {
	result *orchestrator.Result
	err    error
	calls  int
}

func (p *fakeProcessor) ProcessUserMessage(ctx context.Context, tenantID string, agent *model.Agent, conv *model.Conversation, content string) (*orchestrator.Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func conversationRouter(h *ConversationHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/agents/{id}/conversations", h.ListByAgent)
	r.Post("/agents/{id}/conversations", h.Create)
	r.Get("/conversations/{id}", h.Get)
	r.Patch("/conversations/{id}", h.Update)
	r.Get("/conversations/{id}/messages", h.ListMessages)
	r.Post("/conversations/{id}/messages", h.SendMessage)
	return r
}

func seedConversation(t *testing.T, st *store.Store, tenantID, agentID string) *model.Conversation {
	t.Helper()
	conv, _, err := st.FindOrCreateActiveConversation(context.Background(), tenantID, agentID, model.ChannelWeb, "visitor-1", nil)
	if err != nil {
		t.Fatalf("failed to seed conversation: %v", err)
	}
	return conv
}

func TestCreateConversationIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	tenant := seedTenant(t, st, "acme")
	agent := seedAgent(t, st, tenant.ID)

	h := NewConversationHandler(st, &fakeProcessor{}, logger.NewNop())
	r := conversationRouter(h)

	req := model.CreateConversationRequest{ChannelType: model.ChannelWeb, ChannelUserID: "visitor-1"}

	rec := doRequest(r, http.MethodPost, "/agents/"+agent.ID+"/conversations", tenant.ID, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first create, got %d: %s", rec.Code, rec.Body.String())
	}
	var first model.Conversation
	json.NewDecoder(rec.Body).Decode(&first)

	rec = doRequest(r, http.MethodPost, "/agents/"+agent.ID+"/conversations", tenant.ID, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat create, got %d", rec.Code)
	}
	var second model.Conversation
	json.NewDecoder(rec.Body).Decode(&second)

	if first.ID != second.ID {
		t.Fatalf("expected same conversation, got %s and %s", first.ID, second.ID)
	}
}

func TestSendMessageReturnsReply(t *testing.T) {
	st := newTestStore(t)
	tenant := seedTenant(t, st, "acme")
	agent := seedAgent(t, st, tenant.ID)
	conv := seedConversation(t, st, tenant.ID, agent.ID)

	proc := &fakeProcessor{result: &orchestrator.Result{
		Message:    &model.Message{ID: "m1", Role: model.RoleAssistant, Content: "hi there"},
		Content:    "hi there",
		TokensUsed: 25,
	}}
	h := NewConversationHandler(st, proc, logger.NewNop())
	r := conversationRouter(h)

	rec := doRequest(r, http.MethodPost, "/conversations/"+conv.ID+"/messages", tenant.ID, model.SendMessageRequest{
		Content: "hello",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp model.SendMessageResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Content != "hi there" || resp.TokensUsed != 25 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if proc.calls != 1 {
		t.Fatalf("expected one processing call, got %d", proc.calls)
	}
}

func TestSendMessageToArchivedConversationIs409(t *testing.T) {
	st := newTestStore(t)
	tenant := seedTenant(t, st, "acme")
	agent := seedAgent(t, st, tenant.ID)
	conv := seedConversation(t, st, tenant.ID, agent.ID)

	conv.Status = model.StatusArchived
	if err := st.UpdateConversation(context.Background(), tenant.ID, conv); err != nil {
		t.Fatalf("failed to archive: %v", err)
	}

	proc := &fakeProcessor{}
	h := NewConversationHandler(st, proc, logger.NewNop())
	r := conversationRouter(h)

	rec := doRequest(r, http.MethodPost, "/conversations/"+conv.ID+"/messages", tenant.ID, model.SendMessageRequest{
		Content: "hello",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if proc.calls != 0 {
		t.Fatal("expected no processing for archived conversation")
	}
}

func TestSendMessageProviderErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"rate limit", &llm.Error{Kind: llm.KindRateLimit, Provider: "openai", Err: errors.New("429")}, http.StatusTooManyRequests},
		{"invalid request", &llm.Error{Kind: llm.KindInvalidRequest, Provider: "openai", Err: errors.New("400")}, http.StatusUnprocessableEntity},
		{"unavailable", &llm.Error{Kind: llm.KindUnavailable, Provider: "openai", Err: errors.New("503")}, http.StatusServiceUnavailable},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t)
			tenant := seedTenant(t, st, "acme")
			agent := seedAgent(t, st, tenant.ID)
			conv := seedConversation(t, st, tenant.ID, agent.ID)

			h := NewConversationHandler(st, &fakeProcessor{err: tt.err}, logger.NewNop())
			r := conversationRouter(h)

			rec := doRequest(r, http.MethodPost, "/conversations/"+conv.ID+"/messages", tenant.ID, model.SendMessageRequest{
				Content: "hello",
			})
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUpdateConversationStatus(t *testing.T) {
	st := newTestStore(t)
	tenant := seedTenant(t, st, "acme")
	agent := seedAgent(t, st, tenant.ID)
	conv := seedConversation(t, st, tenant.ID, agent.ID)

	h := NewConversationHandler(st, &fakeProcessor{}, logger.NewNop())
	r := conversationRouter(h)

	rec := doRequest(r, http.MethodPatch, "/conversations/"+conv.ID, tenant.ID, model.UpdateConversationRequest{
		Status: model.StatusPaused,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	updated, err := st.GetConversation(context.Background(), tenant.ID, conv.ID)
	if err != nil {
		t.Fatalf("failed to reload conversation: %v", err)
	}
	if updated.Status != model.StatusPaused {
		t.Fatalf("expected paused, got %s", updated.Status)
	}

	rec = doRequest(r, http.MethodPatch, "/conversations/"+conv.ID, tenant.ID, model.UpdateConversationRequest{
		Status: "closed",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown status, got %d", rec.Code)
	}
}

func TestListMessagesMeta(t *testing.T) {
	st := newTestStore(t)
	tenant := seedTenant(t, st, "acme")
	agent := seedAgent(t, st, tenant.ID)
	conv := seedConversation(t, st, tenant.ID, agent.ID)

	ctx := context.Background()
	st.AppendMessage(ctx, tenant.ID, conv.ID, model.RoleUser, "hello", 0)
	st.AppendMessage(ctx, tenant.ID, conv.ID, model.RoleAssistant, "hi", 25)

	h := NewConversationHandler(st, &fakeProcessor{}, logger.NewNop())
	r := conversationRouter(h)

	rec := doRequest(r, http.MethodGet, "/conversations/"+conv.ID+"/messages", tenant.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp model.ListMessagesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Messages) != 2 || resp.Meta.Total != 2 || resp.Meta.TotalTokens != 25 {
		t.Fatalf("unexpected response: %+v", resp.Meta)
	}
}
