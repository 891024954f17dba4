package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/capitalize-ai/agent-platform/internal/llm"
	"github.com/capitalize-ai/agent-platform/internal/model"
	"github.com/capitalize-ai/agent-platform/pkg/logger"
)

type fakeStore struct {
	messages []model.Message
	nextID   int
}

func (s *fakeStore) AppendMessage(ctx context.Context, tenantID, conversationID string, role model.Role, content string, tokensUsed int) (*model.Message, error) {
	s.nextID++
	msg := model.Message{
		ID:             string(rune('a' + s.nextID)),
		TenantID:       tenantID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		TokensUsed:     tokensUsed,
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *fakeStore) RecentMessages(ctx context.Context, tenantID, conversationID string, limit int) ([]model.Message, error) {
	if len(s.messages) <= limit {
		return s.messages, nil
	}
	return s.messages[len(s.messages)-limit:], nil
}

type fakeClient struct {
	resp    *llm.CompletionResponse
	err     error
	lastReq *llm.CompletionRequest
}

func (c *fakeClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return c.resp, nil
}

func (c *fakeClient) Name() string { return "fake" }

func testAgent() *model.Agent {
	return &model.Agent{
		ID:           "agent-1",
		Provider:     model.ProviderOpenAI,
		Model:        "gpt-4-turbo",
		SystemPrompt: "You are a helpful support agent.",
		Temperature:  0.7,
		MaxTokens:    1000,
	}
}

func testConversation() *model.Conversation {
	return &model.Conversation{ID: "conv-1", Status: model.StatusActive}
}

func newTestOrchestrator(store *fakeStore, client *fakeClient, window int) *Orchestrator {
	registry := llm.NewRegistry()
	registry.Register(model.ProviderOpenAI, client)
	return New(store, registry, window, logger.NewNop())
}

func TestProcessUserMessageSuccess(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{resp: &llm.CompletionResponse{Content: "hi there", TokensUsed: 25}}
	orch := newTestOrchestrator(store, client, 0)

	result, err := orch.ProcessUserMessage(context.Background(), "t1", testAgent(), testConversation(), "hello")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result.Content != "hi there" || result.TokensUsed != 25 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if len(store.messages) != 2 {
		t.Fatalf("expected user and assistant messages, got %d", len(store.messages))
	}
	if store.messages[0].Role != model.RoleUser || store.messages[0].Content != "hello" {
		t.Fatalf("unexpected user message: %+v", store.messages[0])
	}
	if store.messages[1].Role != model.RoleAssistant || store.messages[1].TokensUsed != 25 {
		t.Fatalf("unexpected assistant message: %+v", store.messages[1])
	}

	// The current turn goes only as UserMessage, never duplicated in history.
	if client.lastReq.UserMessage != "hello" {
		t.Fatalf("unexpected user message sent: %q", client.lastReq.UserMessage)
	}
	for _, msg := range client.lastReq.History {
		if msg.Content == "hello" {
			t.Fatal("current turn leaked into history")
		}
	}
}

func TestProcessUserMessageFailureWritesSentinel(t *testing.T) {
	cause := &llm.Error{Kind: llm.KindRateLimit, Provider: "openai", Err: errors.New("too many requests")}
	store := &fakeStore{}
	client := &fakeClient{err: cause}
	orch := newTestOrchestrator(store, client, 0)

	_, err := orch.ProcessUserMessage(context.Background(), "t1", testAgent(), testConversation(), "hello")
	if !llm.IsRateLimit(err) {
		t.Fatalf("expected typed rate-limit error back, got %v", err)
	}

	if len(store.messages) != 2 {
		t.Fatalf("expected user message plus error sentinel, got %d", len(store.messages))
	}
	sentinel := store.messages[1]
	if sentinel.Role != model.RoleSystem {
		t.Fatalf("expected system sentinel, got role %s", sentinel.Role)
	}
	if sentinel.Content[:7] != "Error: " {
		t.Fatalf("expected error prefix, got %q", sentinel.Content)
	}
}

func TestProcessUserMessageUnknownProvider(t *testing.T) {
	store := &fakeStore{}
	orch := New(store, llm.NewRegistry(), 0, logger.NewNop())

	_, err := orch.ProcessUserMessage(context.Background(), "t1", testAgent(), testConversation(), "hello")
	le, ok := llm.AsError(err)
	if !ok || le.Kind != llm.KindUnavailable {
		t.Fatalf("expected unavailable error for unknown provider, got %v", err)
	}
}

func TestProcessUserMessageWindowBound(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 30; i++ {
		store.AppendMessage(context.Background(), "t1", "conv-1", model.RoleUser, "old", 0)
	}
	client := &fakeClient{resp: &llm.CompletionResponse{Content: "ok"}}
	orch := newTestOrchestrator(store, client, 5)

	if _, err := orch.ProcessUserMessage(context.Background(), "t1", testAgent(), testConversation(), "latest"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	// Window of 5 includes the just-appended turn, which is then dropped.
	if len(client.lastReq.History) != 4 {
		t.Fatalf("expected history of 4, got %d", len(client.lastReq.History))
	}
}
