// Package orchestrator coordinates one conversation turn: persist the user
// message, build the bounded context window, call the agent's provider
// adapter, and persist the outcome, success and failure alike.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/agent-platform/internal/llm"
	"github.com/capitalize-ai/agent-platform/internal/model"
	"github.com/capitalize-ai/agent-platform/pkg/logger"
	"github.com/capitalize-ai/agent-platform/pkg/metrics"
)

// DefaultHistoryWindow bounds the context slice sent to providers.
const DefaultHistoryWindow = 20

// MessageStore is the slice of the store the orchestrator needs.
type MessageStore interface {
	AppendMessage(ctx context.Context, tenantID, conversationID string, role model.Role, content string, tokensUsed int) (*model.Message, error)
	RecentMessages(ctx context.Context, tenantID, conversationID string, limit int) ([]model.Message, error)
}

// Result is the composite outcome of a processed user message.
type Result struct {
	Message    *model.Message `json:"message"`
	Content    string         `json:"content"`
	TokensUsed int            `json:"tokens_used"`
}

// Orchestrator runs conversation turns against provider adapters.
type Orchestrator struct {
	store     MessageStore
	providers *llm.Registry
	window    int
	locks     *conversationLocks
	logger    *logger.Logger
}

// New creates an orchestrator. window bounds the context history; zero or
// negative selects the default.
func New(store MessageStore, providers *llm.Registry, window int, log *logger.Logger) *Orchestrator {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Orchestrator{
		store:     store,
		providers: providers,
		window:    window,
		locks:     newConversationLocks(),
		logger:    log,
	}
}

// ProcessUserMessage appends content as a user message, invokes the agent's
// provider with the bounded history, and appends the assistant reply. On any
// LLM failure a system-role message records the error text inline and the
// typed error is returned to the caller, never swallowed.
//
// Calls for the same conversation are serialized by a process-local
// per-conversation lock held for the duration of the call. Turns arriving
// through a different process are not serialized here; their relative order
// is whatever the append-only message log records.
func (o *Orchestrator) ProcessUserMessage(ctx context.Context, tenantID string, agent *model.Agent, conv *model.Conversation, content string) (*Result, error) {
	unlock := o.locks.lock(conv.ID)
	defer unlock()

	userMsg, err := o.store.AppendMessage(ctx, tenantID, conv.ID, model.RoleUser, content, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to append user message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(tenantID, string(model.RoleUser)).Inc()

	window, err := o.store.RecentMessages(ctx, tenantID, conv.ID, o.window)
	if err != nil {
		return nil, fmt.Errorf("failed to read message history: %w", err)
	}

	// The current turn is passed separately; drop it from the window so the
	// provider sees it exactly once, as the trailing user message.
	history := make([]llm.ChatMessage, 0, len(window))
	for _, msg := range window {
		if msg.ID == userMsg.ID {
			continue
		}
		history = append(history, llm.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	client, err := o.providers.Resolve(agent.Provider)
	if err != nil {
		return nil, o.recordFailure(ctx, tenantID, conv.ID, err)
	}

	start := time.Now()
	resp, err := client.Complete(ctx, &llm.CompletionRequest{
		Model:        agent.Model,
		SystemPrompt: agent.SystemPrompt,
		History:      history,
		UserMessage:  content,
		Temperature:  agent.Temperature,
		MaxTokens:    agent.MaxTokens,
	})
	if err != nil {
		metrics.RecordLLMRequest(string(agent.Provider), agent.Model, "error", time.Since(start).Seconds(), 0)
		return nil, o.recordFailure(ctx, tenantID, conv.ID, err)
	}
	metrics.RecordLLMRequest(string(agent.Provider), agent.Model, "success", time.Since(start).Seconds(), resp.TokensUsed)

	assistantMsg, err := o.store.AppendMessage(ctx, tenantID, conv.ID, model.RoleAssistant, resp.Content, resp.TokensUsed)
	if err != nil {
		return nil, fmt.Errorf("failed to append assistant message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(tenantID, string(model.RoleAssistant)).Inc()

	return &Result{
		Message:    assistantMsg,
		Content:    resp.Content,
		TokensUsed: resp.TokensUsed,
	}, nil
}

// recordFailure writes the system-role error sentinel to the conversation
// log and returns cause unchanged.
func (o *Orchestrator) recordFailure(ctx context.Context, tenantID, conversationID string, cause error) error {
	o.logger.Error("LLM request failed",
		zap.String("tenant_id", tenantID),
		zap.String("conversation_id", conversationID),
		zap.Error(cause),
	)

	_, appendErr := o.store.AppendMessage(ctx, tenantID, conversationID, model.RoleSystem, "Error: "+cause.Error(), 0)
	if appendErr != nil {
		o.logger.Error("failed to record error message",
			zap.String("conversation_id", conversationID),
			zap.Error(appendErr),
		)
	} else {
		metrics.MessagesTotal.WithLabelValues(tenantID, string(model.RoleSystem)).Inc()
	}

	return cause
}
