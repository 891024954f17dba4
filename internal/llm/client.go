// Package llm provides the unified LLM provider abstraction: one Client
// interface, one concrete adapter per provider, and a registry keyed by the
// agent's provider enum.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// ChatMessage is one turn of conversation history in provider-neutral form.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the unified completion request. History is the
// bounded context window in chronological order; UserMessage is the current
// user turn and always forms the trailing message sent to the provider.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	History      []ChatMessage
	UserMessage  string
	Temperature  float64
	MaxTokens    int
}

// CompletionResponse is the unified completion result.
type CompletionResponse struct {
	Content      string
	TokensUsed   int
	FinishReason string
	LatencyMs    int64
}

// Client is the interface implemented by each provider adapter. Adapters are
// stateless apart from a reusable connection handle.
type Client interface {
	// Complete sends a completion request and returns the response. All
	// failures are reported as *Error values.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Registry resolves provider adapters by the agent's provider enum. Adding a
// provider means registering one more adapter; the orchestrator never
// changes.
type Registry struct {
	clients map[model.Provider]Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[model.Provider]Client)}
}

// Register binds a provider enum to an adapter.
func (r *Registry) Register(provider model.Provider, client Client) {
	r.clients[provider] = client
}

// NewDefaultRegistry builds a registry from the configured API keys. A
// provider without a key is simply absent; resolving it yields a typed
// error rather than a nil client.
func NewDefaultRegistry(openaiKey, anthropicKey string, timeout time.Duration) *Registry {
	r := NewRegistry()
	if openaiKey != "" {
		if client, err := NewOpenAIClient(openaiKey, timeout); err == nil {
			r.Register(model.ProviderOpenAI, client)
		}
	}
	if anthropicKey != "" {
		if client, err := NewAnthropicClient(anthropicKey, timeout); err == nil {
			r.Register(model.ProviderAnthropic, client)
		}
	}
	return r
}

// Resolve returns the adapter for the given provider.
func (r *Registry) Resolve(provider model.Provider) (Client, error) {
	client, ok := r.clients[provider]
	if !ok {
		return nil, &Error{
			Kind:     KindUnavailable,
			Provider: string(provider),
			Err:      fmt.Errorf("unsupported LLM provider: %s", provider),
		}
	}
	return client, nil
}
