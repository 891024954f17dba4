package model

import (
	"strings"
	"time"
)

// Provider is an LLM provider identifier.
type Provider string

// Supported providers.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderCustom    Provider = "custom"
)

// Model allow-lists per provider, checked at write time. Custom providers
// accept any model identifier.
var (
	OpenAIModels = []string{"gpt-4-turbo", "gpt-4", "gpt-3.5-turbo"}

	AnthropicModels = []string{
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
	}
)

// Agent is a configured LLM persona owned by a tenant.
type Agent struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	TenantID      string    `json:"tenant_id" gorm:"index;not null"`
	Name          string    `json:"name" gorm:"not null"`
	Description   string    `json:"description"`
	Provider      Provider  `json:"llm_provider" gorm:"not null"`
	Model         string    `json:"llm_model" gorm:"not null"`
	SystemPrompt  string    `json:"system_prompt" gorm:"not null"`
	Temperature   float64   `json:"temperature" gorm:"default:0.7"`
	MaxTokens     int       `json:"max_tokens" gorm:"default:1000"`
	Configuration JSONMap   `json:"configuration" gorm:"type:text"`
	Active        bool      `json:"active" gorm:"default:true;not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks agent fields at write time, including the model allow-list
// for the declared provider.
func (a *Agent) Validate() error {
	var errs ValidationErrors

	if l := len(a.Name); l < 2 || l > 100 {
		errs.add("name", "must be between 2 and 100 characters")
	}

	switch a.Provider {
	case ProviderOpenAI:
		if !contains(OpenAIModels, a.Model) {
			errs.add("llm_model", "must be a valid OpenAI model")
		}
	case ProviderAnthropic:
		if !contains(AnthropicModels, a.Model) {
			errs.add("llm_model", "must be a valid Anthropic model")
		}
	case ProviderCustom:
		if a.Model == "" {
			errs.add("llm_model", "is required")
		}
	default:
		errs.add("llm_provider", "must be one of openai, anthropic, custom")
	}

	if len(strings.TrimSpace(a.SystemPrompt)) < 10 {
		errs.add("system_prompt", "must be at least 10 characters")
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		errs.add("temperature", "must be between 0.0 and 2.0")
	}
	if a.MaxTokens < 1 || a.MaxTokens > 100000 {
		errs.add("max_tokens", "must be between 1 and 100000")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CreateAgentRequest is the request to create or update an agent.
type CreateAgentRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Provider      Provider `json:"llm_provider"`
	Model         string   `json:"llm_model"`
	SystemPrompt  string   `json:"system_prompt"`
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty"`
	Configuration JSONMap  `json:"configuration,omitempty"`
	Active        *bool    `json:"active,omitempty"`
}

// ExecuteAgentRequest is the request to trigger an asynchronous execution.
type ExecuteAgentRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ExecuteAgentResponse acknowledges a queued execution.
type ExecuteAgentResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
	AgentID string `json:"agent_id"`
}

// AgentResponse wraps an agent with derived counts for API responses.
type AgentResponse struct {
	Agent
	ConversationsCount int64 `json:"conversations_count"`
}

// ListAgentsResponse is the response for listing agents.
type ListAgentsResponse struct {
	Agents []AgentResponse `json:"agents"`
	Total  int64           `json:"total"`
}
