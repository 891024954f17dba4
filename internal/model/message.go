package model

import (
	"time"
)

// Role is the role of a message author.
type Role string

// Message roles. System messages are created only as error sentinels when a
// provider call fails.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is an immutable entry in a conversation's ordered log. Messages are
// never mutated or reordered after creation; CreatedAt defines the order.
type Message struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	TenantID       string    `json:"tenant_id" gorm:"index;not null"`
	ConversationID string    `json:"conversation_id" gorm:"index;not null"`
	Role           Role      `json:"role" gorm:"not null"`
	Content        string    `json:"content" gorm:"not null"`
	TokensUsed     int       `json:"tokens_used" gorm:"default:0"`
	Metadata       JSONMap   `json:"metadata,omitempty" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

// SendMessageRequest is the request to send a message on a conversation.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse is the synchronous reply to a sent message.
type SendMessageResponse struct {
	Message    *Message `json:"message"`
	Content    string   `json:"content"`
	TokensUsed int      `json:"tokens_used"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message        `json:"messages"`
	Meta     ListMessagesMeta `json:"meta"`
}

// ListMessagesMeta carries message log aggregates.
type ListMessagesMeta struct {
	Total       int64 `json:"total"`
	TotalTokens int64 `json:"total_tokens"`
}
