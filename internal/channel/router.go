package channel

import (
	"context"

	"go.uber.org/zap"

	"github.com/capitalize-ai/agent-platform/internal/model"
	"github.com/capitalize-ai/agent-platform/pkg/logger"
	"github.com/capitalize-ai/agent-platform/pkg/metrics"
)

// ConversationStore is the slice of the store the router needs.
type ConversationStore interface {
	FindOrCreateActiveConversation(ctx context.Context, tenantID, agentID string, channelType model.ChannelType, channelUserID string, metadata model.JSONMap) (*model.Conversation, bool, error)
	GetAgentChannel(ctx context.Context, tenantID, agentID string, channelType model.ChannelType) (*model.AgentChannel, error)
}

// Router resolves inbound messages to conversations and dispatches outbound
// replies to channel senders.
type Router struct {
	store     ConversationStore
	factories map[model.ChannelType]SenderFactory
	logger    *logger.Logger
}

// NewRouter creates a channel router.
func NewRouter(store ConversationStore, factories map[model.ChannelType]SenderFactory, log *logger.Logger) *Router {
	if factories == nil {
		factories = DefaultSenderFactories()
	}
	return &Router{
		store:     store,
		factories: factories,
		logger:    log,
	}
}

// ResolveConversation returns the active conversation for the external
// identity, creating it atomically when none exists. Two concurrent calls
// for the same identity yield the same conversation.
func (r *Router) ResolveConversation(ctx context.Context, tenantID, agentID string, channelType model.ChannelType, channelUserID string, metadata model.JSONMap) (*model.Conversation, error) {
	conv, created, err := r.store.FindOrCreateActiveConversation(ctx, tenantID, agentID, channelType, channelUserID, metadata)
	if err != nil {
		return nil, err
	}

	if created {
		metrics.ConversationsTotal.WithLabelValues(tenantID, string(channelType)).Inc()
		r.logger.Info("conversation created",
			zap.String("tenant_id", tenantID),
			zap.String("agent_id", agentID),
			zap.String("channel_type", string(channelType)),
			zap.String("conversation_id", conv.ID),
		)
	}
	return conv, nil
}

// Deliver forwards an orchestrator result to the originating channel.
// Delivery is at-most-once-attempted: sender failures are logged and never
// propagated, because the message log is already durable.
func (r *Router) Deliver(ctx context.Context, tenantID, agentID string, channelType model.ChannelType, channelUserID, content string, metadata model.JSONMap) {
	log := r.logger.With(
		zap.String("tenant_id", tenantID),
		zap.String("agent_id", agentID),
		zap.String("channel_type", string(channelType)),
		zap.String("channel_user_id", channelUserID),
	)

	binding, err := r.store.GetAgentChannel(ctx, tenantID, agentID, channelType)
	if err != nil {
		log.Warn("no channel binding for outbound delivery", zap.Error(err))
		return
	}

	factory, ok := r.factories[channelType]
	if !ok {
		log.Warn("no sender registered for channel type")
		return
	}

	sender, err := factory(binding.Configuration)
	if err != nil {
		log.Error("failed to build channel sender", zap.Error(err))
		metrics.ChannelDeliveriesTotal.WithLabelValues(string(channelType), "error").Inc()
		return
	}

	if err := sender.Send(ctx, channelUserID, content, metadata); err != nil {
		log.Error("channel delivery failed", zap.Error(err))
		metrics.ChannelDeliveriesTotal.WithLabelValues(string(channelType), "error").Inc()
		return
	}
	metrics.ChannelDeliveriesTotal.WithLabelValues(string(channelType), "ok").Inc()
}
