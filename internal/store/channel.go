package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// UpsertAgentChannel creates or replaces the channel binding for
// (agent, channel_type).
func (s *Store) UpsertAgentChannel(ctx context.Context, tenantID string, ch *model.AgentChannel) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	if ch.ID == "" {
		ch.ID = NewID()
	}
	ch.TenantID = tenantID
	ch.Active = true
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_id"}, {Name: "channel_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"configuration", "active", "updated_at"}),
	}).Create(ch).Error
}

// GetAgentChannel fetches the channel binding for (agent, channel_type).
func (s *Store) GetAgentChannel(ctx context.Context, tenantID, agentID string, channelType model.ChannelType) (*model.AgentChannel, error) {
	var ch model.AgentChannel
	err := s.scoped(ctx, tenantID).
		First(&ch, "agent_id = ? AND channel_type = ? AND active = ?", agentID, channelType, true).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &ch, nil
}

// ListAgentChannels returns all channel bindings for an agent.
func (s *Store) ListAgentChannels(ctx context.Context, tenantID, agentID string) ([]model.AgentChannel, error) {
	var channels []model.AgentChannel
	err := s.scoped(ctx, tenantID).
		Where("agent_id = ?", agentID).
		Order("channel_type ASC").
		Find(&channels).Error
	if err != nil {
		return nil, err
	}
	return channels, nil
}

// DeleteAgentChannel removes the channel binding for (agent, channel_type).
func (s *Store) DeleteAgentChannel(ctx context.Context, tenantID, agentID string, channelType model.ChannelType) error {
	result := s.scoped(ctx, tenantID).
		Where("agent_id = ? AND channel_type = ?", agentID, channelType).
		Delete(&model.AgentChannel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
