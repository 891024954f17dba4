package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/capitalize-ai/agent-platform/internal/model"
	"github.com/capitalize-ai/agent-platform/pkg/logger"
)

type fakeConversationStore struct {
	conv     *model.Conversation
	created  bool
	binding  *model.AgentChannel
	getErr   error
	resolved int
}

func (s *fakeConversationStore) FindOrCreateActiveConversation(ctx context.Context, tenantID, agentID string, channelType model.ChannelType, channelUserID string, metadata model.JSONMap) (*model.Conversation, bool, error) {
	s.resolved++
	return s.conv, s.created, nil
}

func (s *fakeConversationStore) GetAgentChannel(ctx context.Context, tenantID, agentID string, channelType model.ChannelType) (*model.AgentChannel, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.binding, nil
}

type fakeSender struct {
	sent []string
	err  error
}

func (s *fakeSender) Send(ctx context.Context, channelUserID, content string, metadata model.JSONMap) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, content)
	return nil
}

func TestResolveConversation(t *testing.T) {
	store := &fakeConversationStore{
		conv:    &model.Conversation{ID: "conv-1", Status: model.StatusActive},
		created: true,
	}
	router := NewRouter(store, nil, logger.NewNop())

	conv, err := router.ResolveConversation(context.Background(), "t1", "agent-1", model.ChannelSlack, "U123", nil)
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	if conv.ID != "conv-1" || store.resolved != 1 {
		t.Fatalf("unexpected resolve result: %+v", conv)
	}
}

func TestDeliverSendsThroughFactory(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeConversationStore{
		binding: &model.AgentChannel{
			ChannelType:   model.ChannelSlack,
			Configuration: model.JSONMap{"bot_token": "tok", "signing_secret": "sec"},
		},
	}
	factories := map[model.ChannelType]SenderFactory{
		model.ChannelSlack: func(config model.JSONMap) (Sender, error) { return sender, nil },
	}
	router := NewRouter(store, factories, logger.NewNop())

	router.Deliver(context.Background(), "t1", "agent-1", model.ChannelSlack, "U123", "hi there", nil)

	if len(sender.sent) != 1 || sender.sent[0] != "hi there" {
		t.Fatalf("expected one delivery, got %v", sender.sent)
	}
}

func TestDeliverFailuresAreNotFatal(t *testing.T) {
	store := &fakeConversationStore{getErr: errors.New("no binding")}
	router := NewRouter(store, map[model.ChannelType]SenderFactory{}, logger.NewNop())

	// Missing binding, missing factory, and sender failure all log and return.
	router.Deliver(context.Background(), "t1", "agent-1", model.ChannelSlack, "U123", "hi", nil)

	store.getErr = nil
	store.binding = &model.AgentChannel{ChannelType: model.ChannelSlack}
	router.Deliver(context.Background(), "t1", "agent-1", model.ChannelSlack, "U123", "hi", nil)

	failing := &fakeSender{err: errors.New("channel down")}
	router.factories[model.ChannelSlack] = func(config model.JSONMap) (Sender, error) { return failing, nil }
	router.Deliver(context.Background(), "t1", "agent-1", model.ChannelSlack, "U123", "hi", nil)
}
