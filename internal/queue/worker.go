package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/agent-platform/internal/model"
	"github.com/capitalize-ai/agent-platform/internal/orchestrator"
	"github.com/capitalize-ai/agent-platform/pkg/logger"
	"github.com/capitalize-ai/agent-platform/pkg/metrics"
)

const (
	executeConsumer = "execute-workers"
	channelConsumer = "channel-workers"

	// maxDeliveriesAdvisory is emitted by JetStream when a job exhausts its
	// delivery budget; it is the dead-letter signal.
	maxDeliveriesAdvisory = "$JS.EVENT.ADVISORY.CONSUMER.MAX_DELIVERIES." + StreamName + ".*"
)

// WorkerStore is the slice of the store the worker needs.
type WorkerStore interface {
	GetAgent(ctx context.Context, tenantID, id string) (*model.Agent, error)
	GetConversation(ctx context.Context, tenantID, id string) (*model.Conversation, error)
}

// Processor runs one conversation turn.
type Processor interface {
	ProcessUserMessage(ctx context.Context, tenantID string, agent *model.Agent, conv *model.Conversation, content string) (*orchestrator.Result, error)
}

// ConversationRouter resolves conversations and delivers channel replies.
type ConversationRouter interface {
	ResolveConversation(ctx context.Context, tenantID, agentID string, channelType model.ChannelType, channelUserID string, metadata model.JSONMap) (*model.Conversation, error)
	Deliver(ctx context.Context, tenantID, agentID string, channelType model.ChannelType, channelUserID, content string, metadata model.JSONMap)
}

// WorkerConfig bounds job execution.
type WorkerConfig struct {
	// ExecuteAttempts and ChannelAttempts cap deliveries per job before the
	// queue parks it.
	ExecuteAttempts int
	ChannelAttempts int

	// JobTimeout caps one attempt; it must exceed the LLM request timeout.
	JobTimeout time.Duration
}

// Worker consumes jobs from the durable stream and runs them through the
// orchestrator. It implements no retry logic of its own: a failed attempt is
// NAKed and JetStream's redelivery policy governs further attempts until the
// delivery budget is exhausted.
type Worker struct {
	client *Client
	store  WorkerStore
	proc   Processor
	router ConversationRouter
	cfg    WorkerConfig
	logger *logger.Logger

	consumeCtxs   []jetstream.ConsumeContext
	deadLetterSub *nats.Subscription
}

// NewWorker creates a worker.
func NewWorker(client *Client, store WorkerStore, proc Processor, router ConversationRouter, cfg WorkerConfig, log *logger.Logger) *Worker {
	if cfg.ExecuteAttempts <= 0 {
		cfg.ExecuteAttempts = 3
	}
	if cfg.ChannelAttempts <= 0 {
		cfg.ChannelAttempts = 5
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	return &Worker{
		client: client,
		store:  store,
		proc:   proc,
		router: router,
		cfg:    cfg,
		logger: log,
	}
}

// Start creates the durable consumers and begins processing.
func (w *Worker) Start(ctx context.Context) error {
	js := w.client.JetStream()

	consumers := []struct {
		name       string
		subject    string
		maxDeliver int
		handler    func(jetstream.Msg)
	}{
		{executeConsumer, SubjectExecute, w.cfg.ExecuteAttempts, w.handleExecute},
		{channelConsumer, SubjectChannel, w.cfg.ChannelAttempts, w.handleChannel},
	}

	for _, c := range consumers {
		consumer, err := js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
			Durable:       c.name,
			FilterSubject: c.subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			MaxDeliver:    c.maxDeliver,
			AckWait:       w.cfg.JobTimeout + 30*time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer %s: %w", c.name, err)
		}

		cc, err := consumer.Consume(c.handler)
		if err != nil {
			return fmt.Errorf("failed to start consumer %s: %w", c.name, err)
		}
		w.consumeCtxs = append(w.consumeCtxs, cc)
	}

	sub, err := w.client.Conn().Subscribe(maxDeliveriesAdvisory, w.handleDeadLetter)
	if err != nil {
		return fmt.Errorf("failed to subscribe to max-deliveries advisories: %w", err)
	}
	w.deadLetterSub = sub

	return nil
}

// Stop halts consumption.
func (w *Worker) Stop() {
	for _, cc := range w.consumeCtxs {
		cc.Stop()
	}
	if w.deadLetterSub != nil {
		_ = w.deadLetterSub.Unsubscribe()
	}
}

func (w *Worker) handleExecute(msg jetstream.Msg) {
	var job ExecutionJob
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		w.logger.Error("unreadable execution job, terminating", zap.Error(err))
		_ = msg.Term()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
	defer cancel()

	if err := w.runExecution(ctx, &job); err != nil {
		w.logger.Error("execution job failed",
			zap.String("job_id", job.JobID),
			zap.String("tenant_id", job.TenantID),
			zap.String("agent_id", job.AgentID),
			zap.Error(err),
		)
		metrics.JobsTotal.WithLabelValues("execute", "error").Inc()
		_ = msg.Nak()
		return
	}

	metrics.JobsTotal.WithLabelValues("execute", "ok").Inc()
	_ = msg.Ack()
}

func (w *Worker) runExecution(ctx context.Context, job *ExecutionJob) error {
	agent, err := w.store.GetAgent(ctx, job.TenantID, job.AgentID)
	if err != nil {
		return fmt.Errorf("failed to load agent: %w", err)
	}

	var conv *model.Conversation
	if job.ConversationID != "" {
		conv, err = w.store.GetConversation(ctx, job.TenantID, job.ConversationID)
		if err != nil {
			return fmt.Errorf("failed to load conversation: %w", err)
		}
	} else {
		// One-off executions run in a system-identity web conversation.
		conv, err = w.router.ResolveConversation(ctx, job.TenantID, job.AgentID,
			model.ChannelWeb, "system", model.JSONMap{"source": "job"})
		if err != nil {
			return fmt.Errorf("failed to resolve conversation: %w", err)
		}
	}

	result, err := w.proc.ProcessUserMessage(ctx, job.TenantID, agent, conv, job.Content)
	if err != nil {
		return err
	}

	w.logger.Info("agent executed",
		zap.String("job_id", job.JobID),
		zap.String("agent_id", job.AgentID),
		zap.String("conversation_id", conv.ID),
		zap.Int("tokens_used", result.TokensUsed),
	)
	return nil
}

func (w *Worker) handleChannel(msg jetstream.Msg) {
	var job ChannelMessageJob
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		w.logger.Error("unreadable channel job, terminating", zap.Error(err))
		_ = msg.Term()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
	defer cancel()

	if err := w.runChannelMessage(ctx, &job); err != nil {
		w.logger.Error("channel job failed",
			zap.String("job_id", job.JobID),
			zap.String("tenant_id", job.TenantID),
			zap.String("channel_type", string(job.ChannelType)),
			zap.Error(err),
		)
		metrics.JobsTotal.WithLabelValues("channel", "error").Inc()
		_ = msg.Nak()
		return
	}

	metrics.JobsTotal.WithLabelValues("channel", "ok").Inc()
	_ = msg.Ack()
}

func (w *Worker) runChannelMessage(ctx context.Context, job *ChannelMessageJob) error {
	agent, err := w.store.GetAgent(ctx, job.TenantID, job.AgentID)
	if err != nil {
		return fmt.Errorf("failed to load agent: %w", err)
	}

	conv, err := w.router.ResolveConversation(ctx, job.TenantID, job.AgentID,
		job.ChannelType, job.ChannelUserID, job.Metadata)
	if err != nil {
		return fmt.Errorf("failed to resolve conversation: %w", err)
	}

	result, err := w.proc.ProcessUserMessage(ctx, job.TenantID, agent, conv, job.Content)
	if err != nil {
		return err
	}

	w.router.Deliver(ctx, job.TenantID, job.AgentID, job.ChannelType,
		job.ChannelUserID, result.Content, job.Metadata)

	w.logger.Info("channel message processed",
		zap.String("job_id", job.JobID),
		zap.String("channel_type", string(job.ChannelType)),
		zap.String("channel_user_id", job.ChannelUserID),
		zap.String("conversation_id", conv.ID),
		zap.Int("tokens_used", result.TokensUsed),
	)
	return nil
}

func (w *Worker) handleDeadLetter(msg *nats.Msg) {
	parts := strings.Split(msg.Subject, ".")
	consumer := parts[len(parts)-1]
	metrics.JobsDeadLettered.WithLabelValues(consumer).Inc()
	w.logger.Error("job exhausted retry budget",
		zap.String("consumer", consumer),
		zap.ByteString("advisory", msg.Data),
	)
}
