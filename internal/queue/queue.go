package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

const (
	// StreamName is the name of the background job stream.
	StreamName = "AGENT_JOBS"

	// SubjectExecute carries direct agent execution jobs.
	SubjectExecute = "jobs.execute"

	// SubjectChannel carries channel-sourced message jobs.
	SubjectChannel = "jobs.channel"
)

// ExecutionJob is the payload of a direct agent execution. When
// ConversationID is empty the worker creates a system-identity web
// conversation for the run.
type ExecutionJob struct {
	JobID          string `json:"job_id"`
	TenantID       string `json:"tenant_id"`
	AgentID        string `json:"agent_id"`
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChannelMessageJob is the payload of an inbound channel message.
type ChannelMessageJob struct {
	JobID         string            `json:"job_id"`
	TenantID      string            `json:"tenant_id"`
	AgentID       string            `json:"agent_id"`
	ChannelType   model.ChannelType `json:"channel_type"`
	ChannelUserID string            `json:"channel_user_id"`
	Content       string            `json:"content"`
	Metadata      model.JSONMap     `json:"metadata,omitempty"`
}

// Queue submits jobs to the durable stream. Submission is non-blocking from
// the caller's perspective: it returns as soon as the broker acknowledges
// the publish, long before the job runs.
type Queue struct {
	client *Client
}

// NewQueue creates a queue bound to the client's JetStream context.
func NewQueue(client *Client) *Queue {
	return &Queue{client: client}
}

// EnsureStream ensures the job stream exists with work-queue retention, so
// each job is delivered to exactly one worker per attempt.
func (q *Queue) EnsureStream(ctx context.Context) error {
	js := q.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{"jobs.>"},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Agent execution and channel message jobs",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// EnqueueExecution submits a direct agent execution and returns its job ID.
func (q *Queue) EnqueueExecution(ctx context.Context, tenantID, agentID, content, conversationID string) (string, error) {
	job := &ExecutionJob{
		JobID:          uuid.Must(uuid.NewV7()).String(),
		TenantID:       tenantID,
		AgentID:        agentID,
		Content:        content,
		ConversationID: conversationID,
	}
	if err := q.publish(ctx, SubjectExecute, job.JobID, job); err != nil {
		return "", err
	}
	return job.JobID, nil
}

// EnqueueChannelMessage submits an inbound channel message and returns its
// job ID.
func (q *Queue) EnqueueChannelMessage(ctx context.Context, tenantID, agentID string, channelType model.ChannelType, channelUserID, content string, metadata model.JSONMap) (string, error) {
	job := &ChannelMessageJob{
		JobID:         uuid.Must(uuid.NewV7()).String(),
		TenantID:      tenantID,
		AgentID:       agentID,
		ChannelType:   channelType,
		ChannelUserID: channelUserID,
		Content:       content,
		Metadata:      metadata,
	}
	if err := q.publish(ctx, SubjectChannel, job.JobID, job); err != nil {
		return "", err
	}
	return job.JobID, nil
}

func (q *Queue) publish(ctx context.Context, subject, jobID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	// Job ID doubles as the broker-side dedup key.
	msg.Header.Set(jetstream.MsgIDHeader, jobID)

	if _, err := q.client.JetStream().PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}
