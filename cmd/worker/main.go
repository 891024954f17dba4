// Package main is the entry point for the background job worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/capitalize-ai/agent-platform/internal/channel"
	"github.com/capitalize-ai/agent-platform/internal/config"
	"github.com/capitalize-ai/agent-platform/internal/llm"
	"github.com/capitalize-ai/agent-platform/internal/orchestrator"
	"github.com/capitalize-ai/agent-platform/internal/queue"
	"github.com/capitalize-ai/agent-platform/internal/store"
	"github.com/capitalize-ai/agent-platform/pkg/logger"
	"github.com/capitalize-ai/agent-platform/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting worker")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "agent-platform-worker", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	st, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	queueClient, err := queue.Connect(ctx, queue.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer queueClient.Close()

	jobQueue := queue.NewQueue(queueClient)
	if err := jobQueue.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure job stream", zap.Error(err))
		os.Exit(1)
	}

	providers := llm.NewDefaultRegistry(cfg.OpenAIAPIKey, cfg.AnthropicAPIKey, cfg.LLMRequestTimeout)
	orch := orchestrator.New(st, providers, cfg.HistoryWindow, log)
	router := channel.NewRouter(st, nil, log)

	worker := queue.NewWorker(queueClient, st, orch, router, queue.WorkerConfig{
		ExecuteAttempts: cfg.ExecuteJobAttempts,
		ChannelAttempts: cfg.ChannelJobAttempts,
		JobTimeout:      cfg.LLMRequestTimeout * 2,
	}, log)

	if err := worker.Start(ctx); err != nil {
		log.Error("failed to start worker", zap.Error(err))
		os.Exit(1)
	}

	log.Info("worker consuming jobs")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker")
	worker.Stop()
	log.Info("worker stopped")
}
