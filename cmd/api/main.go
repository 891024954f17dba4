// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/agent-platform/internal/config"
	"github.com/capitalize-ai/agent-platform/internal/handler"
	"github.com/capitalize-ai/agent-platform/internal/llm"
	"github.com/capitalize-ai/agent-platform/internal/middleware"
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

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "agent-platform-api", cfg.TracingEndpoint)
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

	healthHandler := handler.NewHealthHandler(st, queueClient)
	authHandler := handler.NewAuthHandler(st, cfg.JWTSecret, cfg.JWTExpiration, log)
	agentHandler := handler.NewAgentHandler(st, jobQueue, log)
	channelHandler := handler.NewChannelHandler(st, jobQueue, log)
	conversationHandler := handler.NewConversationHandler(st, orch, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret, st))
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Get("/auth/me", authHandler.Me)

			r.Route("/agents", func(r chi.Router) {
				r.Post("/", agentHandler.Create)
				r.Get("/", agentHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", agentHandler.Get)
					r.Put("/", agentHandler.Update)
					r.Delete("/", agentHandler.Delete)
					r.Post("/execute", agentHandler.Execute)

					r.Get("/channels", channelHandler.List)
					r.Post("/channels", channelHandler.Upsert)
					r.Put("/channels", channelHandler.Upsert)
					r.Delete("/channels/{type}", channelHandler.Delete)
					r.Post("/channels/{type}/messages", channelHandler.Inbound)

					r.Get("/conversations", conversationHandler.ListByAgent)
					r.Post("/conversations", conversationHandler.Create)
				})
			})

			r.Route("/conversations/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Put("/", conversationHandler.Update)
				r.Patch("/", conversationHandler.Update)
				r.Get("/messages", conversationHandler.ListMessages)
				r.Post("/messages", conversationHandler.SendMessage)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
