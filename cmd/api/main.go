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
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lumenchat/stream-platform/internal/adapter"
	"github.com/lumenchat/stream-platform/internal/broadcast"
	"github.com/lumenchat/stream-platform/internal/config"
	"github.com/lumenchat/stream-platform/internal/handler"
	"github.com/lumenchat/stream-platform/internal/ledger"
	"github.com/lumenchat/stream-platform/internal/middleware"
	"github.com/lumenchat/stream-platform/internal/orchestrator"
	"github.com/lumenchat/stream-platform/internal/provider"
	"github.com/lumenchat/stream-platform/internal/resolver"
	"github.com/lumenchat/stream-platform/internal/search"
	"github.com/lumenchat/stream-platform/internal/store"
	"github.com/lumenchat/stream-platform/pkg/logger"
	"github.com/lumenchat/stream-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "stream-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Stores
	mem := store.NewMemory()

	// Broadcast registry and optional NATS bridge
	registry := broadcast.NewRegistry(log)

	var bridge *broadcast.Bridge
	if cfg.NATSEnabled {
		bridge, err = broadcast.ConnectBridge(broadcast.BridgeConfig{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCert,
			KeyFile:  cfg.NATSKey,
			Token:    cfg.NATSToken,
		}, registry, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer bridge.Close()
	}

	// Providers, each with its streaming dialect
	handles := []provider.Handle{
		provider.NewHTTPHandle(provider.HTTPConfig{
			Name:    "openai",
			BaseURL: cfg.OpenAI.BaseURL,
			Path:    cfg.OpenAI.Path,
			APIKey:  cfg.OpenAI.APIKey,
			Models:  cfg.OpenAI.Models,
		}, adapter.NewDelta(log)),
		provider.NewHTTPHandle(provider.HTTPConfig{
			Name:    "greatwall",
			BaseURL: cfg.GreatWall.BaseURL,
			Path:    cfg.GreatWall.Path,
			APIKey:  cfg.GreatWall.APIKey,
			Models:  cfg.GreatWall.Models,
		}, adapter.NewGreatWall(log)),
		provider.NewHTTPHandle(provider.HTTPConfig{
			Name:    "modelscope",
			BaseURL: cfg.ModelScope.BaseURL,
			Path:    cfg.ModelScope.Path,
			APIKey:  cfg.ModelScope.APIKey,
			Models:  cfg.ModelScope.Models,
		}, adapter.NewModelScope(log)),
	}

	providerRegistry, err := provider.NewRegistry(handles, cfg.DefaultProvider)
	if err != nil {
		log.Error("invalid provider configuration", zap.Error(err))
		os.Exit(1)
	}

	modelResolver := resolver.New(providerRegistry, mem, log)

	// Tool-call ledger
	toolLedger := ledger.New(ledger.NewMemoryStore(), log)

	// Optional web search
	var searchSvc *search.Service
	if cfg.SearchEnabled {
		fn := search.NewHTTPFunc(search.ClientConfig{
			BaseURL:    cfg.SearchBaseURL,
			APIKey:     cfg.SearchAPIKey,
			MaxResults: cfg.SearchMaxResults,
		})
		searchSvc = search.New(fn, registry, toolLedger, mem, log)
	}

	orch := orchestrator.New(modelResolver, registry, mem, toolLedger, searchSvc, cfg.StreamTimeout, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(bridge)
	conversationHandler := handler.NewConversationHandler(mem, mem, toolLedger, log)
	streamHandler := handler.NewStreamHandler(orch, mem, mem, log)
	preferenceHandler := handler.NewPreferenceHandler(mem, providerRegistry, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Delete("/", conversationHandler.Delete)

				r.Get("/messages", conversationHandler.ListMessages)

				// Streaming
				r.Post("/stream", streamHandler.Stream)
			})
		})

		// Model preferences
		r.Route("/preferences/model", func(r chi.Router) {
			r.Get("/", preferenceHandler.Get)
			r.Put("/", preferenceHandler.Set)
		})

		r.Get("/providers", preferenceHandler.Providers)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
