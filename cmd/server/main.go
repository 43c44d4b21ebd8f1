// Orchestration server for the two-condition dialogue experiment.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/affectlab/xai-dialogue/internal/api"
	"github.com/affectlab/xai-dialogue/internal/config"
	"github.com/affectlab/xai-dialogue/internal/dialogue"
	"github.com/affectlab/xai-dialogue/internal/llm"
	"github.com/affectlab/xai-dialogue/internal/middleware"
	"github.com/affectlab/xai-dialogue/internal/protocol"
	"github.com/affectlab/xai-dialogue/internal/record"
	"github.com/affectlab/xai-dialogue/internal/sentiment"
	"github.com/affectlab/xai-dialogue/internal/session"
	"github.com/affectlab/xai-dialogue/internal/store"
	"github.com/affectlab/xai-dialogue/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port,
		"chat_model", cfg.LLM.ChatModel, "aux_model", cfg.LLM.AuxModel)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	events, err := record.NewEventLogger(record.LogConfig{
		Enabled:   cfg.EventLog.Enabled,
		Dir:       cfg.EventLog.Dir,
		QueueSize: cfg.EventLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize event logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := events.Close(); closeErr != nil {
			slog.Error("Failed to close event logger", "error", closeErr)
		}
	}()

	contacts, err := record.NewContactBook(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize contact book", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	backend := llm.NewClient(llm.ClientConfig{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		ChatModel: cfg.LLM.ChatModel,
		AuxModel:  cfg.LLM.AuxModel,
	}, logger)
	analyzer := sentiment.NewAnalyzer(backend, logger)
	sessions := session.NewManager()
	streamer := dialogue.NewStreamer(sessions, backend, analyzer, repo, events, cfg.SummaryInterval, logger)
	proto := protocol.New(repo, cfg.WashoutMinDwell)
	renderer := web.NewRenderer(cfg.StaticDir, logger)

	// Initialize handlers.
	handler := api.NewHandler(repo, proto, sessions, streamer, analyzer, renderer, contacts, events, logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	handler.RegisterRoutes(r)
	r.Handle("/assets/*", renderer.AssetsHandler("/assets/"))

	// Streaming chat responses need an unbounded write window.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
