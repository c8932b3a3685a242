// Package main is the entrypoint for the PersonaLens API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/personalens/personalens/internal/api"
	"github.com/personalens/personalens/internal/api/handler"
	mw "github.com/personalens/personalens/internal/api/middleware"
	"github.com/personalens/personalens/internal/api/response"
	"github.com/personalens/personalens/internal/cache"
	"github.com/personalens/personalens/internal/config"
	"github.com/personalens/personalens/internal/llm"
	"github.com/personalens/personalens/internal/mail"
	"github.com/personalens/personalens/internal/orchestrator"
	"github.com/personalens/personalens/internal/scrape"
	"github.com/personalens/personalens/internal/store"
	"github.com/personalens/personalens/internal/worker"
	"github.com/personalens/personalens/pkg/models"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"llm_provider", cfg.LLM.Provider,
		"policy", cfg.Orchestrator.Policy,
		"env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store and vendor clients
	pgStore := store.NewPostgresStore(pool)

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}
	slog.Info("LLM provider initialized", "provider", provider.Name())

	mailer := mail.NewResendMailer(cfg.Mail)

	// 6. Build workers and orchestrator
	websiteWorker := worker.NewWebsiteWorker(scrape.NewFirecrawlClient(cfg.Scrape.Firecrawl), pgStore)
	amazonWorker := worker.NewAmazonWorker(scrape.NewScrapeOwlClient(cfg.Scrape.ScrapeOwl), pgStore)
	redditWorker := worker.NewRedditWorker(scrape.NewRedditClient(cfg.Scrape.Reddit), pgStore)
	youtubeWorker := worker.NewYouTubeWorker(scrape.NewYouTubeClient(cfg.Scrape.YouTube), pgStore)
	personaWorker := worker.NewPersonaWorker(pgStore, provider, cfg.LLM.InferenceTimeout)

	dataWorkers := []worker.Worker{websiteWorker, amazonWorker, redditWorker, youtubeWorker}

	orch := orchestrator.New(pgStore, redisCache, mailer, dataWorkers, personaWorker,
		orchestrator.Policy(cfg.Orchestrator.Policy), cfg.Orchestrator.WorkerTimeout)

	workerRegistry := map[string]worker.Worker{
		models.DataTypeWebsite: websiteWorker,
		models.DataTypeAmazon:  amazonWorker,
		models.DataTypeReddit:  redditWorker,
		models.DataTypeYouTube: youtubeWorker,
		models.DataTypePersona: personaWorker,
	}

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(cfg.Auth.WorkerToken),
		RateLimit: mw.NewRateLimit(redisCache, 60),

		HealthHandler:     healthHandler(pgStore, redisCache),
		CreateJobHandler:  handler.NewCreateJobHandler(pgStore, orch),
		JobStatusHandler:  handler.NewJobStatusHandler(pgStore, redisCache, orch),
		GetPersonaHandler: handler.NewGetPersonaHandler(pgStore),

		TriggerWorkerHandler: handler.NewTriggerWorkerHandler(pgStore, workerRegistry),
		ListStuckHandler:     handler.NewListStuckJobsHandler(pgStore),
		RequeueHandler:       handler.NewRequeueJobHandler(orch),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
