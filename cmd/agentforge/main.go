package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	afhttp "github.com/Strob0t/AgentForge/internal/adapter/http"
	"github.com/Strob0t/AgentForge/internal/adapter/litellm"
	"github.com/Strob0t/AgentForge/internal/adapter/localproc"
	"github.com/Strob0t/AgentForge/internal/adapter/otel"
	"github.com/Strob0t/AgentForge/internal/adapter/postgres"
	"github.com/Strob0t/AgentForge/internal/adapter/registryfile"
	"github.com/Strob0t/AgentForge/internal/adapter/ristretto"
	"github.com/Strob0t/AgentForge/internal/adapter/runtimefs"
	"github.com/Strob0t/AgentForge/internal/adapter/zapier"
	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/logger"
	"github.com/Strob0t/AgentForge/internal/middleware"
	"github.com/Strob0t/AgentForge/internal/port/registry"
	"github.com/Strob0t/AgentForge/internal/resilience"
	"github.com/Strob0t/AgentForge/internal/secrets"
	"github.com/Strob0t/AgentForge/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"registry_backend", cfg.Registry.Backend,
		"deploy_ports", fmt.Sprintf("%d-%d", cfg.Deploy.BasePort, cfg.Deploy.MaxPort),
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := otel.Setup(ctx, cfg.Otel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Registry backend ---
	var store registry.Store
	switch cfg.Registry.Backend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		store = postgres.NewStore(pool)
		slog.Info("postgres registry ready")
	default:
		fileStore, err := registryfile.New(cfg.Registry.Path)
		if err != nil {
			return fmt.Errorf("registry file: %w", err)
		}
		store = fileStore
		slog.Info("file registry ready", "path", cfg.Registry.Path)
	}

	// --- Upstream clients ---
	llmBreaker := resilience.NewBreaker("litellm", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	llmClient := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.APIKey, cfg.LiteLLM.Model, cfg.LiteLLM.Timeout)
	llmClient.SetBreaker(llmBreaker)

	zapBreaker := resilience.NewBreaker("zapier", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	catalogClient := zapier.NewClient(cfg.Zapier.URL, cfg.Zapier.APIKey, cfg.Zapier.Timeout)
	catalogClient.SetBreaker(zapBreaker)

	catalogCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer catalogCache.Close()

	// --- Runtime state ---
	logs, err := runtimefs.NewLogs(cfg.Deploy.RuntimeDir)
	if err != nil {
		return fmt.Errorf("runtime logs: %w", err)
	}
	callMetrics, err := runtimefs.NewMetrics(cfg.Deploy.RuntimeDir)
	if err != nil {
		return fmt.Errorf("runtime metrics: %w", err)
	}

	// Credentials forwarded into every deployed agent's environment.
	creds, err := secrets.NewVault(secrets.EnvLoader("ZAPIER_NLA_API_KEY"))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}

	// --- Services ---
	alloc := service.NewPortAllocator(cfg.Deploy.BasePort, cfg.Deploy.MaxPort)
	deployer := service.NewDeployerService(store, localproc.New(), alloc, logs, callMetrics, cfg.Deploy, cfg.LiteLLM, creds, log)
	agents := service.NewAgentsService(
		service.NewExtractorService(llmClient, log),
		service.NewDesignerService(log),
		service.NewSelectorService(catalogClient, catalogCache, llmClient, cfg.Cache.CatalogTTL, log),
		service.NewMaterializerService(log),
		deployer,
		store,
		callMetrics,
		metrics,
		log,
	)

	// Bring previously running agents back up.
	if err := deployer.RelaunchAll(ctx); err != nil {
		slog.Warn("startup relaunch incomplete", "error", err)
	}

	// --- HTTP ---
	handlers := &afhttp.Handlers{
		Agents:   agents,
		Logs:     logs,
		Metrics:  callMetrics,
		Breakers: []*resilience.Breaker{llmBreaker, zapBreaker},
	}

	r := chi.NewRouter()
	r.Use(afhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(afhttp.SecurityHeaders)
	r.Use(afhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(2 * time.Minute))
	if cfg.Otel.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}

	afhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
