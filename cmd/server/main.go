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

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sanctumos/code-buddy/common/id"
	"github.com/sanctumos/code-buddy/common/logger"
	"github.com/sanctumos/code-buddy/common/otel"
	"github.com/sanctumos/code-buddy/core/config"
	"github.com/sanctumos/code-buddy/internal/agent"
	"github.com/sanctumos/code-buddy/internal/http/middleware"
	httprouter "github.com/sanctumos/code-buddy/internal/http/router"
	"github.com/sanctumos/code-buddy/internal/mapper"
	"github.com/sanctumos/code-buddy/internal/metrics"
	"github.com/sanctumos/code-buddy/internal/service"
	"github.com/sanctumos/code-buddy/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "code-buddy starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	eventLog := store.NewEventLog(cfg.Store.File, cfg.Store.MaxSize, slog.Default())
	slog.InfoContext(ctx, "event log ready", "file", cfg.Store.File, "max_size", cfg.Store.MaxSize, "loaded", eventLog.Len())

	var notifier agent.Notifier
	if cfg.Letta.Enabled() {
		letta, err := agent.NewLettaClient(cfg.Letta, slog.Default())
		if err != nil {
			slog.ErrorContext(ctx, "failed to initialize letta client", "error", err)
			os.Exit(1)
		}
		notifier = letta
		slog.InfoContext(ctx, "letta notifications enabled", "agent_id", cfg.Letta.AgentID)
	} else {
		slog.InfoContext(ctx, "letta notifications disabled (no base url or agent id configured)")
	}

	m := metrics.New()
	verifier := service.NewSignatureVerifier(cfg.Webhook.Secret, slog.Default())
	filter := service.NewAdmissionFilter(slog.Default())
	eventMapper := mapper.NewGitHubEventMapper(slog.Default())
	eventIngest := service.NewEventIngestService(eventMapper, filter, eventLog, notifier, m, slog.Default())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, verifier, eventIngest, m)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, verifier service.SignatureVerifier, eventIngest service.EventIngestService, m *metrics.Metrics) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, verifier, eventIngest, m, httprouter.RouterConfig{
		Environment:      cfg.Env,
		SecretConfigured: cfg.Webhook.Secret != "",
	})

	return router
}

const banner = `
 ██████╗ ██████╗ ██████╗ ███████╗    ██████╗ ██╗   ██╗██████╗ ██████╗ ██╗   ██╗
██╔════╝██╔═══██╗██╔══██╗██╔════╝    ██╔══██╗██║   ██║██╔══██╗██╔══██╗╚██╗ ██╔╝
██║     ██║   ██║██║  ██║█████╗      ██████╔╝██║   ██║██║  ██║██║  ██║ ╚████╔╝
██║     ██║   ██║██║  ██║██╔══╝      ██╔══██╗██║   ██║██║  ██║██║  ██║  ╚██╔╝
╚██████╗╚██████╔╝██████╔╝███████╗    ██████╔╝╚██████╔╝██████╔╝██████╔╝   ██║
 ╚═════╝ ╚═════╝ ╚═════╝ ╚══════╝    ╚═════╝  ╚═════╝ ╚═════╝ ╚═════╝    ╚═╝
`
