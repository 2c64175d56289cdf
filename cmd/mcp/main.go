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
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sanctumos/code-buddy/common/id"
	"github.com/sanctumos/code-buddy/common/logger"
	"github.com/sanctumos/code-buddy/common/otel"
	"github.com/sanctumos/code-buddy/core/config"
	"github.com/sanctumos/code-buddy/internal/http/middleware"
	"github.com/sanctumos/code-buddy/internal/mcp"
	"github.com/sanctumos/code-buddy/internal/service"
	"github.com/sanctumos/code-buddy/internal/store"
)

const serverVersion = "1.0.0"

func main() {
	var (
		host          string
		port          string
		allowExternal bool
	)

	root := &cobra.Command{
		Use:   "code-buddy-mcp",
		Short: "MCP tool server exposing the GitHub event log to agents",
		Long: `Serves the shared event log over the Model Context Protocol (SSE transport).
Reads the same JSON file the webhook server writes, so it can run as a
separate process and still see every stored event.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.ServiceTypeMCP)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if cmd.Flags().Changed("host") {
				cfg.MCP.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.MCP.Port = port
			}
			if allowExternal {
				cfg.MCP.Host = "0.0.0.0"
			}

			return run(cmd.Context(), cfg, allowExternal)
		},
	}

	root.Flags().StringVar(&host, "host", "", "host to bind (overrides MCP_HOST)")
	root.Flags().StringVar(&port, "port", "", "port to bind (overrides MCP_PORT)")
	root.Flags().BoolVar(&allowExternal, "allow-external", false, "bind 0.0.0.0 to accept external connections")

	if err := root.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, allowExternal bool) error {
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("initialize otel: %w", err)
	}

	logger.Setup(cfg)

	if err := id.Init(2); err != nil {
		return fmt.Errorf("init snowflake id generator: %w", err)
	}

	if allowExternal {
		slog.WarnContext(ctx, "binding all interfaces, the event log is exposed to the network", "host", cfg.MCP.Host)
	}

	eventLog := store.NewEventLog(cfg.Store.File, cfg.Store.MaxSize, slog.Default())
	slog.InfoContext(ctx, "event log opened", "file", cfg.Store.File, "loaded", eventLog.Len())

	// This process only reads. Reloading before every tool call keeps it
	// current with whatever the webhook server has flushed since.
	queries := service.NewEventQueryService(eventLog, service.WithReloadOnRead())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	mcpServer := mcp.NewServer("code-buddy", serverVersion, mcp.EventTools(queries), slog.Default())
	mcpServer.Register(router)

	addr := cfg.MCP.Host + ":" + cfg.MCP.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "mcp server starting", "addr", addr, "sse", "/sse")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("mcp server: %w", err)
	case <-quit:
	}

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "mcp server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
	return nil
}
