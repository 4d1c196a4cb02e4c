package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ultimatequack/healthyduck-go/internal/config"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
	"github.com/ultimatequack/healthyduck-go/pkg/mcpsrv"
)

func main() {
	// Set up context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if _, err := config.LoadDotEnv("."); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Configuration is loaded from environment variables:
	// - HEALTHYDUCK_BASE_URL, HEALTHYDUCK_ACCESS_TOKEN, HEALTHYDUCK_USER_ID
	// - LOG_LEVEL, LOG_FILE (stdout carries the MCP protocol)
	// - METRICS_ADDR: serve Prometheus metrics when set
	// - etc. (see internal/config for all options)
	cfg := config.Load()

	opts := []client.Option{
		client.WithBaseURL(cfg.BaseURL),
		client.WithAccessToken(cfg.AccessToken),
		client.WithTimeout(cfg.HTTPClientTimeout),
	}
	if cfg.MetricsAddr != "" {
		metrics, err := client.NewMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to register metrics:", err)
			os.Exit(1)
		}
		opts = append(opts, client.WithMetrics(metrics))
	}

	server, err := mcpsrv.NewServer(client.New(opts...), mcpsrv.WithConfig(cfg))
	if err != nil {
		slog.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}
	defer server.Close()

	// Run the server with stdio transport
	slog.Info("starting HealthyDuck MCP server on stdio", slog.String("base_url", cfg.BaseURL))
	if err := server.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
