// Command healthyduck queries and exports HealthyDuck fitness data.
//
// Usage:
//
//	healthyduck <command> [flags]
//
// Commands:
//
//	sources    list data sources
//	sessions   list sessions in a window
//	aggregate  run a bucketed aggregate query
//	summary    step and workout summary
//	trends     weekly step statistics
//	patterns   preferred workout hours, days and activities
//	export     write daily steps and sessions to an .xlsx file
//	import     bulk insert step counts from a CSV file
//
// Connection and logging settings come from the environment (see the config
// package); a .env file in the working directory is loaded first.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ultimatequack/healthyduck-go/internal/config"
	"github.com/ultimatequack/healthyduck-go/internal/logging"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if _, err := config.LoadDotEnv("."); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config.Load()

	logCleanup, err := logging.Setup(logging.FromConfig(cfg))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to setup logging:", err)
		os.Exit(1)
	}
	defer logCleanup()

	c := client.New(
		client.WithBaseURL(cfg.BaseURL),
		client.WithAccessToken(cfg.AccessToken),
		client.WithTimeout(cfg.HTTPClientTimeout),
	)

	a, err := newApp(c, cfg, os.Stdout)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		slog.Error("command failed", "error", err)
		logCleanup()
		os.Exit(1)
	}
}
