// Command healthyduck-apitest runs the integration checks against a live
// HealthyDuck server and exits non-zero when any check fails.
//
// The server and harness knobs come from the environment (HEALTHYDUCK_*,
// APITEST_*); a .env file in the working directory is loaded first.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ultimatequack/healthyduck-go/internal/apitest"
	"github.com/ultimatequack/healthyduck-go/internal/config"
	"github.com/ultimatequack/healthyduck-go/internal/logging"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

func main() {
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	envPath, err := config.LoadDotEnv(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config.Load()

	logCleanup, err := logging.Setup(logging.FromConfig(cfg))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to setup logging:", err)
		os.Exit(1)
	}
	if envPath != "" {
		slog.Debug("loaded environment file", slog.String("path", envPath))
	}

	c := client.New(
		client.WithBaseURL(cfg.BaseURL),
		client.WithAccessToken(cfg.AccessToken),
		client.WithTimeout(cfg.HTTPClientTimeout),
	)

	slog.Info("running API checks", slog.String("base_url", c.BaseURL()))
	report := apitest.Run(ctx, c, apitest.ConfigFrom(cfg))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		printReport(os.Stdout, report)
	}

	_ = logCleanup()
	if !report.Passed() {
		os.Exit(1)
	}
}

// printReport writes one line per check followed by a totals line.
func printReport(w io.Writer, r *apitest.Report) {
	fmt.Fprintf(w, "run %s\n", r.RunID)
	for _, res := range r.Results {
		line := fmt.Sprintf("  %-4s  %-20s  %8s", res.Status, res.Name, res.Duration.Round(time.Millisecond))
		if res.Detail != "" {
			line += "  " + res.Detail
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%d passed, %d failed, %d skipped\n",
		r.Count(apitest.StatusPass), r.Count(apitest.StatusFail), r.Count(apitest.StatusSkip))
}
