package mcpsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ultimatequack/healthyduck-go/internal/config"
	"github.com/ultimatequack/healthyduck-go/internal/logging"
	"github.com/ultimatequack/healthyduck-go/internal/mcp"
	"github.com/ultimatequack/healthyduck-go/internal/mcp/tools"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

const metricsShutdownTimeout = 5 * time.Second

// Server is the HealthyDuck MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal        *mcp.Server
	deps            *Deps
	metricsAddr     string
	metricsGatherer prometheus.Gatherer
	logCleanup      func() error
}

// NewServer creates a new MCP server with the builtin HealthyDuck tools and
// resources.
//
// The client parameter is required and provides access to the HealthyDuck API.
// Use functional options to configure logging, add custom tools, etc.
func NewServer(c *client.Client, opts ...Option) (*Server, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}

	cfg := &serverConfig{
		config: config.Load(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logCfg := logging.FromConfig(cfg.config)
	if cfg.logLevel != "" {
		logCfg.Level = cfg.logLevel
	}
	if cfg.logFile != "" {
		logCfg.FilePath = cfg.logFile
	}
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	toolDeps, err := tools.NewDeps(c, cfg.config)
	if err != nil {
		_ = logCleanup()
		return nil, fmt.Errorf("failed to create tool deps: %w", err)
	}

	// Same values, public type
	deps := &Deps{
		Client:   toolDeps.Client,
		Cache:    toolDeps.Cache,
		Config:   toolDeps.Config,
		Location: toolDeps.Location,
	}

	var internalOpts []mcp.ServerOption
	if !cfg.disableBuiltinTools {
		internalOpts = append(internalOpts, mcp.WithBuiltinTools())
	}
	if !cfg.disableBuiltinResources {
		internalOpts = append(internalOpts, mcp.WithBuiltinResources())
	}
	for _, fn := range cfg.toolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.promptRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.resourceRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.deferredToolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			fn(srv, deps)
		}))
	}

	internal, err := mcp.NewServer(toolDeps, internalOpts...)
	if err != nil {
		_ = logCleanup()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	metricsAddr := cfg.config.MetricsAddr
	if cfg.metricsAddr != "" {
		metricsAddr = cfg.metricsAddr
	}
	gatherer := cfg.metricsGatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		internal:        internal,
		deps:            deps,
		metricsAddr:     metricsAddr,
		metricsGatherer: gatherer,
		logCleanup:      logCleanup,
	}, nil
}

// Run starts the MCP server with stdio transport.
// When a metrics address is configured, /metrics is served alongside it.
// The server runs until the context is cancelled or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	if s.metricsAddr == "" {
		return s.internal.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpSrv := &http.Server{
		Addr:              s.metricsAddr,
		Handler:           s.metricsHandler(),
		ReadHeaderTimeout: metricsShutdownTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("serving metrics", slog.String("addr", s.metricsAddr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer stop()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		defer cancel()
		return s.internal.Run(gctx)
	})
	return g.Wait()
}

func (s *Server) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.metricsGatherer, promhttp.HandlerOpts{}))
	return mux
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}

// MCPServer returns the underlying SDK server, for in-process transports.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.internal.MCPServer()
}
