package mcpsrv

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultimatequack/healthyduck-go/internal/config"
	"github.com/ultimatequack/healthyduck-go/internal/testsupport"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

const testToken = "srv-token"

type countInput struct {
	UserID string `json:"user_id,omitempty"`
}

type countOutput struct {
	Count int `json:"count"`
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		UserID:                  "duck",
		Timezone:                "UTC",
		DataSourceCacheMaxItems: 8,
		QueryMaxResults:         50,
		LogLevel:                "error",
		LogFile:                 filepath.Join(t.TempDir(), "mcp.log"),
	}
}

func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	ct, st := mcp.NewInMemoryTransports()
	ss, err := s.MCPServer().Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	cs, err := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0.0.1"}, nil).Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestNewServer_requiresClient(t *testing.T) {
	_, err := NewServer(nil)
	assert.EqualError(t, err, "client is required")
}

func TestNewServer_invalidTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timezone = "Nowhere/Pond"
	_, err := NewServer(client.New(), WithConfig(cfg))
	assert.ErrorContains(t, err, "failed to create tool deps")
}

func TestNewServer_depsTool(t *testing.T) {
	fit := testsupport.NewFitServer(t, testToken)
	c := client.New(client.WithBaseURL(fit.URL), client.WithAccessToken(testToken))
	_, err := c.CreateDataSource(context.Background(), "duck", client.StepsDataSource("steps:1", "Steps"))
	require.NoError(t, err)

	s, err := NewServer(c,
		WithConfig(testConfig(t)),
		WithoutBuiltinTools(),
		WithoutBuiltinResources(),
		WithDepsTool(
			&mcp.Tool{Name: "count_sources", Description: "Count data sources"},
			func(d *Deps) func(context.Context, *mcp.CallToolRequest, countInput) (*mcp.CallToolResult, countOutput, error) {
				return func(ctx context.Context, _ *mcp.CallToolRequest, in countInput) (*mcp.CallToolResult, countOutput, error) {
					user := in.UserID
					if user == "" {
						user = d.Config.UserID
					}
					sources, err := d.Client.ListDataSources(ctx, user)
					if err != nil {
						return nil, countOutput{}, err
					}
					return nil, countOutput{Count: len(sources)}, nil
				}
			},
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NotNil(t, s.Deps().Cache)
	assert.Equal(t, "UTC", s.Deps().Location.String())

	cs := connect(t, s)
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, "count_sources", res.Tools[0].Name)

	call, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "count_sources", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, call.IsError)
	out, ok := call.StructuredContent.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, out["count"])
}

func TestNewServer_builtinTools(t *testing.T) {
	s, err := NewServer(client.New(), WithConfig(testConfig(t)), WithLogLevel("warn"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	res, err := connect(t, s).ListTools(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, res.Tools, 9)
}

func TestServer_metricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := client.NewMetrics(reg)
	require.NoError(t, err)

	fit := testsupport.NewFitServer(t, testToken)
	c := client.New(client.WithBaseURL(fit.URL), client.WithAccessToken(testToken), client.WithMetrics(metrics))
	_, err = c.ListDataSources(context.Background(), "duck")
	require.NoError(t, err)

	s, err := NewServer(c, WithConfig(testConfig(t)), WithMetricsAddr("127.0.0.1:0"), WithMetricsGatherer(reg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.Equal(t, "127.0.0.1:0", s.metricsAddr)

	ts := httptest.NewServer(s.metricsHandler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthyduck_client_requests_total")
}
