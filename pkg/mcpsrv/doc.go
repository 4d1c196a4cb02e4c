// Package mcpsrv provides an extensible MCP server for HealthyDuck.
//
// The server exposes the builtin HealthyDuck tools (data sources, sessions,
// profile, step analysis and aggregate queries) and the healthyduck://
// resource templates. Callers can add their own tools, prompts and resources
// with functional options.
//
// # Basic Usage
//
//	c := client.New(
//	    client.WithBaseURL("http://localhost:3000"),
//	    client.WithAccessToken(token),
//	)
//	server, err := mcpsrv.NewServer(c)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//	server.Run(ctx)
//
// # Extension
//
// Tools that need the shared client or cache use [WithDepsTool]:
//
//	type WeekInput struct {
//	    Week int `json:"week"`
//	}
//
//	type WeekOutput struct {
//	    Steps int64 `json:"steps"`
//	}
//
//	server, err := mcpsrv.NewServer(c,
//	    mcpsrv.WithDepsTool(
//	        &mcp.Tool{Name: "week_steps", Description: "Steps in an ISO week"},
//	        func(d *mcpsrv.Deps) func(context.Context, *mcp.CallToolRequest, WeekInput) (*mcp.CallToolResult, WeekOutput, error) {
//	            return func(ctx context.Context, _ *mcp.CallToolRequest, in WeekInput) (*mcp.CallToolResult, WeekOutput, error) {
//	                // query d.Client here
//	                return nil, WeekOutput{}, nil
//	            }
//	        },
//	    ),
//	)
//
// # Configuration
//
// Configuration is read from the environment (see the config package) and
// can be overridden with options:
//
//	server, err := mcpsrv.NewServer(c,
//	    mcpsrv.WithLogLevel("debug"),
//	    mcpsrv.WithLogFile("/var/log/healthyduck-mcp.log"),
//	    mcpsrv.WithMetricsAddr(":9090"),
//	)
package mcpsrv
