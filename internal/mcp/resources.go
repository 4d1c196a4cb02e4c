package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ultimatequack/healthyduck-go/internal/mcp/tools"
	"github.com/ultimatequack/healthyduck-go/pkg/client"
)

// Resource URI scheme: healthyduck://
// Supported URIs:
//   healthyduck://profile/{user}
//   healthyduck://datasource/{user}/{id}
//   healthyduck://session/{user}/{id}

const resourceScheme = "healthyduck://"

// registerResources registers resource templates and handlers.
func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: resourceScheme + "profile/{user}",
		Name:        "User Profile",
		Description: "Profile and record counts of a user, as returned by the API.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.5,
		},
	}, s.handleResourceProfile)

	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: resourceScheme + "datasource/{user}/{id}",
		Name:        "Data Source",
		Description: "Full data source descriptor in wire format, including data type fields and device. The healthyduck_get_data_source tool returns a summary.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.4,
		},
	}, s.handleResourceDataSource)

	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: resourceScheme + "session/{user}/{id}",
		Name:        "Session",
		Description: "One activity session in wire format.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.4,
		},
	}, s.handleResourceSession)
}

// Resource handlers

func (s *Server) handleResourceProfile(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	profile, err := s.deps.Client.GetProfile(ctx, params["user"])
	if err != nil {
		return nil, tools.WrapAPIError(err)
	}
	return toResourceResult(req.Params.URI, profile)
}

func (s *Server) handleResourceDataSource(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	ds, err := s.deps.FetchDataSource(ctx, params["user"], params["id"])
	if err != nil {
		if client.IsNotFound(err) {
			return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, tools.WrapAPIError(err)
	}
	return toResourceResult(req.Params.URI, ds)
}

func (s *Server) handleResourceSession(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	session, err := s.deps.Client.GetSession(ctx, params["user"], params["id"])
	if err != nil {
		if client.IsNotFound(err) {
			return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, tools.WrapAPIError(err)
	}
	return toResourceResult(req.Params.URI, session)
}

// Helper functions

// parseResourceURI extracts parameters from a healthyduck:// URI.
// Path segments are unescaped.
func parseResourceURI(uri string) (map[string]string, error) {
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, tools.ErrInvalidInput("invalid URI scheme: expected " + resourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")
	for i, p := range parts {
		unescaped, err := url.PathUnescape(p)
		if err != nil {
			return nil, tools.ErrInvalidInput(fmt.Sprintf("invalid URI segment %q", p))
		}
		parts[i] = unescaped
	}

	params := make(map[string]string)
	switch resourceType := parts[0]; resourceType {
	case "profile":
		if len(parts) < 2 || parts[1] == "" {
			return nil, tools.ErrInvalidInput("profile URI requires a user ID")
		}
		params["user"] = parts[1]

	case "datasource", "session":
		if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
			return nil, tools.ErrInvalidInput(resourceType + " URI requires user and resource ID")
		}
		params["user"] = parts[1]
		params["id"] = parts[2]

	default:
		return nil, tools.ErrInvalidInput(fmt.Sprintf("unknown resource type: %s", resourceType))
	}

	return params, nil
}

// toResourceResult serializes content to a ReadResourceResult.
func toResourceResult(uri string, content any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}, nil
}
