package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shoplist/adminapi/internal/catalog"
)

const (
	endpointsURI        = "adminapi://endpoints"
	endpointURIPrefix   = "adminapi://endpoints/"
	endpointURITemplate = "adminapi://endpoints/{id}"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	// -------------------------------------------------------------------
	// adminapi://endpoints: the full endpoint catalogue
	// -------------------------------------------------------------------
	srv.AddResource(
		mcp.NewResource(
			endpointsURI,
			"Endpoint Catalogue",
			mcp.WithResourceDescription(
				"Every API endpoint with the permission identifier that API keys "+
					"reference, grouped by category.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleEndpointsResource,
	)

	// -------------------------------------------------------------------
	// adminapi://endpoints/{id}: one catalogue entry (template)
	// -------------------------------------------------------------------
	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			endpointURITemplate,
			"Endpoint",
			mcp.WithTemplateDescription("A single catalogue entry looked up by its permission identifier."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleEndpointResource,
	)
}

func (s *MCPServer) handleEndpointsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	return jsonResource(endpointsURI, catalog.Grouped())
}

func (s *MCPServer) handleEndpointResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, endpointURIPrefix)
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid endpoint URI %q: expected %s", uri, endpointURITemplate)
	}

	e, ok := catalog.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("endpoint %q not found", id)
	}
	return jsonResource(uri, e)
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
