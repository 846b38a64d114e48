package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	projectsURI        = "foliogate://projects"
	projectURIPrefix   = "foliogate://project/"
	projectURITemplate = projectURIPrefix + "{slug}"
)

// registerResources adds the read-only project views.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			projectsURI,
			"Portfolio Projects",
			mcp.WithResourceDescription("Every catalogued project with its title and whether it is password protected."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleProjectsResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			projectURITemplate,
			"Project Access",
			mcp.WithTemplateDescription("Pending requests and live tokens for one project."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleProjectResource,
	)
}

func (s *MCPServer) handleProjectsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	var items []ProjectInfo
	if s.projects != nil {
		items = s.projects()
	}
	if items == nil {
		items = []ProjectInfo{}
	}
	return jsonResource(projectsURI, items)
}

func (s *MCPServer) handleProjectResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	slug := strings.TrimPrefix(uri, projectURIPrefix)
	if slug == "" || slug == uri {
		return nil, fmt.Errorf("invalid project URI %q: expected %s", uri, projectURITemplate)
	}

	pending, err := s.approval.ListPending(ctx, slug)
	if err != nil {
		return nil, err
	}
	tokens, err := s.access.ListTokens(ctx, slug)
	if err != nil {
		return nil, err
	}
	now := s.access.Clock().Now()

	reqs := make([]requestView, len(pending))
	for i, r := range pending {
		reqs[i] = viewRequest(r)
	}
	live := []tokenView{}
	for _, t := range tokens {
		if t.ValidAt(now) {
			live = append(live, viewToken(t))
		}
	}

	info := map[string]interface{}{
		"slug":           slug,
		"pending":        reqs,
		"tokens":         live,
		"has_live_token": len(live) > 0,
	}
	if s.catalog != nil {
		info["title"] = s.catalog.Title(slug)
		info["protected"] = s.catalog.IsProtected(slug)
	}
	return jsonResource(uri, info)
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
