package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/foliogate/internal/mailer"
	"github.com/faucetdb/foliogate/internal/service"
)

// registerTools registers the administrator tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Requests -----

	srv.AddTool(
		mcp.NewTool("foliogate_list_requests",
			mcp.WithDescription(
				"List access requests, newest first. By default only pending requests "+
					"are returned. Use the id of a request with foliogate_approve_request "+
					"or foliogate_reject_request.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("project",
				mcp.Description("Only list requests for this project slug"),
			),
			mcp.WithString("status",
				mcp.Description("pending (default) or all"),
				mcp.Enum("pending", "all"),
			),
		),
		s.handleListRequests,
	)

	srv.AddTool(
		mcp.NewTool("foliogate_approve_request",
			mcp.WithDescription(
				"Approve a pending access request. Mints an access token for the "+
					"requester and, unless send_email is false, emails them the access "+
					"link. Returns the link so it can be shared by hand if email fails.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Request id from foliogate_list_requests"),
			),
			mcp.WithNumber("expiry_hours",
				mcp.Description("Token lifetime: 1, 4, 24 (default), 72 or 168 hours"),
			),
			mcp.WithBoolean("send_email",
				mcp.Description("Email the access link to the requester (default true)"),
			),
		),
		s.handleApproveRequest,
	)

	srv.AddTool(
		mcp.NewTool("foliogate_reject_request",
			mcp.WithDescription("Reject a pending access request. No email is sent."),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Request id from foliogate_list_requests"),
			),
		),
		s.handleRejectRequest,
	)

	// ----- Tokens -----

	srv.AddTool(
		mcp.NewTool("foliogate_list_tokens",
			mcp.WithDescription(
				"List stored access tokens. Only the first characters of each token "+
					"are shown. Expired tokens stay listed until purged.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("project",
				mcp.Description("Only list tokens for this project slug"),
			),
		),
		s.handleListTokens,
	)

	srv.AddTool(
		mcp.NewTool("foliogate_revoke_token",
			mcp.WithDescription("Delete one access token so it no longer unlocks its project."),
			mcp.WithToolAnnotation(destructiveAnnotation()),
			mcp.WithString("token",
				mcp.Required(),
				mcp.Description("Token value or an unambiguous prefix from foliogate_list_tokens"),
			),
		),
		s.handleRevokeToken,
	)

	srv.AddTool(
		mcp.NewTool("foliogate_purge_expired",
			mcp.WithDescription("Remove every expired access token. Returns how many were removed."),
			mcp.WithToolAnnotation(destructiveAnnotation()),
		),
		s.handlePurgeExpired,
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

func (s *MCPServer) handleListRequests(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	pendingOnly := true
	switch optionalString(request, "status") {
	case "", "pending":
	case "all":
		pendingOnly = false
	default:
		return toolError("status must be pending or all")
	}

	reqs, err := s.approval.ListRequests(ctx, optionalString(request, "project"), pendingOnly)
	if err != nil {
		return toolError("Failed to list requests: %v", err)
	}
	items := make([]requestView, len(reqs))
	for i, r := range reqs {
		items[i] = viewRequest(r)
	}
	return successJSON(map[string]interface{}{
		"count":    len(items),
		"requests": items,
	})
}

func (s *MCPServer) handleApproveRequest(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireString(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	hours := optionalInt(request, "expiry_hours", service.DefaultExpiryHours)
	sendEmail := optionalBool(request, "send_email", true)

	a, err := s.approval.Approve(ctx, id, hours)
	switch {
	case errors.Is(err, service.ErrInvalidExpiry):
		return toolError("expiry_hours must be one of %v", service.ExpiryOptions)
	case service.IsNotFound(err):
		return toolError("Request %q not found", id)
	case service.IsResolved(err):
		return toolError("Request %q is no longer pending", id)
	case err != nil:
		return toolError("Failed to approve request: %v", err)
	}

	result := map[string]interface{}{
		"request":     viewRequest(a.Request),
		"token":       viewToken(a.Token),
		"access_link": mailer.AccessLink(s.opts.SiteURL, a.Token.ProjectID, a.Token.Value),
		"emailed":     false,
	}
	if sendEmail {
		msgID, err := s.approval.Deliver(ctx, a)
		if err != nil {
			result["notice"] = service.NoticeApprovalNotSent
			result["email_error"] = err.Error()
		} else {
			result["emailed"] = true
			result["message_id"] = msgID
		}
	}
	return successJSON(result)
}

func (s *MCPServer) handleRejectRequest(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireString(request, "id")
	if err != nil {
		return toolError("%v", err)
	}
	req, err := s.approval.Reject(ctx, id)
	switch {
	case service.IsNotFound(err):
		return toolError("Request %q not found", id)
	case service.IsResolved(err):
		return toolError("Request %q is no longer pending", id)
	case err != nil:
		return toolError("Failed to reject request: %v", err)
	}
	return successJSON(viewRequest(req))
}

func (s *MCPServer) handleListTokens(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	tokens, err := s.access.ListTokens(ctx, optionalString(request, "project"))
	if err != nil {
		return toolError("Failed to list tokens: %v", err)
	}
	now := s.access.Clock().Now()

	type item struct {
		tokenView
		Valid bool `json:"valid"`
	}
	items := make([]item, len(tokens))
	for i, t := range tokens {
		items[i] = item{tokenView: viewToken(t), Valid: t.ValidAt(now)}
	}
	return successJSON(map[string]interface{}{
		"count":  len(items),
		"tokens": items,
	})
}

func (s *MCPServer) handleRevokeToken(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	prefix, err := requireString(request, "token")
	if err != nil {
		return toolError("%v", err)
	}
	tok, err := s.access.FindToken(ctx, prefix)
	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		return toolError("No token starts with %q", prefix)
	case errors.Is(err, service.ErrAmbiguousToken):
		return toolError("%q matches more than one token; give more characters", prefix)
	case err != nil:
		return toolError("Failed to find token: %v", err)
	}
	if _, err := s.access.RevokeToken(ctx, tok.Value); err != nil {
		return toolError("Failed to revoke token: %v", err)
	}
	s.logger.Info("token revoked via MCP", "project", tok.ProjectID, "prefix", tok.Prefix())
	return successJSON(map[string]interface{}{
		"revoked": viewToken(tok),
	})
}

func (s *MCPServer) handlePurgeExpired(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	n, err := s.access.CleanupExpired(ctx)
	if err != nil {
		return toolError("Failed to purge tokens: %v", err)
	}
	return successJSON(map[string]int{"removed": n})
}
