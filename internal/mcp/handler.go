package mcp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/faucetdb/foliogate/internal/model"
)

// requireString extracts a required string argument from the tool request.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil || val == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

func optionalString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

func optionalInt(request mcp.CallToolRequest, key string, defaultVal int) int {
	return request.GetInt(key, defaultVal)
}

func optionalBool(request mcp.CallToolRequest, key string, defaultVal bool) bool {
	return request.GetBool(key, defaultVal)
}

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns an error the client can read and act on. It does not end
// the session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// tokenView hides all but the prefix of a token value.
type tokenView struct {
	Prefix    string `json:"prefix"`
	ProjectID string `json:"project_id"`
	Email     string `json:"email,omitempty"`
	Expires   string `json:"expires"`
}

func viewToken(t model.AccessToken) tokenView {
	return tokenView{
		Prefix:    t.Prefix(),
		ProjectID: t.ProjectID,
		Email:     t.Email,
		Expires:   t.ExpiresAt().UTC().Format(time.RFC3339),
	}
}

type requestView struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Email     string `json:"email"`
	Message   string `json:"message,omitempty"`
	Status    string `json:"status"`
	Created   string `json:"created"`
}

func viewRequest(r model.AccessRequest) requestView {
	return requestView{
		ID:        r.ID,
		ProjectID: r.ProjectID,
		Email:     r.Email,
		Message:   r.Message,
		Status:    string(r.Status),
		Created:   r.CreatedAt().UTC().Format(time.RFC3339),
	}
}
