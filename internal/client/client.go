// Package client calls the foliogate HTTP endpoints. It implements the
// password checker and notifier the access gate depends on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/faucetdb/foliogate/internal/model"
)

// APIError is a non-200 response from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to one foliogate server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CheckPassword asks the server whether password matches the secret for
// kind ("project" or "admin").
func (c *Client) CheckPassword(ctx context.Context, password, kind string) (bool, error) {
	var out model.ValidatePasswordResponse
	err := c.post(ctx, "/api/validate-password", model.ValidatePasswordRequest{Password: password, Type: kind}, &out)
	if err != nil {
		return false, err
	}
	return out.Valid, nil
}

// NotifyAccessRequest asks the server to email the administrator about req.
func (c *Client) NotifyAccessRequest(ctx context.Context, req model.AccessRequest, projectTitle string) (string, error) {
	var out model.SendResponse
	err := c.post(ctx, "/api/request-access", model.RequestAccessBody{
		Email:        req.Email,
		ProjectID:    req.ProjectID,
		ProjectTitle: projectTitle,
		Message:      req.Message,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.MessageID, nil
}

// NotifyAccessApproved asks the server to email the access link for tok to
// the requester. tok.Email must be set.
func (c *Client) NotifyAccessApproved(ctx context.Context, tok model.AccessToken, projectTitle string) (string, error) {
	var out model.SendResponse
	err := c.post(ctx, "/api/approve-access", model.ApproveAccessBody{
		Email:        tok.Email,
		ProjectID:    tok.ProjectID,
		ProjectTitle: projectTitle,
		AccessToken:  tok.Value,
		Expires:      tok.Expires,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.MessageID, nil
}

// Healthy reports whether the server answers its health check.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e model.ErrorResponse
		json.Unmarshal(data, &e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
