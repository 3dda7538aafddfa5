// Package remote implements the delivery endpoint over the workspace HTTP
// API. It maps 404 and 410 responses to processor.ErrGone so the sweep can
// treat an already-deleted target as satisfied intent.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/roach88/foldersync/internal/processor"
)

// Client talks to the remote workspace API. It implements processor.Remote.
type Client struct {
	base   *url.URL
	http   *http.Client
	token  string
	logger *slog.Logger
}

// Config carries the settings for NewClient.
type Config struct {
	// BaseURL is the API origin, e.g. "https://api.example.com".
	BaseURL string

	// Token, if set, is sent as a bearer token on every request.
	Token string

	// Timeout bounds each request. Zero means 15s.
	Timeout time.Duration

	Logger *slog.Logger // defaults to discard
}

// NewClient creates a client for the given API origin.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q: missing scheme or host", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: cfg.Timeout},
		token:  cfg.Token,
		logger: cfg.Logger,
	}, nil
}

func (c *Client) CreateFolder(ctx context.Context, workspace, folderID, name, parentID string) error {
	return c.do(ctx, http.MethodPost,
		fmt.Sprintf("/v1/workspaces/%s/folders", url.PathEscape(workspace)),
		map[string]any{"id": folderID, "name": name, "parent_id": parentID})
}

func (c *Client) CreateRunbook(ctx context.Context, workspace, runbookID, parentID string) error {
	return c.do(ctx, http.MethodPost,
		fmt.Sprintf("/v1/workspaces/%s/runbooks", url.PathEscape(workspace)),
		map[string]any{"id": runbookID, "parent_id": parentID})
}

func (c *Client) ImportRunbooks(ctx context.Context, workspace string, runbookIDs []string, parentID string) error {
	return c.do(ctx, http.MethodPost,
		fmt.Sprintf("/v1/workspaces/%s/runbooks/import", url.PathEscape(workspace)),
		map[string]any{"ids": runbookIDs, "parent_id": parentID})
}

func (c *Client) RenameFolder(ctx context.Context, workspace, folderID, name string) error {
	return c.do(ctx, http.MethodPatch,
		fmt.Sprintf("/v1/workspaces/%s/folders/%s", url.PathEscape(workspace), url.PathEscape(folderID)),
		map[string]any{"name": name})
}

func (c *Client) DeleteFolder(ctx context.Context, workspace, folderID string) error {
	return c.do(ctx, http.MethodDelete,
		fmt.Sprintf("/v1/workspaces/%s/folders/%s", url.PathEscape(workspace), url.PathEscape(folderID)), nil)
}

func (c *Client) DeleteRunbook(ctx context.Context, workspace, runbookID string) error {
	return c.do(ctx, http.MethodDelete,
		fmt.Sprintf("/v1/workspaces/%s/runbooks/%s", url.PathEscape(workspace), url.PathEscape(runbookID)), nil)
}

func (c *Client) MoveItems(ctx context.Context, workspace string, ids []string, parentID string, index int) error {
	return c.do(ctx, http.MethodPost,
		fmt.Sprintf("/v1/workspaces/%s/items/move", url.PathEscape(workspace)),
		map[string]any{"ids": ids, "parent_id": parentID, "index": index})
}

// Healthy probes the API health endpoint. Used by the connectivity monitor
// to decide when to flip the processor online.
func (c *Client) Healthy(ctx context.Context) bool {
	err := c.do(ctx, http.MethodGet, "/v1/health", nil)
	if err != nil {
		c.logger.Debug("health probe failed", "error", err)
		return false
	}
	return true
}

// do sends one request and folds the response into the delivery error
// contract: nil for 2xx, processor.ErrGone for 404/410, a descriptive
// error otherwise.
func (c *Client) do(ctx context.Context, method, path string, body any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}

	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		io.Copy(io.Discard, resp.Body)
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, processor.ErrGone)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
}
