// Package backlab provides a Go SDK for interacting with the backlab-server
// API.
package backlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"backlab/internal/backtest"
	"backlab/internal/httpapi"
	"backlab/internal/store"
)

// Client is an HTTP client for the backlab-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backlab API client for the given server base URL,
// e.g. "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Run holds one persisted backtest run: its summary row and full result.
type Run struct {
	Summary *store.RunSummary `json:"summary"`
	Result  *backtest.Result  `json:"result"`
}

// RunBacktest executes a backtest on the server and returns the run ID plus
// the full result record.
func (c *Client) RunBacktest(ctx context.Context, req httpapi.BacktestRequest) (*httpapi.BacktestResponse, error) {
	var resp httpapi.BacktestResponse
	if err := c.do(ctx, http.MethodPost, "/api/backtest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRuns retrieves persisted run summaries, newest first. limit <= 0 uses
// the server default.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error) {
	path := "/api/runs"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var runs []store.RunSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun retrieves one run by ID, including the full stored result.
func (c *Client) GetRun(ctx context.Context, id int64) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/runs/%d", id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListSymbols retrieves the symbols with stored bar data for the given
// timeframe. An empty timeframe uses the server default.
func (c *Client) ListSymbols(ctx context.Context, timeframe string) ([]string, error) {
	path := "/api/symbols"
	if timeframe != "" {
		path += "?timeframe=" + timeframe
	}
	var resp httpapi.SymbolsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Symbols, nil
}

// ListStrategies retrieves the registered strategy names.
func (c *Client) ListStrategies(ctx context.Context) ([]string, error) {
	var resp httpapi.StrategiesResponse
	if err := c.do(ctx, http.MethodGet, "/api/strategies", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// Health reports whether the server is reachable and healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// do performs one JSON request/response round trip. Non-2xx responses are
// surfaced as errors carrying the server's error message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
