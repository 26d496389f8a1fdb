// Package engine holds the HTTP client for the external analysis engine's
// status endpoint. The engine is an external collaborator: how it scans is
// out of scope here, its only surface is the status query the poller drives.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client queries the engine's scan status endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a status client rooted at the engine's base URL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("engine base URL must not be empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("engine_client"),
	}, nil
}

type statusResponse struct {
	Status string `json:"status"`
}

// JobStatus returns the engine's current status string for the scan. Errors
// here are transient from the poller's perspective; it retries on the next
// tick.
func (c *Client) JobStatus(ctx context.Context, scanID string) (string, error) {
	url := fmt.Sprintf("%s/scans/%s/status", c.baseURL, scanID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("status query failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("failed to read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var sr statusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("failed to decode status response: %w", err)
	}
	if sr.Status == "" {
		return "", fmt.Errorf("status endpoint returned empty status")
	}

	c.logger.Debug("Engine status observed",
		zap.String("scan_id", scanID), zap.String("status", sr.Status))
	return sr.Status, nil
}
