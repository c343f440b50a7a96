// Package client provides an HTTP client for the veridata server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/raphaelgruber/veridata-go/internal/metrics"
	"github.com/raphaelgruber/veridata-go/internal/models"
)

// Client talks to a running veridata server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client. If baseURL is empty, uses the
// VERIDATA_SERVER_URL env var or defaults to localhost:8585. The timeout can
// be configured via VERIDATA_CLIENT_TIMEOUT.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("VERIDATA_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8585"
	}

	timeout := time.Minute
	if t := os.Getenv("VERIDATA_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error: %s - %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("server error: %s", resp.Status)
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Health checks whether the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// StartAnalysis launches a background analysis job and returns its id.
func (c *Client) StartAnalysis(ctx context.Context) (string, error) {
	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/analysis", nil, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// JobInfo fetches a job snapshot with log entries newer than sinceIndex.
// Pass a negative sinceIndex for all retained entries.
func (c *Client) JobInfo(ctx context.Context, jobID string, sinceIndex int) (*models.JobInfo, error) {
	path := "/api/jobs/" + jobID
	if sinceIndex >= 0 {
		path += "?since=" + strconv.Itoa(sinceIndex)
	}

	var info models.JobInfo
	if err := c.do(ctx, http.MethodGet, path, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListJobs fetches all known jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context) ([]models.JobInfo, error) {
	var resp struct {
		Jobs []models.JobInfo `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// CancelJob requests cooperative cancellation of a running job. Returns
// false if the job is unknown or already finished.
func (c *Client) CancelJob(ctx context.Context, jobID string) (bool, error) {
	var resp struct {
		Cancelled bool `json:"cancelled"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+jobID+"/cancel", nil, &resp); err != nil {
		return false, err
	}
	return resp.Cancelled, nil
}

// Stats fetches the server's runtime statistics snapshot.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
