package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"
)

// adminPasswordHeader matches the header checked by the admin middleware.
const adminPasswordHeader = "X-Admin-Password"

// StatusError is returned when the service answers with an unexpected status.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// HTTPClient wraps http.Client with the service base URL and admin password.
type HTTPClient struct {
	client   *http.Client
	baseURL  string
	password string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(config *Config) *HTTPClient {
	return &HTTPClient{
		client:   &http.Client{Timeout: config.Timeout},
		baseURL:  config.BaseURL,
		password: config.AdminPassword,
	}
}

// Do sends body as JSON and decodes the response into out when it is not
// nil. The response status must be one of want.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body, out any, want ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.password != "" {
		req.Header.Set(adminPasswordHeader, c.password)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if len(want) > 0 && !slices.Contains(want, resp.StatusCode) {
		return resp.StatusCode, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response of %s %s after %s: %w", method, path, time.Since(start), err)
		}
	}
	return resp.StatusCode, nil
}
