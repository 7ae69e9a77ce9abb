package sendtool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const traceHeader = "trace-id"

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// PostConversion submits one event to the relay and decodes the outcome.
func (c *HTTPClient) PostConversion(ctx context.Context, url string, event map[string]any, traceID string) (*AckResponse, *ErrorResponse, error) {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if traceID != "" {
		req.Header.Set(traceHeader, traceID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err != nil {
			return nil, nil, fmt.Errorf("failed to decode ack: %w", err)
		}
		return &ack, nil, nil
	}

	var rejection ErrorResponse
	if err := json.Unmarshal(body, &rejection); err != nil {
		rejection = ErrorResponse{Code: "unknown", Message: string(body)}
	}
	return nil, &rejection, nil
}
