// Package webhook posts JSON payloads to consumer endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"transcript-restream-service/internal/observability/metrics"
)

// DefaultTimeout bounds a single POST.
const DefaultTimeout = 30 * time.Second

// ErrEmptyURL is returned when no endpoint is configured.
var ErrEmptyURL = errors.New("webhook: empty url")

// StatusError reports a response with a status code of 400 or above.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook %s returned status %d", e.URL, e.StatusCode)
}

// Client sends JSON POST requests.
type Client struct {
	http    *http.Client
	metrics *metrics.Metrics
}

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		metrics: metrics.DefaultMetrics,
	}
}

// PostJSON marshals payload and POSTs it to url. A transport failure or a
// status of 400 or above is an error; the latter is a *StatusError.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) error {
	if url == "" {
		return ErrEmptyURL
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	start := time.Now()
	err = c.post(ctx, url, b)
	c.metrics.RecordWebhook(err, time.Since(start).Seconds())
	return err
}

func (c *Client) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return nil
}
