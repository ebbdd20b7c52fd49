// Package upstream is the HTTP client for the care-management REST API the
// console fronts. Every screen in the console is a thin pass-through to one
// of these endpoints; no business logic lives on this side.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/onsamiro-welfare-service/onsae-console/internal/logger"
	"github.com/onsamiro-welfare-service/onsae-console/middleware"
)

// ErrUnauthorized indicates the upstream rejected the bearer token.
// HTTP Status: 401 Unauthorized
var ErrUnauthorized = errors.New("upstream unauthorized")

// APIError is a non-2xx upstream response, carrying the optional {message}
// body the API uses to describe failures.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream status %d", e.Status)
}

// Credentials supplies the bearer token for authorized calls and can mint a
// fresh one when the upstream rejects it. Implemented by the session context.
type Credentials interface {
	// AccessToken returns the current access token.
	AccessToken(ctx context.Context) (string, error)

	// ForceRefresh exchanges the refresh token for a new pair and returns
	// the new access token.
	ForceRefresh(ctx context.Context) (string, error)
}

// Client talks to the care-management API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the given base URL with a per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// do executes one request and decodes the JSON response into out (when out is
// non-nil). Non-2xx responses become *APIError; 401 becomes ErrUnauthorized.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	ctx, span := middleware.StartSpan(ctx, "upstream.request", trace.WithAttributes(
		attribute.String("layer", "upstream"),
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer span.End()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&msg); decodeErr == nil {
			apiErr.Message = msg.Message
		}
		if resp.StatusCode == http.StatusUnauthorized {
			// Keep the sentinel for retry decisions and the body message
			// for the caller.
			return fmt.Errorf("%s %s: %w: %w", method, path, ErrUnauthorized, apiErr)
		}
		return fmt.Errorf("%s %s: %w", method, path, apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// authorized executes an authorized request, retrying exactly once through a
// forced token refresh when the upstream answers 401.
func (c *Client) authorized(ctx context.Context, creds Credentials, method, path string, body, out any) error {
	token, err := creds.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("access token: %w", err)
	}

	err = c.do(ctx, method, path, token, body, out)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	logger.FromContext(ctx).Debug().Str("path", path).Msg("Access token rejected, refreshing")

	token, err = creds.ForceRefresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	return c.do(ctx, method, path, token, body, out)
}
