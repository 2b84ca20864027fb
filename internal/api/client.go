// Package api is the client for the Lynqio backend REST API. Every request
// carries two credentials: the static service-gateway key as a Bearer token
// (gateway-level check only) and the dynamic tenant-scope token in the
// X-Tenant-Token header, which the backend's middleware verifies.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"lynqio/client/internal/identity"
)

// tenantTokenHeader carries the tenant-scope token the backend verifies.
const tenantTokenHeader = "X-Tenant-Token"

// Sentinel errors mapped from backend responses.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
)

// TokenSource supplies the tenant-scope token for each request.
// *identity.Session satisfies it.
type TokenSource interface {
	Token(ctx context.Context, opts identity.TokenOptions) (string, error)
}

// Client calls the Lynqio backend.
type Client struct {
	baseURL    string
	gatewayKey string
	tokens     TokenSource
	http       *http.Client
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewClient returns a Client. timeout bounds each request explicitly rather
// than inheriting the transport's unbounded default; the zero value falls
// back to 30s.
func NewClient(baseURL, gatewayKey string, tokens TokenSource, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		gatewayKey: gatewayKey,
		tokens:     tokens,
		http:       &http.Client{Timeout: timeout},
		tracer:     otel.Tracer("lynqio/client/internal/api"),
		logger:     logger,
	}
}

// do performs one JSON request. A missing session aborts before the request
// is built: the operation fails with identity.ErrNoSession instead of
// guessing at credentials.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	tok, err := c.tokens.Token(ctx, identity.TokenOptions{})
	if err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("lynqio.api %s %s", method, path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer span.End()

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("api: parse url: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("api: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.gatewayKey)
	req.Header.Set(tenantTokenHeader, tok)

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := statusError(resp.StatusCode)
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Debug("backend call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %s %s: status %d: %s", err, method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

func statusError(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrServer
	}
	return fmt.Errorf("unexpected status %d", status)
}
