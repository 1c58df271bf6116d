// Package knowledge talks to the remote knowledge service that stores
// project decisions and patterns and answers context-enhancement queries.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	bridgeerrors "github.com/atinylittleshell/ctxbridge/internal/errors"
	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
	"github.com/atinylittleshell/ctxbridge/internal/metrics"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Service endpoints.
const (
	EndpointEnhance   = "/api/context/enhance"
	EndpointChanges   = "/api/changes"
	EndpointDecisions = "/api/decisions"
	EndpointErrors    = "/api/errors"
	EndpointLive      = "/api/context/live"
	EndpointHealth    = "/api/health"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// Client is a JSON-over-HTTP client for the knowledge service. It never
// retries. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// EnhanceContext fetches project context for a query. Failures are
// returned to the caller as *errors.BridgeError values.
func (c *Client) EnhanceContext(ctx context.Context, req EnhanceRequest) (*EnhancedContext, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, bridgeerrors.NewInvalidRequest("query is required")
	}
	if req.RecentChanges == nil {
		req.RecentChanges = []livecontext.EditEvent{}
	}
	var out EnhancedContext
	if err := c.do(ctx, http.MethodPost, EndpointEnhance, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TrackChange forwards one edit.
func (c *Client) TrackChange(ctx context.Context, rec ChangeRecord) error {
	return c.do(ctx, http.MethodPost, EndpointChanges, rec, nil)
}

// RecordDecision stores a decision.
func (c *Client) RecordDecision(ctx context.Context, d Decision) error {
	if strings.TrimSpace(d.Text) == "" {
		return bridgeerrors.NewInvalidRequest("decision text is required")
	}
	return c.do(ctx, http.MethodPost, EndpointDecisions, d, nil)
}

// LearnFromError reports a failure together with the edits that led to it.
func (c *Client) LearnFromError(ctx context.Context, rep ErrorReport) error {
	return c.do(ctx, http.MethodPost, EndpointErrors, rep, nil)
}

// PublishSnapshot pushes a live context snapshot.
func (c *Client) PublishSnapshot(ctx context.Context, snap LiveSnapshot) error {
	return c.do(ctx, http.MethodPost, EndpointLive, snap, nil)
}

// Health queries the service health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, EndpointHealth, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.ObserveServiceRequest(endpoint, outcome, time.Since(start).Seconds())
	}()

	url := c.baseURL + endpoint

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return bridgeerrors.NewInternal(fmt.Errorf("marshal %s request: %w", endpoint, err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return bridgeerrors.NewInternal(fmt.Errorf("create %s request: %w", endpoint, err))
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("knowledge service request failed", zap.String("url", url), zap.Error(err))
		return bridgeerrors.NewServiceUnavailable(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return bridgeerrors.NewServiceError(endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return bridgeerrors.NewInternal(fmt.Errorf("decode %s response: %w", endpoint, err))
	}
	return nil
}
