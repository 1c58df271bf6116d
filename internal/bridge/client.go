package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	bridgeerrors "github.com/atinylittleshell/ctxbridge/internal/errors"
	"github.com/atinylittleshell/ctxbridge/internal/enhance"
	"github.com/atinylittleshell/ctxbridge/internal/livecontext"
)

// ErrDaemonUnreachable is wrapped by every Client error caused by a
// transport failure.
var ErrDaemonUnreachable = errors.New("ctxbridge daemon not reachable")

// Client queries a running daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the daemon listening on addr.
func NewClient(addr string, timeout time.Duration) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Snapshot fetches the daemon's snapshot over the last minutes (the
// daemon's default window when minutes <= 0).
func (c *Client) Snapshot(ctx context.Context, minutes int) (*livecontext.Snapshot, error) {
	path := "/snapshot"
	if minutes > 0 {
		path += "?minutes=" + strconv.Itoa(minutes)
	}
	var out livecontext.Snapshot
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Enhance asks the daemon to enhance prompt.
func (c *Client) Enhance(ctx context.Context, prompt, level string) (*enhance.Result, error) {
	var out enhance.Result
	if err := c.do(ctx, http.MethodPost, "/enhance", EnhanceRequest{Prompt: prompt, Level: level}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports the number of connected editors.
func (c *Client) Health(ctx context.Context) (int, error) {
	var out struct {
		Clients int `json:"clients"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return 0, err
	}
	return out.Clients, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s (is `ctxbridge watch` running?): %w", ErrDaemonUnreachable, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil || eb.Message == "" {
			return fmt.Errorf("daemon returned status %d", resp.StatusCode)
		}
		return &bridgeerrors.BridgeError{Code: eb.Code, Status: resp.StatusCode, Message: eb.Message, Details: eb.Details}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
