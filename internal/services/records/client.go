package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tuner/internal/services"
)

const (
	component          = "records"
	defaultTable       = "finetuningruns"
	defaultHTTPTimeout = 30 * time.Second
)

// HTTPDoer is the subset of *http.Client the client uses.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config captures how to reach the run-record REST API.
type Config struct {
	BaseURL string
	Table   string
	APIKey  string
	Timeout time.Duration
}

// Client updates the user's fine-tuning run record through a PostgREST API.
type Client struct {
	cfg  Config
	http HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// NewClient constructs a records client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Table = strings.TrimSpace(cfg.Table)
	if cfg.Table == "" {
		cfg.Table = defaultTable
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	client := &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// AttachDataset records ref as the dataset of userID's run row.
func (c *Client) AttachDataset(ctx context.Context, userID, ref string) error {
	if c.cfg.BaseURL == "" {
		return services.Wrap(services.ErrConfig, component, "attach", "records url not configured", nil)
	}
	payload, err := json.Marshal(map[string]string{"dataset": ref})
	if err != nil {
		return services.Wrap(services.ErrService, component, "attach", "encode request", err)
	}
	query := url.Values{"user_id": {"eq." + userID}}
	target := fmt.Sprintf("%s/rest/v1/%s?%s", c.cfg.BaseURL, url.PathEscape(c.cfg.Table), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, target, bytes.NewReader(payload))
	if err != nil {
		return services.Wrap(services.ErrService, component, "attach", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	if c.cfg.APIKey != "" {
		req.Header.Set("apikey", c.cfg.APIKey)
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrService, component, "attach", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.ErrService, component, "attach",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
