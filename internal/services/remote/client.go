package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tuner/internal/services"
	"tuner/internal/workflow"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxErrorSnippet    = 512
	component          = "remote"
)

// HTTPDoer is the subset of *http.Client the client uses.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config captures how to reach the fine-tuning service.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the remote workflow service. Every endpoint wraps its
// result as {"output": ...}.
type Client struct {
	baseURL string
	http    HTTPDoer
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

// NewClient constructs a client for cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type userDataOutput struct {
	Dataset *string         `json:"dataset"`
	RunID   json.RawMessage `json:"run_id"`
	RunData *struct {
		Status *string `json:"status"`
	} `json:"run_data"`
}

type modelStatusOutput struct {
	ModelID json.RawMessage `json:"model_id"`
	Healthy *bool           `json:"healthy"`
}

type fineTuneRequest struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
	UserID string `json:"user_id"`
}

type fineTuneOutput struct {
	RunID json.RawMessage `json:"run_id"`
}

type callModelRequest struct {
	RunID          string `json:"run_id"`
	InstancePrompt string `json:"instance_prompt"`
}

type callModelOutput struct {
	URL string `json:"url"`
}

type clearUserDataRequest struct {
	UserID string `json:"user_id"`
}

// UserData returns the user's dataset reference and run status.
func (c *Client) UserData(ctx context.Context, userID string) (workflow.JobState, error) {
	var out *userDataOutput
	query := url.Values{"user_id": {userID}}
	if err := c.call(ctx, http.MethodGet, "user_data", query, nil, &out); err != nil {
		return workflow.JobState{}, err
	}
	if out == nil {
		return workflow.JobState{}, nil
	}
	job := workflow.JobState{RunID: opaqueID(out.RunID)}
	if out.Dataset != nil {
		job.DatasetRef = strings.TrimSpace(*out.Dataset)
	}
	if out.RunData != nil && out.RunData.Status != nil {
		status, ok := workflow.ParseRunStatus(*out.RunData.Status)
		job.Status = status
		if !ok {
			job.RawStatus = *out.RunData.Status
		}
	}
	return job, nil
}

// ModelStatus returns the deployed model identifier and health.
func (c *Client) ModelStatus(ctx context.Context, userID string) (workflow.ModelState, error) {
	var out *modelStatusOutput
	query := url.Values{"user_id": {userID}}
	if err := c.call(ctx, http.MethodGet, "model_status", query, nil, &out); err != nil {
		return workflow.ModelState{}, err
	}
	if out == nil {
		return workflow.ModelState{}, nil
	}
	return workflow.ModelState{
		ModelID: opaqueID(out.ModelID),
		Health:  workflow.HealthFrom(out.Healthy),
	}, nil
}

// FineTune queues a fine-tuning run and returns the acknowledged run id.
func (c *Client) FineTune(ctx context.Context, req workflow.FineTuneRequest) (string, error) {
	body := fineTuneRequest{URL: req.DatasetRef, Prompt: req.InstanceName, UserID: req.UserID}
	var out *fineTuneOutput
	if err := c.call(ctx, http.MethodPost, "fine_tune_model", nil, body, &out); err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return opaqueID(out.RunID), nil
}

// CallModel runs the tuned model for prompt and returns the image URL.
func (c *Client) CallModel(ctx context.Context, runID, prompt string) (string, error) {
	body := callModelRequest{RunID: runID, InstancePrompt: prompt}
	var out *callModelOutput
	if err := c.call(ctx, http.MethodPost, "call_model", nil, body, &out); err != nil {
		return "", err
	}
	if out == nil || strings.TrimSpace(out.URL) == "" {
		return "", services.Wrap(services.ErrService, component, "call_model", "response missing image url", nil)
	}
	return strings.TrimSpace(out.URL), nil
}

// ClearUserData deletes the user's run and dataset association.
func (c *Client) ClearUserData(ctx context.Context, userID string) error {
	var discard json.RawMessage
	return c.call(ctx, http.MethodPost, "clear_user_data", nil, clearUserDataRequest{UserID: userID}, &discard)
}

type envelope struct {
	Output json.RawMessage `json:"output"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (c *Client) call(ctx context.Context, method, endpoint string, query url.Values, payload any, out any) error {
	if c.baseURL == "" {
		return services.Wrap(services.ErrConfig, component, endpoint, "service url not configured", nil)
	}
	target := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return services.Wrap(services.ErrService, component, endpoint, "encode request", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return services.Wrap(services.ErrService, component, endpoint, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrService, component, endpoint, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrService, component, endpoint, "read response", err)
	}
	if resp.StatusCode >= 300 {
		snippet := string(data)
		if len(snippet) > maxErrorSnippet {
			snippet = snippet[:maxErrorSnippet]
		}
		return services.Wrap(services.ErrService, component, endpoint, "unexpected status", &httpStatusError{StatusCode: resp.StatusCode, Body: snippet})
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return services.Wrap(services.ErrService, component, endpoint, "decode response", err)
	}
	if len(env.Output) == 0 {
		return services.Wrap(services.ErrService, component, endpoint, "response missing output", nil)
	}
	if err := json.Unmarshal(env.Output, out); err != nil {
		return services.Wrap(services.ErrService, component, endpoint, "decode output", err)
	}
	return nil
}

// opaqueID accepts identifiers sent as JSON strings or numbers.
func opaqueID(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err == nil {
		if n, err := strconv.ParseInt(number.String(), 10, 64); err == nil {
			return strconv.FormatInt(n, 10)
		}
		return number.String()
	}
	return ""
}
