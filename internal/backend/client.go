package backend

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

	"incomecast/internal/services"
)

const (
	defaultBaseURL   = "http://127.0.0.1:8000"
	defaultUserAgent = "incomecast/0.1.0"
	maxBodyBytes     = 1 << 20
)

// Config captures the settings required to reach the classification service.
type Config struct {
	BaseURL   string
	UserAgent string
}

// Client talks to the income classification backend.
//
// The client applies no timeout of its own; callers bound each request with
// the context they pass in.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a backend client.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			BaseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			UserAgent: strings.TrimSpace(cfg.UserAgent),
		},
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.UserAgent == "" {
		client.cfg.UserAgent = defaultUserAgent
	}
	return client
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Predict submits one record and returns its classification.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (Prediction, error) {
	var empty Prediction
	body, err := c.do(ctx, http.MethodPost, "predict", req)
	if err != nil {
		return empty, err
	}

	var payload predictResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return empty, fmt.Errorf("backend predict: decode response: %w: %w", ErrMalformedResponse, err)
	}
	if payload.Success == nil {
		return empty, fmt.Errorf("backend predict: %w: missing success flag", ErrMalformedResponse)
	}
	if !*payload.Success {
		return empty, &APIError{Message: strings.TrimSpace(payload.Message)}
	}
	label := strings.TrimSpace(payload.Prediction)
	if label != LabelAbove && label != LabelBelow {
		return empty, fmt.Errorf("backend predict: %w: unexpected prediction %q", ErrMalformedResponse, payload.Prediction)
	}
	return Prediction{
		Label:         label,
		Confidence:    payload.Confidence,
		Probabilities: payload.Probabilities,
	}, nil
}

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	body, err := c.do(ctx, http.MethodGet, "health", nil)
	if err != nil {
		return health, err
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return health, fmt.Errorf("backend health: decode response: %w: %w", ErrMalformedResponse, err)
	}
	return health, nil
}

// ModelInfo fetches GET /model-info.
func (c *Client) ModelInfo(ctx context.Context) (ModelInfo, error) {
	var info ModelInfo
	body, err := c.do(ctx, http.MethodGet, "model-info", nil)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return info, fmt.Errorf("backend model info: decode response: %w: %w", ErrMalformedResponse, err)
	}
	return info, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("backend request: nil context")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("backend request: build url: %w", err)
	}

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("backend request: encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("backend request: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("backend request: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= http.StatusMultipleChoices {
		return body, &StatusError{
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(body),
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}
