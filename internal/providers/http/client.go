package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// NoRetry disables retries when used as ClientConfig.MaxRetries
const NoRetry = -1

// Client wraps resty.Client with retry logic and timeout handling
type Client struct {
	resty      *resty.Client
	maxRetries int
	timeout    time.Duration
	logger     *slog.Logger
}

// ClientConfig holds configuration for the HTTP client
type ClientConfig struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
	Headers    map[string]string
	Debug      bool
	Logger     *slog.Logger
}

// DefaultClientConfig returns sensible defaults for HTTP client
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:    8 * time.Second,
		MaxRetries: 1,
		UserAgent:  "moodcast/1.0",
	}
}

// NewClient creates a new HTTP client with the given configuration
func NewClient(config ClientConfig) *Client {
	defaults := DefaultClientConfig()
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	switch {
	case config.MaxRetries == 0:
		config.MaxRetries = defaults.MaxRetries
	case config.MaxRetries < 0:
		config.MaxRetries = 0
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	restyClient := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(config.MaxRetries).
		SetRetryWaitTime(250*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "application/json, text/html, */*").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetHeaders(config.Headers)

	// Retry on network errors, 5xx and 429 only
	restyClient.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500 || r.StatusCode() == 429
	})

	client := &Client{
		resty:      restyClient,
		maxRetries: config.MaxRetries,
		timeout:    config.Timeout,
		logger:     config.Logger,
	}

	if config.Debug && config.Logger != nil {
		restyClient.OnBeforeRequest(func(c *resty.Client, r *resty.Request) error {
			client.logRequest(r)
			return nil
		})
		restyClient.OnAfterResponse(func(c *resty.Client, r *resty.Response) error {
			client.logResponse(r)
			return nil
		})
	}

	return client
}

// Get performs a GET request with context support
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	req := c.resty.R().
		SetContext(ctx).
		SetHeaders(headers)

	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET request failed for %s: %w", url, err)
	}

	if resp.StatusCode() >= 400 {
		return resp, fmt.Errorf("HTTP error %d for %s", resp.StatusCode(), url)
	}

	return resp, nil
}

// Post performs a POST request with context support
func (c *Client) Post(ctx context.Context, url string, body interface{}, headers map[string]string) (*resty.Response, error) {
	req := c.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(headers).
		SetBody(body)

	resp, err := req.Post(url)
	if err != nil {
		return nil, fmt.Errorf("POST request failed for %s: %w", url, err)
	}

	if resp.StatusCode() >= 400 {
		return resp, fmt.Errorf("HTTP error %d for %s: %s", resp.StatusCode(), url, truncate(resp.String(), 200))
	}

	return resp, nil
}

// GetTimeout returns the configured timeout
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// GetMaxRetries returns the configured max retries
func (c *Client) GetMaxRetries() int {
	return c.maxRetries
}

func (c *Client) logRequest(r *resty.Request) {
	c.logger.Debug("HTTP Request",
		"method", r.Method,
		"url", r.URL,
	)
}

func (c *Client) logResponse(r *resty.Response) {
	c.logger.Debug("HTTP Response",
		"status", r.StatusCode(),
		"url", r.Request.URL,
		"time", r.Time(),
		"body", truncate(r.String(), 500),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}
