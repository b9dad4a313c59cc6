package workersai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"modelgate-server-go/internal/domain/run"
	"modelgate-server-go/internal/platform/logging"
)

// Config describes the Workers-AI-style REST upstream.
type Config struct {
	BaseURL   string
	AccountID string
	APIToken  string
}

// Client runs models over the hosted REST surface. Deadlines are owned by
// caller contexts, not the HTTP client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates a client for the configured account.
func New(cfg Config, logger *logging.Logger) (*Client, error) {
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("workersai: account id is required")
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("workersai: api token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudflare.com/client/v4"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

// Run executes one model call. JSON replies are decoded; anything else (audio,
// images) passes through as binary. Upstream failure envelopes are returned
// as decoded JSON and left for the invoker's error-payload predicate.
func (c *Client) Run(ctx context.Context, model string, input any, options map[string]any) (*run.Result, error) {
	endpoint := fmt.Sprintf(
		"%s/accounts/%s/ai/run/%s",
		strings.TrimSuffix(c.cfg.BaseURL, "/"),
		c.cfg.AccountID,
		model,
	)

	payload, err := sonic.Marshal(requestBody(input, options))
	if err != nil {
		return nil, fmt.Errorf("encode model input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create model request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var decoded any
		if err := sonic.Unmarshal(data, &decoded); err != nil {
			return nil, fmt.Errorf("decode model response: %w", err)
		}
		return &run.Result{JSON: decoded, ContentType: contentType}, nil
	}

	// A non-JSON body on a failing status is a proxy or gateway error page,
	// never a model result.
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("upstream returned status %d with %s body", resp.StatusCode, contentType)
	}

	return &run.Result{Binary: data, ContentType: contentType}, nil
}

// requestBody merges a map-shaped input with per-call options; non-map inputs
// are wrapped under "input".
func requestBody(input any, options map[string]any) map[string]any {
	body := make(map[string]any)
	if m, ok := input.(map[string]any); ok {
		for k, v := range m {
			body[k] = v
		}
	} else if input != nil {
		body["input"] = input
	}
	for k, v := range options {
		body[k] = v
	}
	return body
}
