package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

// ProviderConfig describes one OpenAI-compatible chat completion endpoint.
type ProviderConfig struct {
	Name    string
	URL     string
	Model   string
	APIKey  string
	Headers map[string]string

	// RequestsPerSecond throttles calls proactively; zero disables the
	// limiter.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Provider calls a single chat completion endpoint.
type Provider struct {
	cfg     ProviderConfig
	limiter *rate.Limiter
	http    *http.Client
}

var _ ports.Generator = (*Provider)(nil)

// NewProvider builds a provider adapter; httpClient may be nil.
func NewProvider(cfg ProviderConfig, httpClient *http.Client) (*Provider, error) {
	if cfg.URL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("provider %s: URL and model required", cfg.Name)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Provider{cfg: cfg, limiter: limiter, http: httpClient}, nil
}

// Name identifies the provider in logs and failover traces.
func (p *Provider) Name() string { return p.cfg.Name }

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate posts one chat completion and returns the reply content.
// HTTP 429 is reported as domain.ErrRateLimited so the pool can fail over
// without further backoff on the final attempt.
func (p *Provider) Generate(ctx context.Context, system, user string) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0.1,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
	for key, value := range p.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%s: %w", p.cfg.Name, domain.ErrRateLimited)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%s: status %s: %s", p.cfg.Name, resp.Status, strings.TrimSpace(string(detail)))
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", p.cfg.Name, domain.ErrMalformedResponse)
	}
	if payload.Error != nil {
		return "", fmt.Errorf("%s: provider error: %s", p.cfg.Name, payload.Error.Message)
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices: %w", p.cfg.Name, domain.ErrMalformedResponse)
	}

	return payload.Choices[0].Message.Content, nil
}
