// OpenAI chat-completions adapter. Talks to the OpenAI REST API (or any
// compatible endpoint) using stdlib net/http; the request/response shapes
// are small enough that a hand-rolled wire codec beats dragging in an SDK.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIProvider implements Provider against the OpenAI chat API.
type OpenAIProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIProvider creates an OpenAI adapter. An empty baseURL selects the
// public endpoint; tests point it at an httptest server.
func NewOpenAIProvider(baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIProvider{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ID implements Provider.
func (p *OpenAIProvider) ID() string { return ProviderOpenAI }

// Authenticate implements Provider. OpenAI uses a bearer API key; an empty
// credential can never succeed upstream, so it is rejected before any
// network call.
func (p *OpenAIProvider) Authenticate(cred *Credential) error {
	if cred.Empty() {
		return fmt.Errorf("%w: missing API key for provider %q", ErrAuth, ProviderOpenAI)
	}
	return nil
}

// ─── native wire types ──────────────────────────────────────────────────────

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float32         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// ─── Provider implementation ────────────────────────────────────────────────

// Complete implements Provider: format the native request, perform a single
// POST /v1/chat/completions, and parse the envelope.
func (p *OpenAIProvider) Complete(ctx context.Context, cred *Credential, req ChatRequest) (*ChatResponse, error) {
	if err := p.Authenticate(cred); err != nil {
		return nil, err
	}

	body, err := p.formatRequest(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cred.Secret())

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ProviderOpenAI, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}

	return p.parseEnvelope(req.Model, resp.StatusCode, respBody)
}

// formatRequest maps the gateway request onto OpenAI's native shape.
func (p *OpenAIProvider) formatRequest(req ChatRequest) ([]byte, error) {
	msgs := make([]openAIMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openAIMessage{Role: m.Role, Content: m.Content})
	}
	body, err := json.Marshal(openAIChatRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	return body, nil
}

// parseEnvelope classifies the HTTP status and unwraps the native response.
func (p *OpenAIProvider) parseEnvelope(model string, status int, body []byte) (*ChatResponse, error) {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, fmt.Errorf("%w: openai returned %d", ErrAuth, status)
	case status == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: openai returned 429", ErrRateLimited)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: openai returned %d", ErrTimeout, status)
	case status >= 500:
		return nil, fmt.Errorf("%w: openai returned %d", ErrUpstream, status)
	case status != http.StatusOK:
		return nil, fmt.Errorf("%w: openai returned %d", ErrMalformedEnvelope, status)
	}

	var native openAIChatResponse
	if err := json.Unmarshal(body, &native); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(native.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedEnvelope)
	}

	return &ChatResponse{
		ProviderID: ProviderOpenAI,
		Model:      model,
		Content:    native.Choices[0].Message.Content,
		StopReason: native.Choices[0].FinishReason,
		Tokens:     native.Usage.TotalTokens,
	}, nil
}

// classifyTransportError maps transport-level failures (client timeout,
// context expiry, connection refusal) onto the gateway failure kinds.
func classifyTransportError(providerID string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, providerID, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, providerID, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstream, providerID, err)
}
