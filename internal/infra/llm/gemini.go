// Gemini adapter over the google.golang.org/genai SDK. Unlike the
// OpenAI adapter the SDK owns the wire shapes, so format-request and
// parse-envelope reduce to mapping between gateway types and SDK types.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider against the Gemini API.
// The SDK client is constructed per call from the request-lifetime
// credential; nothing derived from the secret outlives the call frame.
type GeminiProvider struct{}

// NewGeminiProvider creates a Gemini adapter.
func NewGeminiProvider() *GeminiProvider {
	return &GeminiProvider{}
}

// ID implements Provider.
func (p *GeminiProvider) ID() string { return ProviderGemini }

// Authenticate implements Provider. Gemini uses an API key.
func (p *GeminiProvider) Authenticate(cred *Credential) error {
	if cred.Empty() {
		return fmt.Errorf("%w: missing API key for provider %q", ErrAuth, ProviderGemini)
	}
	return nil
}

// Complete implements Provider via a single Models.GenerateContent call.
func (p *GeminiProvider) Complete(ctx context.Context, cred *Credential, req ChatRequest) (*ChatResponse, error) {
	if err := p.Authenticate(cred); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cred.Secret(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", ErrUpstream, err)
	}

	cfg := &genai.GenerateContentConfig{}
	if sys := SystemText(req); sys != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: sys}}}
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(UserText(req)), cfg)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	return p.parseEnvelope(req.Model, resp)
}

// parseEnvelope maps the SDK response onto a ChatResponse.
func (p *GeminiProvider) parseEnvelope(model string, resp *genai.GenerateContentResponse) (*ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: gemini returned no candidates", ErrMalformedEnvelope)
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: gemini candidate has no text parts", ErrMalformedEnvelope)
	}

	out := &ChatResponse{
		ProviderID: ProviderGemini,
		Model:      model,
		Content:    text,
		StopReason: string(resp.Candidates[0].FinishReason),
	}
	if resp.UsageMetadata != nil {
		out.Tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// classifyGeminiError maps SDK/API errors onto the gateway failure kinds.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: gemini returned %d", ErrAuth, apiErr.Code)
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: gemini returned 429", ErrRateLimited)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: gemini returned %d", ErrUpstream, apiErr.Code)
		default:
			return fmt.Errorf("%w: gemini returned %d: %s", ErrMalformedEnvelope, apiErr.Code, apiErr.Message)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: gemini: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: gemini: %v", ErrUpstream, err)
}
