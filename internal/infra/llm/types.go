// Package llm defines the model-agnostic LLM provider abstraction.
// All types here are shared between the gateway, the provider adapters,
// and the lesson pipeline that consumes them.
package llm

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	// Validated against the injected model catalog before dispatch.
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// ChatResponse is the parsed envelope from a completed provider call.
// Content carries the raw model reply; ownership passes to the response
// parser immediately after the gateway returns.
type ChatResponse struct {
	ProviderID string // provider that actually produced the reply
	Model      string // concrete model identifier used
	Content    string // assistant message text, treated strictly as data
	StopReason string // "stop" | "length" | "error"
	Tokens     int    // total tokens consumed, 0 when unreported
}

// Credential is request-lifetime secret material for one provider.
// It is never persisted, never logged, and must be zeroed on every exit
// path of the call that carries it.
type Credential struct {
	ProviderID string
	secret     []byte
}

// NewCredential wraps secret material for the given provider.
// Returns nil for an empty secret so callers can treat "no credential"
// uniformly as a nil *Credential.
func NewCredential(providerID, secret string) *Credential {
	if secret == "" {
		return nil
	}
	return &Credential{ProviderID: providerID, secret: []byte(secret)}
}

// Secret exposes the secret material for the outbound call.
// Callers must not retain the returned string beyond the call frame.
func (c *Credential) Secret() string {
	if c == nil {
		return ""
	}
	return string(c.secret)
}

// Empty reports whether no usable secret material is present.
func (c *Credential) Empty() bool {
	return c == nil || len(c.secret) == 0
}

// Zero overwrites the secret material. Safe to call repeatedly and on nil.
func (c *Credential) Zero() {
	if c == nil {
		return
	}
	for i := range c.secret {
		c.secret[i] = 0
	}
	c.secret = c.secret[:0]
}
