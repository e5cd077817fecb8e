package llm

import "context"

// Known provider ids. Adding a backend means adding one Provider
// implementation and a catalog entry; the gateway and orchestrator are
// untouched.
const (
	ProviderEcho   = "echo"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Provider is the capability set every LLM backend implements.
// Each adapter owns its auth scheme, its native request shape, and its
// envelope parsing; Complete covers the format-request/parse-envelope
// pair around the backend's own transport.
type Provider interface {
	// ID returns the stable provider identifier ("echo", "openai", ...).
	ID() string

	// Authenticate validates credential shape. Called by the gateway
	// before any network I/O so that missing or obviously bad
	// credentials fail fast with ErrAuth and zero outbound calls.
	Authenticate(cred *Credential) error

	// Complete formats the request into the backend's native shape,
	// performs exactly one outbound call, and parses the native response
	// envelope into a ChatResponse. Errors are classified into the
	// package's failure kinds. The passed credential is valid only for
	// the duration of the call.
	Complete(ctx context.Context, cred *Credential, req ChatRequest) (*ChatResponse, error)
}
