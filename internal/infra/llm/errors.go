package llm

import "errors"

// Failure kinds for a gateway call. The gateway classifies every provider
// failure into exactly one of these so the orchestrator can apply its
// retry/fallback policy with errors.Is instead of string matching.
var (
	// ErrAuth marks a bad or missing credential. Never retried.
	ErrAuth = errors.New("provider authentication failed")

	// ErrInvalidModel marks a model name the provider's catalog does not
	// list. Rejected before any network call.
	ErrInvalidModel = errors.New("invalid or unsupported model")

	// ErrRateLimited marks an upstream throttle. Retried with backoff up
	// to the configured cap.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrTimeout marks an expired or cancelled outbound call. Retried once.
	ErrTimeout = errors.New("provider call timed out")

	// ErrUpstream marks a provider-side 5xx or transport fault. Not
	// retried by the gateway; the orchestrator's fallback policy decides.
	ErrUpstream = errors.New("provider upstream error")

	// ErrMalformedEnvelope marks a reply the adapter cannot even unwrap.
	// Surfaced immediately, never retried.
	ErrMalformedEnvelope = errors.New("malformed provider envelope")

	// ErrUnknownProvider marks a provider id with no registered adapter.
	ErrUnknownProvider = errors.New("unknown provider")
)
