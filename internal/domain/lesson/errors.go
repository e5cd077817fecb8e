package lesson

import "errors"

var (
	// ErrInvalidRequest marks a request that failed shape or semantic
	// validation. Fatal, never retried.
	ErrInvalidRequest = errors.New("invalid lesson request")

	// ErrEmptyLesson marks a reply that parsed but yielded no valid
	// exercise. Surfaced distinctly from provider errors so callers can
	// tell "provider broken" from "model produced garbage".
	ErrEmptyLesson = errors.New("no valid exercises in model reply")

	// ErrUpstreamUnavailable marks an exhausted or unusable provider or
	// store path when no fallback was permitted.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
