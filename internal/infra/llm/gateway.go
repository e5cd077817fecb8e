package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// CallState tracks a single provider call through its lifecycle. The
// state is reported alongside failures so callers can tell a refusal
// before any network traffic (Authenticating) from an upstream fault
// (AwaitingResponse).
type CallState string

const (
	StateIdle             CallState = "idle"
	StateAuthenticating   CallState = "authenticating"
	StateAwaitingResponse CallState = "awaiting_response"
	StateSucceeded        CallState = "succeeded"
	StateFailed           CallState = "failed"
)

// RetryPolicy bounds the gateway's automatic retries per failure kind.
// Auth, invalid-model and malformed-envelope failures are never retried.
type RetryPolicy struct {
	// RateLimitRetries is the retry budget after ErrRateLimited.
	RateLimitRetries int
	// TimeoutRetries is the retry budget after ErrTimeout.
	TimeoutRetries int
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
}

// DefaultRetryPolicy returns the retry budgets used when configuration
// supplies none.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		RateLimitRetries: 2,
		TimeoutRetries:   1,
		BaseDelay:        500 * time.Millisecond,
	}
}

// Result is the terminal outcome of a gateway call.
type Result struct {
	Response *ChatResponse
	State    CallState
	Attempts int
}

// Gateway dispatches chat requests to registered providers, applying
// catalog validation, credential handling and bounded retries. It is
// safe for concurrent use; per-call state lives on the stack.
type Gateway struct {
	providers map[string]Provider
	catalog   ModelCatalog
	retry     RetryPolicy
	log       *zap.Logger

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGateway wires a gateway over the given providers and catalog.
func NewGateway(providers []Provider, catalog ModelCatalog, retry RetryPolicy, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	byID := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byID[p.ID()] = p
	}
	return &Gateway{
		providers: byID,
		catalog:   catalog,
		retry:     retry,
		log:       log,
		sleep:     sleepContext,
	}
}

// Provider returns the registered provider for id, if any.
func (g *Gateway) Provider(id string) (Provider, bool) {
	p, ok := g.providers[id]
	return p, ok
}

// Catalog exposes the model catalog the gateway validates against.
func (g *Gateway) Catalog() ModelCatalog { return g.catalog }

// Generate runs one provider call end to end. The credential is zeroed
// on every exit path, success or failure. Model resolution and
// authentication failures return before any network traffic; transient
// upstream failures are retried within the policy's budgets.
func (g *Gateway) Generate(ctx context.Context, providerID string, cred *Credential, req ChatRequest) (*Result, error) {
	defer cred.Zero()

	res := &Result{State: StateIdle}

	provider, ok := g.providers[providerID]
	if !ok {
		res.State = StateFailed
		return res, fmt.Errorf("%w: %q", ErrUnknownProvider, providerID)
	}

	model, err := g.catalog.Resolve(providerID, req.Model)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	req.Model = model

	res.State = StateAuthenticating
	if err := provider.Authenticate(cred); err != nil {
		res.State = StateFailed
		return res, err
	}

	rateBudget := g.retry.RateLimitRetries
	timeoutBudget := g.retry.TimeoutRetries

	for {
		res.Attempts++
		res.State = StateAwaitingResponse

		resp, err := provider.Complete(ctx, cred, req)
		if err == nil {
			res.State = StateSucceeded
			res.Response = resp
			return res, nil
		}

		retriable := false
		switch {
		case errors.Is(err, ErrRateLimited) && rateBudget > 0:
			rateBudget--
			retriable = true
		case errors.Is(err, ErrTimeout) && timeoutBudget > 0:
			timeoutBudget--
			retriable = true
		}
		if !retriable {
			res.State = StateFailed
			return res, err
		}

		delay := backoffDelay(g.retry.BaseDelay, res.Attempts)
		g.log.Warn("provider call failed, retrying",
			zap.String("provider", providerID),
			zap.String("model", req.Model),
			zap.Int("attempt", res.Attempts),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if serr := g.sleep(ctx, delay); serr != nil {
			res.State = StateFailed
			return res, fmt.Errorf("%w: %v", ErrTimeout, serr)
		}
	}
}

// backoffDelay doubles the base per attempt and adds up to 25% jitter.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := base << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
