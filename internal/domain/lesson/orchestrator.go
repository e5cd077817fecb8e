// Lesson orchestration: validate → retrieve → assemble → generate →
// parse. The orchestrator owns the fallback policy; the gateway owns
// per-call retries.
package lesson

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/paideia-app/paideia/internal/domain/retrieval"
	"github.com/paideia-app/paideia/internal/infra/llm"
)

// ContextRetriever is the slice of the retriever the orchestrator needs.
type ContextRetriever interface {
	Retrieve(ctx context.Context, q retrieval.Query) (*retrieval.Result, error)
}

// Generator is the slice of the provider gateway the orchestrator needs.
type Generator interface {
	Generate(ctx context.Context, providerID string, cred *llm.Credential, req llm.ChatRequest) (*llm.Result, error)
}

// Service is the top-level lesson generation entry point. Stateless
// across calls; safe for concurrent use.
type Service struct {
	retriever       ContextRetriever
	gateway         Generator
	assembler       *Assembler
	parser          *Parser
	validate        *validator.Validate
	defaultProvider string
	log             *zap.Logger
}

// NewService wires the orchestrator. An empty defaultProvider selects
// echo.
func NewService(retriever ContextRetriever, gateway Generator, assembler *Assembler, defaultProvider string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultProvider == "" {
		defaultProvider = llm.ProviderEcho
	}
	return &Service{
		retriever:       retriever,
		gateway:         gateway,
		assembler:       assembler,
		parser:          NewParser(log),
		validate:        validator.New(),
		defaultProvider: defaultProvider,
		log:             log,
	}
}

// Generate runs one lesson request end to end. The caller's credential
// is zeroed on every exit path. At most one provider transition happens
// per call: if the requested provider fails and the request permits
// fallback, echo runs once and the original provider is not retried.
func (s *Service) Generate(ctx context.Context, req Request) (*Lesson, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	providerID := req.Provider
	if providerID == "" {
		providerID = s.defaultProvider
	}
	cred := llm.NewCredential(providerID, req.Credential)
	defer cred.Zero()

	fallback := false
	if providerID != llm.ProviderEcho && cred.Empty() {
		// A paid provider can never succeed without a credential, so
		// this resolves before any provider call.
		if !req.AllowFallback {
			return nil, fmt.Errorf("%w: provider %q requires a credential", llm.ErrAuth, providerID)
		}
		s.log.Info("no credential supplied, falling back to echo",
			zap.String("requested_provider", providerID))
		providerID = llm.ProviderEcho
		fallback = true
	}

	ret, err := s.retriever.Retrieve(ctx, retrieval.Query{
		Terms:    s.queryTerms(req),
		Language: req.Language,
		Register: req.Register,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	plan, err := s.assembler.BuildPlan(req, ret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	model := req.Model
	if fallback {
		// Echo validates against its own catalog entry; the requested
		// provider's model name would be rejected there.
		model = ""
	}
	chatReq := plan.Render(model)

	res, err := s.gateway.Generate(ctx, providerID, cred, chatReq)
	if err != nil {
		if !req.AllowFallback || fallback || providerID == llm.ProviderEcho || !fallbackEligible(err) {
			return nil, classifyGatewayError(err)
		}
		s.log.Warn("provider failed, falling back to echo",
			zap.String("requested_provider", providerID),
			zap.Error(err))
		fallback = true
		providerID = llm.ProviderEcho
		chatReq.Model = "" // echo resolves its own default model
		res, err = s.gateway.Generate(ctx, providerID, nil, chatReq)
		if err != nil {
			return nil, classifyGatewayError(err)
		}
	}

	exercises, err := s.parser.ParseExercises(res.Response, plan)
	if err != nil {
		return nil, err
	}

	return &Lesson{
		Request:   req.Sanitized(),
		Exercises: exercises,
		Meta: Meta{
			Provider:    res.Response.ProviderID,
			Model:       res.Response.Model,
			GeneratedAt: time.Now().UTC(),
			Fallback:    fallback,
		},
	}, nil
}

// queryTerms derives retrieval keywords from the request: named sources
// plus the text-range reference.
func (s *Service) queryTerms(req Request) []string {
	terms := make([]string, 0, len(req.Sources)+1)
	terms = append(terms, req.Sources...)
	if req.TextRange != "" {
		terms = append(terms, req.TextRange)
	}
	return terms
}

// fallbackEligible reports whether a gateway failure may degrade to
// echo. Caller mistakes (unknown provider, unlisted model) surface
// unchanged: degrading would mask a fixable request error.
func fallbackEligible(err error) bool {
	switch {
	case errors.Is(err, llm.ErrInvalidModel), errors.Is(err, llm.ErrUnknownProvider):
		return false
	}
	return true
}

// classifyGatewayError wraps transient provider failures so the API
// boundary maps them to an upstream-unavailable status; auth and
// request-shape failures pass through for their own mappings.
func classifyGatewayError(err error) error {
	switch {
	case errors.Is(err, llm.ErrAuth),
		errors.Is(err, llm.ErrInvalidModel),
		errors.Is(err, llm.ErrUnknownProvider):
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}
