package lesson

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/paideia-app/paideia/internal/domain/corpus"
	"github.com/paideia-app/paideia/internal/domain/retrieval"
	"github.com/paideia-app/paideia/internal/infra/llm"
	"go.uber.org/zap"
)

// stubRetriever serves a fixed result set.
type stubRetriever struct {
	result *retrieval.Result
	err    error
}

func (s *stubRetriever) Retrieve(_ context.Context, _ retrieval.Query) (*retrieval.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return &retrieval.Result{}, nil
	}
	return s.result, nil
}

// stubGateway scripts per-provider outcomes and counts calls. A nil
// scripted error delegates to a real echo provider so replies stay
// schema-conformant.
type stubGateway struct {
	errByProvider map[string]error
	calls         map[string]int
	echo          *llm.EchoProvider
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		errByProvider: map[string]error{},
		calls:         map[string]int{},
		echo:          llm.NewEchoProvider(),
	}
}

func (s *stubGateway) Generate(ctx context.Context, providerID string, cred *llm.Credential, req llm.ChatRequest) (*llm.Result, error) {
	s.calls[providerID]++
	if err := s.errByProvider[providerID]; err != nil {
		return &llm.Result{State: llm.StateFailed}, err
	}
	resp, err := s.echo.Complete(ctx, cred, req)
	if err != nil {
		return nil, err
	}
	resp.ProviderID = providerID
	if req.Model != "" {
		resp.Model = req.Model
	}
	return &llm.Result{Response: resp, State: llm.StateSucceeded, Attempts: 1}, nil
}

func grammarResult() *retrieval.Result {
	return &retrieval.Result{Items: []corpus.Scored{
		{Snippet: corpus.Snippet{
			ID: "snip-1", Language: "grc", Category: corpus.CategoryLexicon,
			Text: "logos anthropos polis thalassa", Citation: "LSJ",
		}, Score: 0.9},
	}}
}

func newTestService(gw Generator, ret ContextRetriever) *Service {
	return NewService(ret, gw, NewAssembler(0), llm.ProviderEcho, zap.NewNop())
}

// flakyProvider fails a scripted number of times before delegating to
// echo for a schema-conformant reply.
type flakyProvider struct {
	id       string
	failures int
	failWith error
	calls    int
	echo     *llm.EchoProvider
}

func (p *flakyProvider) ID() string { return p.id }

func (p *flakyProvider) Authenticate(_ *llm.Credential) error { return nil }

func (p *flakyProvider) Complete(ctx context.Context, cred *llm.Credential, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.failWith
	}
	resp, err := p.echo.Complete(ctx, cred, req)
	if err != nil {
		return nil, err
	}
	resp.ProviderID = p.id
	resp.Model = req.Model
	return resp, nil
}

// newFlakyGateway builds a real gateway with echo plus a scripted
// provider under id "flaky", with millisecond backoff.
func newFlakyGateway(failures int, failWith error) (*llm.Gateway, *flakyProvider) {
	flaky := &flakyProvider{
		id:       "flaky",
		failures: failures,
		failWith: failWith,
		echo:     llm.NewEchoProvider(),
	}
	catalog := llm.ModelCatalog{
		llm.ProviderEcho: {Default: "echo-1", Models: []string{"echo-1"}},
		"flaky":          {Default: "flaky-1", Models: []string{"flaky-1"}},
	}
	gw := llm.NewGateway(
		[]llm.Provider{llm.NewEchoProvider(), flaky},
		catalog,
		llm.RetryPolicy{RateLimitRetries: 2, TimeoutRetries: 1, BaseDelay: time.Millisecond},
		zap.NewNop(),
	)
	return gw, flaky
}

// ============================================================================
// End-to-end scenarios
// ============================================================================

func TestGenerate_RateLimitedTwiceThenSucceeds(t *testing.T) {
	t.Parallel()

	gw, flaky := newFlakyGateway(2, llm.ErrRateLimited)
	svc := newTestService(gw, &stubRetriever{result: grammarResult()})

	got, err := svc.Generate(context.Background(), Request{
		Language:   "la",
		Profile:    "beginner",
		Register:   "literary",
		Provider:   "flaky",
		Credential: "sk-test",
	})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if got.Meta.Fallback {
		t.Error("fallback flag set although retries recovered")
	}
	if got.Meta.Provider != "flaky" {
		t.Errorf("meta.provider = %q, want the requested provider", got.Meta.Provider)
	}
	if flaky.calls != 3 {
		t.Errorf("provider called %d times, want 3 (two failures + success)", flaky.calls)
	}
}

func TestGenerate_RetriesExhaustedFallsBackToEcho(t *testing.T) {
	t.Parallel()

	gw, flaky := newFlakyGateway(99, llm.ErrRateLimited)
	svc := newTestService(gw, &stubRetriever{result: grammarResult()})

	got, err := svc.Generate(context.Background(), Request{
		Language:      "la",
		Profile:       "beginner",
		Register:      "literary",
		Provider:      "flaky",
		Credential:    "sk-test",
		AllowFallback: true,
	})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !got.Meta.Fallback || got.Meta.Provider != llm.ProviderEcho {
		t.Errorf("meta = %+v, want an echo fallback lesson", got.Meta)
	}
	if flaky.calls != 3 {
		t.Errorf("provider called %d times, want the full retry budget (3)", flaky.calls)
	}
}

func TestGenerate_EchoMatchLesson(t *testing.T) {
	t.Parallel()

	svc := newTestService(newStubGateway(), &stubRetriever{result: grammarResult()})
	got, err := svc.Generate(context.Background(), Request{
		Language:      "grc",
		Profile:       "beginner",
		Register:      "colloquial",
		Provider:      llm.ProviderEcho,
		ExerciseTypes: []string{TypeMatch},
	})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}

	if got.Meta.Provider != llm.ProviderEcho {
		t.Errorf("meta.provider = %q, want echo", got.Meta.Provider)
	}
	if got.Meta.Fallback {
		t.Error("fallback flag set on a direct echo request")
	}
	if len(got.Exercises) == 0 {
		t.Fatal("no exercises generated")
	}
	for i, ex := range got.Exercises {
		if ex.Type != TypeMatch {
			t.Errorf("exercise %d type = %q, want match", i, ex.Type)
		}
		if len(ex.Distractors) < 2 {
			t.Errorf("exercise %d has %d distractors, want >= 2", i, len(ex.Distractors))
		}
		if len(ex.SourceIDs) == 0 {
			t.Errorf("exercise %d cites no snippet despite successful retrieval", i)
		}
	}
	if got.Request.Credential != "" {
		t.Error("credential echoed back in the lesson")
	}
}

func TestGenerate_NoCredentialFallbackDisabled(t *testing.T) {
	t.Parallel()

	gw := newStubGateway()
	svc := newTestService(gw, &stubRetriever{})
	_, err := svc.Generate(context.Background(), Request{
		Language: "la",
		Profile:  "beginner",
		Register: "literary",
		Provider: llm.ProviderOpenAI,
		// no credential, AllowFallback false
	})
	if !errors.Is(err, llm.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	if total := gw.calls[llm.ProviderOpenAI] + gw.calls[llm.ProviderEcho]; total != 0 {
		t.Errorf("gateway called %d times, want 0", total)
	}
}

func TestGenerate_NoCredentialFallbackEnabled(t *testing.T) {
	t.Parallel()

	gw := newStubGateway()
	svc := newTestService(gw, &stubRetriever{result: grammarResult()})
	got, err := svc.Generate(context.Background(), Request{
		Language:      "la",
		Profile:       "beginner",
		Register:      "literary",
		Provider:      llm.ProviderOpenAI,
		Model:         "gpt-4o-mini",
		AllowFallback: true,
	})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if got.Meta.Provider != llm.ProviderEcho || !got.Meta.Fallback {
		t.Errorf("meta = %+v, want echo with fallback flag", got.Meta)
	}
	if gw.calls[llm.ProviderOpenAI] != 0 {
		t.Errorf("paid provider called %d times without a credential", gw.calls[llm.ProviderOpenAI])
	}
}

// A credential-less request naming a paid provider's model must still
// degrade to echo: the requested model belongs to the other provider's
// catalog entry and must not reach echo's model resolution.
func TestGenerate_NoCredentialFallbackIgnoresRequestedModel(t *testing.T) {
	t.Parallel()

	gw, flaky := newFlakyGateway(0, nil)
	svc := newTestService(gw, &stubRetriever{result: grammarResult()})

	got, err := svc.Generate(context.Background(), Request{
		Language:      "la",
		Profile:       "beginner",
		Register:      "literary",
		Provider:      "flaky",
		Model:         "flaky-1",
		AllowFallback: true,
	})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if got.Meta.Provider != llm.ProviderEcho || !got.Meta.Fallback {
		t.Errorf("meta = %+v, want an echo fallback lesson", got.Meta)
	}
	if got.Meta.Model != "echo-1" {
		t.Errorf("meta.model = %q, want echo's default", got.Meta.Model)
	}
	if flaky.calls != 0 {
		t.Errorf("paid provider called %d times without a credential", flaky.calls)
	}
}

func TestGenerate_ProviderFailureFallsBackOnce(t *testing.T) {
	t.Parallel()

	gw := newStubGateway()
	gw.errByProvider[llm.ProviderOpenAI] = llm.ErrRateLimited
	svc := newTestService(gw, &stubRetriever{result: grammarResult()})

	got, err := svc.Generate(context.Background(), Request{
		Language:      "la",
		Profile:       "intermediate",
		Register:      "colloquial",
		Provider:      llm.ProviderOpenAI,
		Credential:    "sk-test",
		AllowFallback: true,
	})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !got.Meta.Fallback || got.Meta.Provider != llm.ProviderEcho {
		t.Errorf("meta = %+v, want echo fallback", got.Meta)
	}
	// At most one provider transition: the primary ran once, echo once.
	if gw.calls[llm.ProviderOpenAI] != 1 || gw.calls[llm.ProviderEcho] != 1 {
		t.Errorf("calls = %v, want one per provider", gw.calls)
	}
}

func TestGenerate_ProviderFailureNoFallbackSurfaces(t *testing.T) {
	t.Parallel()

	gw := newStubGateway()
	gw.errByProvider[llm.ProviderOpenAI] = llm.ErrTimeout
	svc := newTestService(gw, &stubRetriever{result: grammarResult()})

	_, err := svc.Generate(context.Background(), Request{
		Language:   "la",
		Profile:    "advanced",
		Register:   "literary",
		Provider:   llm.ProviderOpenAI,
		Credential: "sk-test",
	})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if !errors.Is(err, llm.ErrTimeout) {
		t.Errorf("err = %v, want to carry the timeout kind", err)
	}
	if gw.calls[llm.ProviderEcho] != 0 {
		t.Errorf("echo called %d times with fallback disabled", gw.calls[llm.ProviderEcho])
	}
}

func TestGenerate_InvalidModelNeverFallsBack(t *testing.T) {
	t.Parallel()

	gw := newStubGateway()
	gw.errByProvider[llm.ProviderOpenAI] = llm.ErrInvalidModel
	svc := newTestService(gw, &stubRetriever{result: grammarResult()})

	_, err := svc.Generate(context.Background(), Request{
		Language:      "la",
		Profile:       "beginner",
		Register:      "literary",
		Provider:      llm.ProviderOpenAI,
		Credential:    "sk-test",
		Model:         "gpt-2",
		AllowFallback: true,
	})
	if !errors.Is(err, llm.ErrInvalidModel) {
		t.Fatalf("err = %v, want ErrInvalidModel", err)
	}
	if gw.calls[llm.ProviderEcho] != 0 {
		t.Error("fallback ran for a caller mistake")
	}
}

func TestGenerate_InvalidRequestRejected(t *testing.T) {
	t.Parallel()

	svc := newTestService(newStubGateway(), &stubRetriever{})
	cases := []Request{
		{},
		{Language: "la", Profile: "expert", Register: "literary"},
		{Language: "la", Profile: "beginner", Register: "slang"},
		{Language: "la", Profile: "beginner", Register: "literary", ExerciseTypes: []string{"essay"}},
		{Language: "la", Profile: "beginner", Register: "literary", ExerciseCount: 99},
	}
	for i, req := range cases {
		if _, err := svc.Generate(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("case %d: err = %v, want ErrInvalidRequest", i, err)
		}
	}
}

func TestGenerate_RetrievalFailureSurfaces(t *testing.T) {
	t.Parallel()

	svc := newTestService(newStubGateway(), &stubRetriever{err: corpus.ErrStoreUnavailable})
	_, err := svc.Generate(context.Background(), Request{
		Language: "la", Profile: "beginner", Register: "literary", Provider: llm.ProviderEcho,
	})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestGenerate_EmptyRetrievalStillProducesLesson(t *testing.T) {
	t.Parallel()

	svc := newTestService(newStubGateway(), &stubRetriever{})
	got, err := svc.Generate(context.Background(), Request{
		Language: "la", Profile: "beginner", Register: "colloquial", Provider: llm.ProviderEcho,
	})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if len(got.Exercises) == 0 {
		t.Error("empty retrieval produced no lesson; degraded path must still work")
	}
}

func TestGenerate_GeneratedAtIsSet(t *testing.T) {
	t.Parallel()

	svc := newTestService(newStubGateway(), &stubRetriever{result: grammarResult()})
	before := time.Now().UTC()
	got, err := svc.Generate(context.Background(), Request{
		Language: "la", Profile: "beginner", Register: "literary", Provider: llm.ProviderEcho,
	})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if got.Meta.GeneratedAt.Before(before) {
		t.Errorf("generated_at %v predates the call", got.Meta.GeneratedAt)
	}
}

func TestLesson_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService(newStubGateway(), &stubRetriever{result: grammarResult()})
	got, err := svc.Generate(context.Background(), Request{
		Language:      "grc",
		Profile:       "beginner",
		Register:      "colloquial",
		Provider:      llm.ProviderEcho,
		ExerciseTypes: []string{TypeMatch, TypeCloze},
		ExerciseCount: 4,
	})
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal lesson: %v", err)
	}
	var back Lesson
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal lesson: %v", err)
	}

	if len(back.Exercises) != len(got.Exercises) {
		t.Fatalf("round trip changed exercise count: %d vs %d", len(back.Exercises), len(got.Exercises))
	}
	for i := range got.Exercises {
		a, b := got.Exercises[i], back.Exercises[i]
		if a.Type != b.Type || a.Prompt != b.Prompt || a.Answer != b.Answer {
			t.Errorf("exercise %d changed through round trip", i)
		}
		if len(a.Distractors) != len(b.Distractors) || len(a.SourceIDs) != len(b.SourceIDs) {
			t.Errorf("exercise %d lists changed through round trip", i)
		}
	}
	if back.Meta.Provider != got.Meta.Provider || back.Meta.Fallback != got.Meta.Fallback {
		t.Error("meta changed through round trip")
	}
}
