// Route registration and go-chi router setup.
package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/paideia-app/paideia/internal/api/handlers"
	apimiddleware "github.com/paideia-app/paideia/internal/api/middleware"
	"github.com/paideia-app/paideia/internal/domain/corpus"
	"github.com/paideia-app/paideia/internal/domain/lesson"
	"github.com/paideia-app/paideia/internal/domain/retrieval"
	"github.com/paideia-app/paideia/internal/infra/config"
	"github.com/paideia-app/paideia/internal/infra/eventbus"
	"github.com/paideia-app/paideia/internal/infra/llm"
)

// NewRouter wires the domain services onto a chi router. The embedder
// service is started in the background so snippets ingested over HTTP
// get their vectors filled in asynchronously; cancelling ctx stops it.
func NewRouter(ctx context.Context, db *sql.DB, cfg config.Config, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimiddleware.RequestLogger(log))
	r.Use(middleware.Recoverer)

	// Health check, unauthenticated, used by load balancers and probes.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	store := corpus.NewStore(db, cfg.Store.SemanticWeight)
	embedder := corpus.NewHashingEmbedder()
	bus := eventbus.New()

	ingestSvc := corpus.NewIngestService(store, bus)
	embedSvc := corpus.NewEmbedderService(store, embedder, log)
	// Sweep rows left pending by a previous run or a dropped event
	// before the event-driven path takes over.
	if err := embedSvc.EmbedPending(ctx); err != nil {
		log.Warn("startup embedding sweep failed", zap.Error(err))
	}
	go embedSvc.Start(ctx, bus)

	retriever := retrieval.New(store, embedder, log)

	gateway := llm.NewGateway([]llm.Provider{
		llm.NewEchoProvider(),
		llm.NewOpenAIProvider(cfg.Generation.OpenAIBaseURL),
		llm.NewGeminiProvider(),
	}, cfg.Catalog, cfg.RetryPolicy(), log)

	assembler := lesson.NewAssembler(cfg.Generation.TokenBudget)
	lessonSvc := lesson.NewService(retriever, gateway, assembler, cfg.Generation.DefaultProvider, log)

	lessonHandler := handlers.NewLessonHandler(lessonSvc)
	searchHandler := handlers.NewSearchHandler(retriever)
	snippetHandler := handlers.NewSnippetHandler(ingestSvc)
	providerHandler := handlers.NewProviderHandler(cfg.Catalog)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/lessons", lessonHandler.Generate)        // POST /api/v1/lessons
		r.Post("/retrieval/search", searchHandler.Search) // POST /api/v1/retrieval/search
		r.Post("/corpus/snippets", snippetHandler.Create) // POST /api/v1/corpus/snippets
		r.Get("/providers", providerHandler.List)         // GET /api/v1/providers
	})

	return r
}
