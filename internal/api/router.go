package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/blockhead22/crt/internal/api/handlers"
	mw "github.com/blockhead22/crt/internal/api/middleware"
	"github.com/blockhead22/crt/internal/config"
	"github.com/blockhead22/crt/internal/domain"
	"github.com/blockhead22/crt/internal/embedding"
	"github.com/blockhead22/crt/internal/extractor"
	"github.com/blockhead22/crt/internal/service"
	"github.com/blockhead22/crt/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Review    *service.ReviewService
	RateLimit *mw.RateLimiter

	startTime        time.Time
	requestCount     atomic.Int64
	errorCount       atomic.Int64
	gateFailureCount atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	factStore := store.NewFactStore(db)
	ledgerStore := store.NewLedgerStore(db)
	trustLogStore := store.NewTrustLogStore(db)

	// External clients via provider factory
	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), config.OpenAIAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	} else {
		logger.Info("embedding client initialized",
			zap.String("provider", config.EmbeddingProvider()))
	}

	factExtractor, err := extractor.NewExtractor(config.ExtractorProvider(), config.OpenAIAPIKey())
	if err != nil {
		logger.Warn("extractor initialization failed",
			zap.String("provider", config.ExtractorProvider()), zap.Error(err))
	} else {
		logger.Info("extractor initialized",
			zap.String("provider", config.ExtractorProvider()))
	}

	// Services
	trustSvc := service.NewTrustService(factStore, logger)
	classifier := service.NewClassifier(service.NewPatternDetector(), service.ConservativeDenialClassifier{}, embeddingClient, logger)
	resolutionSvc := service.NewResolutionService(ledgerStore, factStore, logger)
	searcher := service.NewVectorSearcher(embeddingClient, factStore)
	gateSvc := service.NewGateService(factStore, ledgerStore, searcher, logger)
	gateSvc.SetSearchTimeout(config.SearchTimeout())
	ingestSvc := service.NewIngestService(factStore, ledgerStore, trustSvc, classifier, factExtractor, embeddingClient, logger)
	reviewSvc := service.NewReviewService(resolutionSvc, config.AutoResolve(), logger)
	reviewSvc.SetInterval(config.ReviewInterval())

	r := chi.NewRouter()

	rateLimiter := mw.NewRateLimiter(config.RateLimitRPS(), config.RateLimitBurst())
	rateLimiter.Start()

	app := &App{
		Router:    r,
		Review:    reviewSvc,
		RateLimit: rateLimiter,
		startTime: time.Now(),
	}

	// Metrics collector for middleware and the answer handler
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount, &app.gateFailureCount)

	// Handlers
	ingestHandler := handlers.NewIngestHandler(ingestSvc)
	factHandler := handlers.NewFactHandler(factStore, trustLogStore, ingestSvc)
	contradictionHandler := handlers.NewContradictionHandler(ledgerStore, resolutionSvc)
	answerHandler := handlers.NewAnswerHandler(gateSvc, metricsCollector)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(rateLimiter.Middleware)

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ingest", ingestHandler.Ingest)

		r.Route("/facts", func(r chi.Router) {
			r.Post("/", factHandler.Create)
			r.Get("/", factHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", factHandler.GetByID)
				r.Get("/trust", factHandler.TrustHistory)
			})
		})

		r.Route("/contradictions", func(r chi.Router) {
			r.Get("/", contradictionHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", contradictionHandler.GetByID)
				r.Post("/resolve", contradictionHandler.Resolve)
			})
		})

		r.Post("/answer", answerHandler.Answer)
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds":     uptime.Seconds(),
			"uptime_human":       uptime.Round(time.Second).String(),
			"request_count":      app.requestCount.Load(),
			"error_count":        app.errorCount.Load(),
			"gate_failure_count": app.gateFailureCount.Load(),
			"goroutines":         runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.FactStore          = (*store.FactStore)(nil)
	_ domain.LedgerStore        = (*store.LedgerStore)(nil)
	_ domain.TrustLogStore      = (*store.TrustLogStore)(nil)
	_ domain.EmbeddingClient    = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient    = (*embedding.MockClient)(nil)
	_ domain.FactExtractor      = (*extractor.OpenAIExtractor)(nil)
	_ domain.FactExtractor      = (*extractor.MockExtractor)(nil)
	_ domain.SimilaritySearcher = (*service.VectorSearcher)(nil)
)
