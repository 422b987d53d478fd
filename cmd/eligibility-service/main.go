package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	dochandler "github.com/visaeval/visaeval-backend/internal/docprocessing/handler"
	"github.com/visaeval/visaeval-backend/internal/docprocessing/processor"
	docservice "github.com/visaeval/visaeval-backend/internal/docprocessing/service"
	"github.com/visaeval/visaeval-backend/internal/docprocessing/storage"
	"github.com/visaeval/visaeval-backend/internal/eligibility/catalog"
	"github.com/visaeval/visaeval-backend/internal/eligibility/consumers"
	"github.com/visaeval/visaeval-backend/internal/eligibility/events"
	"github.com/visaeval/visaeval-backend/internal/eligibility/handler"
	"github.com/visaeval/visaeval-backend/internal/eligibility/repository"
	"github.com/visaeval/visaeval-backend/internal/eligibility/service"
	"github.com/visaeval/visaeval-backend/internal/travel"
	"github.com/visaeval/visaeval-backend/pkg/cache"
	"github.com/visaeval/visaeval-backend/pkg/config"
	"github.com/visaeval/visaeval-backend/pkg/database"
	"github.com/visaeval/visaeval-backend/pkg/httputil"
	"github.com/visaeval/visaeval-backend/pkg/logger"
	"github.com/visaeval/visaeval-backend/pkg/messaging"
	"github.com/visaeval/visaeval-backend/pkg/metrics"
)

const serviceName = "eligibility-service"

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.IsDevelopment()).SetLevel(cfg.Server.LogLevel)
	log.Info().Msg("starting Eligibility Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load visa catalog
	cat, err := catalog.LoadOrEmbedded(cfg.Scoring.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Scoring.CatalogPath).Msg("failed to load visa catalog")
	}
	log.Info().Str("version", cat.Version()).Int("countries", len(cat.ListCountries())).Msg("visa catalog loaded")

	// Connect to database; without one, evaluations live in memory
	var (
		db   *database.DB
		repo repository.Repository
	)
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		pgRepo := repository.NewPostgresRepository(db)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to apply evaluation schema")
		}
		repo = pgRepo
	} else {
		log.Warn().Msg("database disabled, evaluations are kept in memory")
		repo = repository.NewMemoryRepository()
	}

	// Connect to RabbitMQ
	var (
		rmq          *messaging.RabbitMQ
		publisher    *events.EligibilityEventPublisher
		docPublisher messaging.EventPublisher
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewEligibilityEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		docEvents, err := messaging.NewPublisher(rmq, messaging.ExchangeDocumentEvents, serviceName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create document event publisher")
		}
		docPublisher = docEvents
	}

	// Initialize cache
	var travelCache cache.Cache
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedis(ctx, cfg.Redis, "visaeval:")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		travelCache = rc
	} else {
		travelCache = cache.NewMemoryCache(time.Minute)
	}
	defer travelCache.Close()

	// Document extraction: MRZ always, LLM when a key is configured
	processors := []processor.Processor{processor.NewMRZProcessor()}
	if cfg.LLM.APIKey != "" {
		llm, err := processor.NewLLMProcessor(cfg.LLM)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create LLM processor")
		}
		processors = append(processors, llm)
	} else {
		log.Warn().Msg("LLM API key not set, only passport MRZ extraction is available")
	}

	store := storage.NewTempStorage(cfg.Extraction.JobTTL, cfg.Extraction.CleanupInterval)
	defer store.Close()

	registry := processor.NewRegistry(processors...)
	docService := docservice.NewService(registry, store, db, docPublisher, log)
	if db != nil {
		if err := docService.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to apply audit schema")
		}
	}

	// Travel requirements: live API when configured, offline rules otherwise
	var fetcher travel.Fetcher
	if client := travel.NewClient(cfg.Travel); client != nil {
		fetcher = client
	}
	travelService := travel.NewService(fetcher, travelCache, cfg.Travel.CacheTTL, log)

	// Initialize service
	eligibilityService := service.NewEligibilityService(cat, repo, publisher, docService, travelService, log)

	// Initialize handlers
	eligibilityHandler := handler.NewEligibilityHandler(eligibilityService, log)
	documentHandler := dochandler.NewHandler(docService, cfg.Extraction.MaxUploadBytes, log)
	travelHandler := travel.NewHandler(travelService)

	// Start evaluation request consumer
	if rmq != nil {
		consumer, err := consumers.NewEvaluationRequestConsumer(rmq, eligibilityService, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create evaluation request consumer")
		}
		if err := consumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start evaluation request consumer")
		}
	}

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.PartnerKey)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", httputil.PartnerKeyHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":          "healthy",
			"service":         serviceName,
			"catalog_version": cat.Version(),
			"extraction_jobs": store.Len(),
			"processors":      registry.Coverage(),
		}
		if db != nil {
			status["database"] = db.Health(r.Context())
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})
	r.Handle("/metrics", metrics.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/eligibility", eligibilityHandler.Routes)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/extract", documentHandler.Extract)
			r.Get("/extract/{jobId}", documentHandler.GetResult)
			r.Get("/extract/{jobId}/audit", documentHandler.GetAudit)
		})

		r.Get("/travel/requirements", travelHandler.Requirements)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// In-flight extractions finish before their storage is closed.
	docService.Wait()

	log.Info().Msg("server stopped")
}
