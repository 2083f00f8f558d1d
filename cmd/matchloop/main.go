package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/config"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/db"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/db/memory"
	dbRedis "github.com/AINative-Studio/PublicFounders-sub001/internal/db/redis"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	logpkg "github.com/AINative-Studio/PublicFounders-sub001/internal/logger"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/metrics"
	budgetrepo "github.com/AINative-Studio/PublicFounders-sub001/internal/repository/budget"
	candidaterepo "github.com/AINative-Studio/PublicFounders-sub001/internal/repository/candidate"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/repository/embcache"
	introrepo "github.com/AINative-Studio/PublicFounders-sub001/internal/repository/introduction"
	outrepo "github.com/AINative-Studio/PublicFounders-sub001/internal/repository/outcome"
	postrepo "github.com/AINative-Studio/PublicFounders-sub001/internal/repository/post"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/repository/resultcache"
	chiTransport "github.com/AINative-Studio/PublicFounders-sub001/internal/transport/chi"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/transport/learning"
	openaiEmb "github.com/AINative-Studio/PublicFounders-sub001/internal/transport/openai"
	analyticsuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/analytics"
	contentuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/content"
	discoveryuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/discovery"
	embeddinguc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/embedding"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/feedback"
	healthuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/health"
	introductionuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/introduction"
	outcomeuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/outcome"
	usageuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/usage"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting matchloop API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
	case "memory":
		store = memory.NewStore()
		logger.Warn("Using in-memory store; data is lost on restart")
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterDomainMetrics()

	vecCfg, provCfg, ok := cfg.Embedding.Vectorizer()
	if !ok {
		logger.Fatal("No embedding vectorizer configured")
	}
	provName := vecCfg.Provider

	// Single BudgetTracker shared by both embedders and the usage report.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := provCfg.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			provName, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		budget.WithStore(ctx, budgetrepo.New(store, 0, 0))
	}

	// (*BudgetTracker)(nil) wrapped in an interface is not nil.
	var budgetChecker embeddinguc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	embTTL := time.Duration(cfg.Cache.EmbeddingTTLHrs) * time.Hour
	provider := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provName,
		Logger:     logger,
	})
	queryEmbedder := buildEmbedder(provider, provName, vecCfg, vecCfg.QueryInstruction, store, embTTL, budgetChecker, logger)
	docEmbedder := buildEmbedder(provider, provName, vecCfg, vecCfg.DocumentInstruction, store, embTTL, budgetChecker, logger)
	logger.Info("Embedders created",
		zap.String("provider", provName),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	// Repositories
	opTimeout := cfg.Database.OpTimeout()
	candidates := candidaterepo.New(store, queryEmbedder, docEmbedder, candidaterepo.Config{
		Dimensions: vecCfg.Dimensions,
		HNSWM:      cfg.Index.HNSWM,
		Limit:      cfg.Index.CandidateLimit,
		Timeout:    opTimeout,
	}, logger)
	if err := candidates.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure profile index", zap.Error(err))
	}
	cache := resultcache.New(store, metrics.DiscoveryCacheTotal, logger,
		resultcache.WithTTL(cfg.Cache.TTL()),
		resultcache.WithTimeout(cfg.Cache.Timeout()),
	)
	intros := introrepo.New(store, opTimeout)
	outcomes := outrepo.New(store, opTimeout, logger)
	posts := postrepo.New(store, opTimeout)

	// Feedback delivery
	sink, closeSink := buildSink(cfg.Feedback.Sink, logger)
	defer closeSink()
	dispatcher := feedback.New(sink, feedback.Config{
		QueueSize:      cfg.Feedback.QueueSize,
		Workers:        cfg.Feedback.Workers,
		MaxAttempts:    cfg.Feedback.MaxAttempts,
		AttemptTimeout: time.Duration(cfg.Feedback.AttemptTimeoutSec) * time.Second,
		RatePerSecond:  cfg.Feedback.RatePerSecond,
		Burst:          cfg.Feedback.Burst,
	}, logger)

	// Use case services
	policy, err := contentuc.ParsePolicy(cfg.Cache.InvalidateOnPost)
	if err != nil {
		logger.Fatal("Invalid invalidation policy", zap.Error(err))
	}
	discoverySvc := discoveryuc.New(cache, candidates, logger)
	services := chiTransport.Services{
		Discovery:     discoverySvc,
		Introductions: introductionuc.New(intros, discoverySvc),
		Outcomes:      outcomeuc.New(outcomes, intros, dispatcher, logger),
		Analytics:     analyticsuc.New(outcomes, cfg.Analytics.TopTags),
		Content:       contentuc.New(posts, candidates, cache, policy, logger),
		Usage:         usageuc.New(budgetReader),
		Health:        healthuc.New(store, provider, dispatcher),
	}

	server := chiTransport.NewServer(services, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: chiTransport.ParamErrorHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// No handler can enqueue any more; drain what is queued.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Feedback.DrainTimeoutSec)*time.Second)
	defer drainCancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		logger.Warn("Feedback queue not fully drained", zap.Int("pending", dispatcher.QueueDepth()), zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildSink creates the feedback sink selected by config and its cleanup.
func buildSink(cfg config.SinkConfig, logger *zap.Logger) (feedback.Sink, func()) {
	switch cfg.Type {
	case "http":
		client := &http.Client{Timeout: 10 * time.Second}
		logger.Info("Feedback sink: HTTP", zap.String("url", cfg.URL))
		return learning.NewHTTPSink(client, cfg.URL, cfg.Token), func() {}
	case "nats":
		nc, err := nats.Connect(cfg.URL,
			nats.Name("matchloop"),
			nats.Token(cfg.Token),
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(time.Second),
		)
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.String("url", cfg.URL), zap.Error(err))
		}
		logger.Info("Feedback sink: NATS", zap.String("url", cfg.URL), zap.String("subject", cfg.Subject))
		return learning.NewNATSSink(nc, cfg.Subject), func() { _ = nc.Drain() }
	default:
		logger.Info("Feedback sink: log")
		return learning.NewLogSink(logger), func() {}
	}
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction.
// The provider client is shared; it holds no per-chain state.
func buildEmbedder(
	base domain.Embedder,
	provName string,
	vecCfg config.VectorizerConfig,
	instruction string,
	store db.Store,
	cacheTTL time.Duration,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = embcache.New(base, store, vecCfg.Model, cacheTTL, metrics.EmbeddingCacheTotal, logger)

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, provName, vecCfg.Model, budget, logger)

	// Instruction prefix is outermost so the cache key includes it.
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logpkg.FromContext(r.Context(), logger).Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorResponseCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			if user := r.Header.Get(chiTransport.HeaderUserID); user != "" {
				reqLogger = reqLogger.With(zap.String("user_id", user))
			}
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)
			ctx, usage := domain.NewContextWithUsage(ctx)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))
			tokens, calls := usage.Snapshot()

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.Int("embedding_calls", calls),
				zap.Int("embedding_tokens", tokens),
			)
		})
	}
}
