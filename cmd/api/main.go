package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psysupport/psysupport-api/config"
	"github.com/psysupport/psysupport-api/internal/cache"
	"github.com/psysupport/psysupport-api/internal/database/memory"
	"github.com/psysupport/psysupport-api/internal/database/postgres"
	"github.com/psysupport/psysupport-api/internal/handlers"
	"github.com/psysupport/psysupport-api/internal/middleware"
	"github.com/psysupport/psysupport-api/internal/ranking"
	"github.com/psysupport/psysupport-api/internal/repository"
	"github.com/psysupport/psysupport-api/internal/reservation"
	"github.com/psysupport/psysupport-api/internal/services"
	"github.com/psysupport/psysupport-api/pkg/db"
	"github.com/psysupport/psysupport-api/pkg/httpclient"
	"github.com/psysupport/psysupport-api/pkg/jwt"
	"github.com/psysupport/psysupport-api/pkg/logger"
	"github.com/psysupport/psysupport-api/pkg/metrics"
	"github.com/psysupport/psysupport-api/pkg/objectstore"
	"github.com/psysupport/psysupport-api/pkg/profiling"
	"github.com/psysupport/psysupport-api/pkg/recaptcha"
	"github.com/psysupport/psysupport-api/pkg/tracing"
	"github.com/psysupport/psysupport-api/pkg/trigger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// store is everything the services need from persistence. Both the postgres
// client and the in-memory store satisfy it.
type store interface {
	repository.AvailabilityStore
	repository.SessionStore
	repository.QuestionnaireStore
	repository.DirectorySource
}

// registerAPIRoutes registers the versioned booking and matching routes
func registerAPIRoutes(
	group *gin.RouterGroup,
	tokens middleware.TokenValidator,
	generalRateLimiter, bookingRateLimiter, matchingRateLimiter *middleware.RateLimiter,
	captcha middleware.CaptchaVerifier,
	availabilityHandler *handlers.AvailabilityHandler,
	sessionHandler *handlers.SessionHandler,
	matchingHandler *handlers.MatchingHandler,
) {
	auth := middleware.RequireAuth(tokens)
	psychologistOnly := middleware.RequirePsychologist()
	smallBody := middleware.BodySizeLimitMiddleware(64 * 1024)

	// Public slot lookup
	group.GET("/availability/:psychologistId", generalRateLimiter.Middleware(), availabilityHandler.GetAvailableSlots)
	group.GET("/availability/:psychologistId/windows", generalRateLimiter.Middleware(), availabilityHandler.GetWindows)

	// Psychologist's own schedule
	own := group.Group("/psychologist", generalRateLimiter.Middleware(), auth, psychologistOnly)
	own.GET("/availability", availabilityHandler.ListOwn)
	own.POST("/availability", smallBody, availabilityHandler.Save)
	own.DELETE("/availability/:id", availabilityHandler.Delete)

	// Sessions
	sessions := group.Group("/sessions", auth)
	sessions.POST("", bookingRateLimiter.Middleware(), smallBody, sessionHandler.Book)
	sessions.GET("/client", generalRateLimiter.Middleware(), sessionHandler.ListForClient)
	sessions.GET("/psychologist", generalRateLimiter.Middleware(), psychologistOnly, sessionHandler.ListForPsychologist)
	sessions.GET("/:id", generalRateLimiter.Middleware(), sessionHandler.GetByID)
	sessions.POST("/:id/cancel", generalRateLimiter.Middleware(), sessionHandler.Cancel)
	sessions.POST("/:id/confirm", generalRateLimiter.Middleware(), psychologistOnly, sessionHandler.Confirm)
	sessions.POST("/:id/complete", generalRateLimiter.Middleware(), psychologistOnly, sessionHandler.Complete)

	// Matching accepts guests
	matching := []gin.HandlerFunc{matchingRateLimiter.Middleware(), smallBody, middleware.OptionalAuth(tokens)}
	if captcha != nil {
		matching = append(matching, middleware.GuestChallenge(captcha))
	}
	matching = append(matching, matchingHandler.SubmitQuestionnaire)
	group.POST("/matching/questionnaire", matching...)
}

// openStore connects to postgres, or seeds an in-memory store in offline mode.
// The returned check reports store readiness for the healthcheck.
func openStore(ctx context.Context, cfg *config.Config) (store, handlers.ReadinessCheck, func(), error) {
	if cfg.Database.WorkOffline {
		logger.Warn("DB_WORK_OFFLINE is set: serving from an in-memory store with demo data")
		mem := memory.NewStore()
		if err := memory.SeedDemo(ctx, mem); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
		return mem, nil, func() {}, nil
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	client := postgres.NewClient(pool)
	go client.ReportPoolMetrics(ctx, 15*time.Second)
	return client, client.Ping, client.Close, nil
}

// newLocker prefers Redis so reservations hold across replicas
func newLocker(ctx context.Context, cfg config.RedisConfig) (reservation.Locker, func()) {
	if cfg.Addr == "" {
		logger.Info("Using in-process slot reservations")
		return reservation.NewLocalLocker(), func() {}
	}

	client, err := reservation.NewRedisClient(ctx, reservation.RedisOptions{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		TTLSeconds: cfg.ReservationTTLSeconds,
	})
	if err != nil {
		logger.Warn("Redis unreachable, falling back to in-process slot reservations", zap.Error(err))
		return reservation.NewLocalLocker(), func() {}
	}

	logger.Info("Using Redis slot reservations", zap.String("addr", cfg.Addr))
	return reservation.NewRedisLocker(client, cfg.ReservationTTLSeconds), func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
}

// newRanker wraps the configured LLM provider with the timeout, the circuit
// breaker and the rule-based fallback
func newRanker(ctx context.Context, cfg config.LLMConfig) (*ranking.GuardedRanker, func(), error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	closeFn := func() {}

	var primary ranking.NamedProvider
	switch {
	case !cfg.Enabled():
		logger.Warn("LLM_API_KEY not set: recommendations use rule-based scoring only")
	case cfg.Provider == config.LLMProviderGemini:
		gemini, err := ranking.NewGeminiRanker(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gemini ranker: %w", err)
		}
		primary = gemini
		closeFn = func() { _ = gemini.Close() }
	default:
		client := httpclient.NewClientWithTimeout(timeout + time.Second)
		primary = ranking.NewOpenAIRanker(client, cfg.Endpoint, cfg.Model, cfg.APIKey)
	}

	if primary != nil {
		logger.Info("Primary ranker configured",
			zap.String("provider", primary.Name()),
			zap.Duration("timeout", timeout))
	}
	return ranking.NewGuardedRanker(primary, timeout), closeFn, nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting PsySupport API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
	)

	// Root context for background workers
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize distributed tracing
	tracerShutdown, err := tracing.InitTracer(tracing.Config{
		ServiceName:       cfg.Observability.ServiceName,
		ServiceNamespace:  cfg.Observability.ServiceNamespace,
		ServiceVersion:    cfg.Observability.ServiceVersion,
		ServiceInstanceID: cfg.Observability.ServiceInstanceID,
		Environment:       cfg.Server.AppEnv,
		Endpoint:          cfg.Observability.ExporterEndpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	// Continuous profiling
	stopProfiler, err := profiling.InitProfiler(cfg.Profiling, cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer stopProfiler()

	// Initialize metrics with service name from config
	metrics.Init(cfg.Observability.ServiceName)
	metrics.RecordInfrastructureMetrics()

	// Storage
	st, storeReady, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer closeStore()

	// NOTE: migrations run separately via cmd/migrate before the app starts

	// Directory reads go through the candidate cache
	var candidateCache *cache.CandidateCache
	if cfg.Cache.DisableCandidates {
		logger.Warn("Candidate cache is DISABLED - reading the directory on every questionnaire")
	} else {
		candidateCache = cache.NewCandidateCache(st, cfg.Cache.CandidateTTLSeconds)
	}
	directory := repository.NewPsychologistRepository(st, candidateCache)

	// Outbound session webhooks
	httpClient := httpclient.NewStandardClient()
	notifier := trigger.NewNotifier(httpClient, map[string]string{
		trigger.SessionBooked:        cfg.EventTriggers.SessionBookedTriggerURL,
		trigger.SessionStatusChanged: cfg.EventTriggers.SessionStatusChangedTriggerURL,
	})

	locker, closeLocker := newLocker(ctx, cfg.Redis)
	defer closeLocker()

	ranker, closeRanker, err := newRanker(ctx, cfg.LLM)
	if err != nil {
		logger.Fatal("Failed to initialize ranker", zap.Error(err))
	}
	defer closeRanker()

	// Ranking snapshots are archived only when a bucket is configured
	var archive services.SnapshotArchive
	if cfg.ObjectStorage.Enabled() {
		storageClient, storageErr := objectstore.NewClient(objectstore.Config{
			AccessKeyID:     cfg.ObjectStorage.AccessKeyID,
			SecretAccessKey: cfg.ObjectStorage.SecretAccessKey,
			BucketName:      cfg.ObjectStorage.BucketName,
			Endpoint:        cfg.ObjectStorage.Endpoint,
			Region:          cfg.ObjectStorage.Region,
		})
		if storageErr != nil {
			logger.Fatal("Failed to initialize object storage client", zap.Error(storageErr))
		}
		archive = storageClient
	}

	// Initialize services
	availabilityService := services.NewAvailabilityService(st)
	bookingService := services.NewBookingService(st, st, directory, locker, notifier)
	matchingService := services.NewMatchingService(st, directory, ranker, archive, cfg.Matching.PoolSize)

	sweeper := services.NewSessionSweeper(st, time.Duration(cfg.Booking.SweepIntervalSeconds)*time.Second, notifier)
	go sweeper.Run(ctx)

	// Initialize handlers
	tokenManager := jwt.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, 0)
	healthHandler := handlers.NewHealthHandler(storeReady)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService, bookingService)
	sessionHandler := handlers.NewSessionHandler(bookingService)
	matchingHandler := handlers.NewMatchingHandler(matchingService)

	// Guests are challenged only when a reCAPTCHA secret is configured
	var captcha middleware.CaptchaVerifier
	if cfg.Auth.RecaptchaSecretKey != "" {
		captcha = recaptcha.NewVerifier(cfg.Auth.RecaptchaSecretKey, cfg.Auth.RecaptchaMinScore, httpclient.NewClientWithTimeout(5*time.Second))
	} else {
		logger.Warn("RECAPTCHA_SECRET_KEY not set: guest questionnaires are not challenged")
	}

	// Set up Gin router
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName)) // OpenTelemetry tracing
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// CORS configuration - SECURITY: Only allow specific origins
	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.CaptchaHeader, "traceparent", "tracestate"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// SECURITY: Rate limiters to prevent abuse
	generalRateLimiter := middleware.NewRateLimiter(ctx, 100, 200) // 100 req/sec, burst of 200
	bookingRateLimiter := middleware.NewRateLimiter(ctx, 5, 10)    // 5 req/sec, burst of 10
	matchingRateLimiter := middleware.NewRateLimiter(ctx, 1, 5)    // every submission may call the LLM

	// Utility endpoints (not versioned - operational endpoints)
	api := router.Group("/api")
	api.GET("/healthcheck", generalRateLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", generalRateLimiter.Middleware(), gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	registerAPIRoutes(v1, tokenManager, generalRateLimiter, bookingRateLimiter, matchingRateLimiter, captcha,
		availabilityHandler, sessionHandler, matchingHandler)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // SECURITY: 1 MB max header size
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
