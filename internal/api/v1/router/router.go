package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"rehaulx/internal/api/v1/handler"
	"rehaulx/internal/config"
	"rehaulx/internal/llm"
	"rehaulx/internal/middleware"
	"rehaulx/internal/pgmq"
	"rehaulx/internal/repository"
	"rehaulx/internal/service"
	"rehaulx/internal/ytdlp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the full HTTP surface: connection pool, external clients,
// repositories, services and handlers. The returned pool is owned by the
// caller and must be closed on shutdown.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DBConnectionString)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create DB pool")
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		pool.Close()
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	var storage service.FrameStorage
	if cfg.S3URL != "" {
		s3Config, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
			awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
		)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load S3 config")
			pool.Close()
			return nil, nil, err
		}
		s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3URL)
			o.UsePathStyle = true
		})
		storage = service.NewFrameStorage(s3Client, cfg.S3Bucket, cfg.S3PublicURL, logger)
	}

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	provider, err := llm.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize LLM provider")
		pool.Close()
		return nil, nil, err
	}

	var videoClient service.VideoClient
	if cfg.VideoServiceURL != "" {
		videoClient = service.NewVideoClient(cfg.VideoServiceURL, logger)
	}
	runner := ytdlp.NewRunner(cfg.YtDlpPath, cfg.FfmpegPath, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	ledgerRepo := repository.NewLedgerRepo(pool)
	planRepo := repository.NewPlanRepo(pool)
	subRepo := repository.NewSubscriptionRepo(pool)
	paymentRepo := repository.NewPaymentRepo(pool)
	purchaseRepo := repository.NewPurchaseRepo(pool)
	projectRepo := repository.NewProjectRepo(pool)

	billingSvc := service.NewBillingService(ledgerRepo, subRepo, planRepo, logger)
	paymentSvc := service.NewPaymentService(cfg, paymentRepo, purchaseRepo, subRepo, planRepo, billingSvc, logger)
	videoSvc := service.NewVideoService(videoClient, runner, cache, storage, time.Duration(cfg.AnalysisTTL)*time.Second, logger)
	projectSvc := service.NewProjectService(projectRepo, logger)
	exportSvc := service.NewExportService(logger)
	queue := pgmq.New(pool)

	videoHandler := handler.NewVideoHandler(videoSvc, validate, logger)
	contentHandler := handler.NewContentHandler(provider, billingSvc, projectSvc, queue, cfg.FrameQueueName, validate, logger)
	exportHandler := handler.NewExportHandler(exportSvc, validate, logger)
	billingHandler := handler.NewBillingHandler(billingSvc, planRepo, logger)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, validate, logger)
	projectHandler := handler.NewProjectHandler(projectSvc, validate, logger)

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	optionalAuth := middleware.OptionalAuthMiddleware(cfg.JWTSecret)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	limited := func(next http.Handler) http.Handler {
		return rateLimiter.Middleware(optionalAuth(next))
	}

	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	videoHandler.RegisterRoutes(apiV1Mux, limited)
	contentHandler.RegisterRoutes(apiV1Mux, limited)
	exportHandler.RegisterRoutes(apiV1Mux, optionalAuth)
	billingHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	paymentHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	projectHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Redirect /api/* to /v1/* for backward compatibility
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/")
		http.Redirect(w, r, "/v1/"+rest, http.StatusMovedPermanently)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services. See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
