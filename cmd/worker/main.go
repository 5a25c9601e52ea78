package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rehaulx/internal/config"
	"rehaulx/internal/logger"
	"rehaulx/internal/pgmq"
	"rehaulx/internal/repository"
	"rehaulx/internal/service"
	"rehaulx/internal/worker"
	"rehaulx/internal/ytdlp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Msgf("Failed to create DB pool: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}

	var storage service.FrameStorage
	if cfg.S3URL != "" {
		s3Config, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
			awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
		)
		if err != nil {
			logger.Fatal().Msgf("Failed to load S3 config: %v", err)
		}
		s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3URL)
			o.UsePathStyle = true
		})
		storage = service.NewFrameStorage(s3Client, cfg.S3Bucket, cfg.S3PublicURL, logger)
	}

	var videoClient service.VideoClient
	if cfg.VideoServiceURL != "" {
		videoClient = service.NewVideoClient(cfg.VideoServiceURL, logger)
	}
	runner := ytdlp.NewRunner(cfg.YtDlpPath, cfg.FfmpegPath, logger)
	videoSvc := service.NewVideoService(videoClient, runner, nil, storage, time.Duration(cfg.AnalysisTTL)*time.Second, logger)
	projectRepo := repository.NewProjectRepo(pool)
	queue := pgmq.New(pool)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("Shutdown signal received, stopping worker...")
		cancel()
	}()

	logger.Info().Str("queue", cfg.FrameQueueName).Msg("Frame worker starting")
	if err := worker.Run(ctx, cfg, logger, queue, videoSvc, projectRepo); err != nil && err != context.Canceled {
		logger.Fatal().Msgf("Worker stopped with error: %v", err)
	}
	logger.Info().Msg("Worker shut down gracefully")
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
