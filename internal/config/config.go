package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"production"`

	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`

	// Supabase auth: tokens issued by Supabase are HS256-signed with the
	// project JWT secret.
	JWTSecret string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`

	// Supabase storage (S3 protocol) for extracted key-frame stills.
	// Optional: when unset, frames are returned as data URIs instead.
	S3URL       string `envconfig:"SUPABASE_S3_URL"`
	S3Bucket    string `envconfig:"SUPABASE_S3_BUCKET" default:"keyframes"`
	S3Region    string `envconfig:"SUPABASE_S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"SUPABASE_S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"SUPABASE_S3_SECRET_KEY"`
	S3PublicURL string `envconfig:"SUPABASE_S3_PUBLIC_URL"`

	// External video-analysis service. When unset, the local yt-dlp/ffmpeg
	// adapter is used instead.
	VideoServiceURL string `envconfig:"VIDEO_SERVICE_URL"`
	YtDlpPath       string `envconfig:"YT_DLP_PATH" default:"yt-dlp"`
	FfmpegPath      string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`

	// LLM provider settings
	LLMProvider    string `envconfig:"LLM_PROVIDER" default:"ollama"`
	OllamaBaseURL  string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	OllamaModel    string `envconfig:"OLLAMA_MODEL" default:"llama3.1"`
	DeepSeekAPIKey string `envconfig:"DEEPSEEK_API_KEY"`

	// Razorpay payments
	RazorpayKeyID         string `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `envconfig:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string `envconfig:"RAZORPAY_WEBHOOK_SECRET"`

	// Redis cache for video-analysis responses. Optional.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	AnalysisTTL   int    `envconfig:"ANALYSIS_CACHE_TTL_SEC" default:"3600"`

	// Per-IP rate limit on the generation endpoints.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"10"`
	RateLimitBurst     int `envconfig:"RATE_LIMIT_BURST" default:"5"`

	// Frame-extraction worker settings
	FrameQueueName           string `envconfig:"FRAME_QUEUE_NAME" default:"frame_jobs"`
	FrameVisibilityTimeout   int    `envconfig:"FRAME_VISIBILITY_TIMEOUT_SEC" default:"30"`
	FramePollMaxMsg          int    `envconfig:"FRAME_POLL_MAX_MSG" default:"1"`
	FrameMaxRetries          int    `envconfig:"FRAME_MAX_RETRIES" default:"3"`
	FrameBackoffInitialSec   int    `envconfig:"FRAME_BACKOFF_INITIAL_SEC" default:"1"`
	FrameBackoffMaxSec       int    `envconfig:"FRAME_BACKOFF_MAX_SEC" default:"60"`
	FrameDeadLetterQueueName string `envconfig:"FRAME_DEAD_LETTER_QUEUE_NAME" default:"frame_jobs_dlq"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
