// Package worker consumes frame extraction jobs queued by the API.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"rehaulx/internal/config"
	"rehaulx/internal/pgmq"
	"rehaulx/internal/repository"
	"rehaulx/internal/service"

	"github.com/rs/zerolog"
)

// Queue is the subset of pgmq operations the worker uses.
type Queue interface {
	Send(ctx context.Context, queue string, payload []byte) error
	ReadWithPoll(ctx context.Context, queue string, vtSec, maxMessages int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgIDs []int64) error
}

// FrameJob is the payload enqueued when a generated project needs key-frame
// stills extracted.
type FrameJob struct {
	ProjectID  int64     `json:"project_id"`
	VideoURL   string    `json:"video_url"`
	Timestamps []float64 `json:"timestamps"`
}

// EnqueueFrameJob pushes a frame extraction job onto the queue.
func EnqueueFrameJob(ctx context.Context, client Queue, queue string, job FrameJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return client.Send(ctx, queue, payload)
}

// Run starts the frame worker loop. It blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, client Queue, videos service.VideoService, projects repository.ProjectRepository) error {
	queue := cfg.FrameQueueName
	logger = logger.With().Str("service", "FrameWorker").Logger()
	logger.Info().Str("queue", queue).Msg("Starting frame worker")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down frame worker")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, queue, cfg.FrameVisibilityTimeout, cfg.FramePollMaxMsg)
		if err != nil {
			logger.Error().Err(err).Msg("Error reading frame queue")
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		// Every message read must be handled and deleted before its
		// visibility timeout expires, or pgmq redelivers it.
		for _, msg := range msgs {
			logger.Info().Int64("msg_id", msg.ID).Msg("Received frame job")

			var job FrameJob
			if err := json.Unmarshal(msg.Data, &job); err != nil {
				logger.Error().Err(err).Msg("Failed to unmarshal frame job; deleting message")
				if derr := client.Delete(ctx, queue, []int64{msg.ID}); derr != nil {
					logger.Error().Err(derr).Msg("Error deleting malformed frame message")
				}
				continue
			}

			if err := processWithRetry(ctx, cfg, logger, job, videos, projects); err != nil {
				// Exhausted retries: park the job and mark the project.
				if serr := client.Send(ctx, cfg.FrameDeadLetterQueueName, msg.Data); serr != nil {
					logger.Error().Err(serr).Str("dlq", cfg.FrameDeadLetterQueueName).Msg("Failed to send frame job to dead-letter queue")
				}
				if uerr := projects.UpdateKeyFrames(ctx, job.ProjectID, nil, "frames_failed"); uerr != nil {
					logger.Error().Err(uerr).Int64("project_id", job.ProjectID).Msg("Failed to mark project frames as failed")
				}
				logger.Warn().
					Int("attempts", cfg.FrameMaxRetries).
					Int64("project_id", job.ProjectID).
					Err(err).
					Msg("Exhausted all frame extraction retries; moving job to DLQ")
			}

			if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
				logger.Error().Err(err).Msg("Error deleting frame message")
			}
		}
	}
}

func processWithRetry(ctx context.Context, cfg *config.Config, logger zerolog.Logger, job FrameJob, videos service.VideoService, projects repository.ProjectRepository) error {
	backoff := time.Duration(cfg.FrameBackoffInitialSec) * time.Second
	var lastErr error
	for attempt := 1; attempt <= cfg.FrameMaxRetries; attempt++ {
		frames, err := videos.ExtractFrames(ctx, job.VideoURL, job.Timestamps)
		if err == nil {
			if err := projects.UpdateKeyFrames(ctx, job.ProjectID, frames, "completed"); err != nil {
				return err
			}
			logger.Info().Int64("project_id", job.ProjectID).Int("frames", len(frames)).Msg("Frame extraction completed")
			return nil
		}
		lastErr = err
		logger.Error().Err(err).Int("attempt", attempt).Int64("project_id", job.ProjectID).Msg("Frame extraction failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if max := time.Duration(cfg.FrameBackoffMaxSec) * time.Second; backoff > max {
			backoff = max
		}
	}
	return lastErr
}
