package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"rehaulx/internal/formatter"
	"rehaulx/internal/model"
	"rehaulx/internal/ytdlp"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	videoIDRes = []*regexp.Regexp{
		regexp.MustCompile(`youtube\.com/watch\?.*?v=([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
	}
	bareVideoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractVideoID pulls the 11-character YouTube video ID out of watch,
// youtu.be and embed URLs. A bare ID passes through unchanged. Returns ""
// when nothing matches.
func ExtractVideoID(url string) string {
	for _, re := range videoIDRes {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	if bareVideoIDRe.MatchString(url) {
		return url
	}
	return ""
}

// VideoService analyzes videos and extracts key-frame stills, preferring the
// external sidecar when configured and falling back to local yt-dlp/ffmpeg.
type VideoService interface {
	Analyze(ctx context.Context, url string) (*model.VideoInfo, error)
	ExtractFrames(ctx context.Context, url string, timestamps []float64) ([]model.KeyFrame, error)
}

type videoService struct {
	client  VideoClient
	runner  *ytdlp.Runner
	cache   *redis.Client
	storage FrameStorage
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewVideoService creates a VideoService. client, cache and storage may each
// be nil when the corresponding backend is not configured.
func NewVideoService(client VideoClient, runner *ytdlp.Runner, cache *redis.Client, storage FrameStorage, ttl time.Duration, logger zerolog.Logger) VideoService {
	return &videoService{
		client:  client,
		runner:  runner,
		cache:   cache,
		storage: storage,
		ttl:     ttl,
		logger:  logger.With().Str("service", "VideoService").Logger(),
	}
}

func analysisCacheKey(videoID string) string {
	return "video_analysis:" + videoID
}

// Analyze resolves metadata and transcript for a video, consulting the Redis
// cache first. A video with no transcript still analyzes successfully.
func (s *videoService) Analyze(ctx context.Context, url string) (*model.VideoInfo, error) {
	videoID := ExtractVideoID(url)
	if videoID == "" {
		return nil, fmt.Errorf("could not extract video ID from %q", url)
	}

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, analysisCacheKey(videoID)).Bytes(); err == nil {
			var info model.VideoInfo
			if err := json.Unmarshal(raw, &info); err == nil {
				s.logger.Debug().Str("video_id", videoID).Msg("Analysis cache hit")
				return &info, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Str("video_id", videoID).Msg("Analysis cache read failed")
		}
	}

	var info *model.VideoInfo
	var err error
	if s.client != nil {
		info, err = s.client.AnalyzeVideo(ctx, url)
	} else {
		info, err = s.runner.Analyze(ctx, url)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("video_id", videoID).Msg("Video analysis failed")
		return nil, err
	}
	if info.VideoID == "" {
		info.VideoID = videoID
	}

	if s.cache != nil {
		if raw, merr := json.Marshal(info); merr == nil {
			if err := s.cache.Set(ctx, analysisCacheKey(videoID), raw, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Str("video_id", videoID).Msg("Analysis cache write failed")
			}
		}
	}
	return info, nil
}

// ExtractFrames produces one key frame per timestamp. Individual frame
// failures are skipped rather than failing the whole batch.
func (s *videoService) ExtractFrames(ctx context.Context, url string, timestamps []float64) ([]model.KeyFrame, error) {
	if s.client != nil {
		return s.client.ExtractFrames(ctx, url, timestamps)
	}

	videoID := ExtractVideoID(url)
	frames := []model.KeyFrame{}
	for _, ts := range timestamps {
		jpeg, err := s.runner.ExtractFrame(ctx, url, ts)
		if err != nil {
			s.logger.Warn().Err(err).Float64("timestamp", ts).Msg("Frame extraction failed, skipping")
			continue
		}
		imageURL, err := s.frameURL(ctx, videoID, ts, jpeg)
		if err != nil {
			s.logger.Warn().Err(err).Float64("timestamp", ts).Msg("Frame storage failed, skipping")
			continue
		}
		frames = append(frames, model.KeyFrame{
			Timestamp:   ts,
			ImageURL:    imageURL,
			Description: fmt.Sprintf("Frame at %.0fs (%s)", ts, formatter.FormatTimestamp(ts)),
		})
	}
	return frames, nil
}

// frameURL stores the still when storage is configured, otherwise inlines it
// as a data URI.
func (s *videoService) frameURL(ctx context.Context, videoID string, ts float64, jpeg []byte) (string, error) {
	if s.storage != nil {
		return s.storage.StoreFrame(ctx, videoID, ts, jpeg)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg), nil
}
