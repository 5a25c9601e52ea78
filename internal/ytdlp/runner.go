package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"rehaulx/internal/model"

	"github.com/rs/zerolog"
)

// transcriptTimeout bounds the whole metadata + caption fetch for one video.
const transcriptTimeout = 30 * time.Second

// Runner drives the yt-dlp and ffmpeg binaries. Paths are configurable so
// deployments can pin specific builds.
type Runner struct {
	ytdlpPath  string
	ffmpegPath string
	client     *http.Client
	logger     zerolog.Logger
}

// NewRunner creates a Runner with a scoped logger.
func NewRunner(ytdlpPath, ffmpegPath string, logger zerolog.Logger) *Runner {
	return &Runner{
		ytdlpPath:  ytdlpPath,
		ffmpegPath: ffmpegPath,
		client:     &http.Client{Timeout: 20 * time.Second},
		logger:     logger.With().Str("service", "YtDlpRunner").Logger(),
	}
}

// metadata is the subset of `yt-dlp -J` output we consume.
type metadata struct {
	ID                string                    `json:"id"`
	Title             string                    `json:"title"`
	Thumbnail         string                    `json:"thumbnail"`
	Duration          float64                   `json:"duration"`
	Uploader          string                    `json:"uploader"`
	ViewCount         int64                     `json:"view_count"`
	UploadDate        string                    `json:"upload_date"`
	AutomaticCaptions map[string][]captionTrack `json:"automatic_captions"`
	Subtitles         map[string][]captionTrack `json:"subtitles"`
}

type captionTrack struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// json3 caption payload: events with millisecond offsets and utf8 segments.
type json3Captions struct {
	Events []struct {
		TStartMs float64 `json:"tStartMs"`
		DDurMs   float64 `json:"dDurationMs"`
		Segs     []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Analyze fetches metadata and the English auto-caption transcript for a
// video. A missing transcript is not an error; the returned VideoInfo simply
// carries an empty segment list.
func (r *Runner) Analyze(ctx context.Context, url string) (*model.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, transcriptTimeout)
	defer cancel()

	meta, err := r.fetchMetadata(ctx, url)
	if err != nil {
		return nil, err
	}

	info := &model.VideoInfo{
		Title:      meta.Title,
		Thumbnail:  meta.Thumbnail,
		Duration:   formatDuration(meta.Duration),
		URL:        url,
		VideoID:    meta.ID,
		Author:     meta.Uploader,
		ViewCount:  strconv.FormatInt(meta.ViewCount, 10),
		UploadDate: meta.UploadDate,
		Transcript: []model.TranscriptSegment{},
	}

	trackURL := pickCaptionTrack(meta)
	if trackURL == "" {
		r.logger.Warn().Str("video_id", meta.ID).Msg("No caption track available")
		return info, nil
	}
	segments, err := r.fetchTranscript(ctx, trackURL)
	if err != nil {
		r.logger.Warn().Err(err).Str("video_id", meta.ID).Msg("Failed to fetch transcript")
		return info, nil
	}
	info.Transcript = segments
	return info, nil
}

func (r *Runner) fetchMetadata(ctx context.Context, url string) (*metadata, error) {
	cmd := exec.CommandContext(ctx, r.ytdlpPath, "-J", "--no-warnings", "--skip-download", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp metadata for %s: %w: %s", url, err, strings.TrimSpace(stderr.String()))
	}
	var meta metadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("parse yt-dlp metadata for %s: %w", url, err)
	}
	return &meta, nil
}

// pickCaptionTrack prefers manual English subtitles, then auto-captions,
// always in json3 form.
func pickCaptionTrack(meta *metadata) string {
	for _, tracks := range []map[string][]captionTrack{meta.Subtitles, meta.AutomaticCaptions} {
		for _, lang := range []string{"en", "en-US", "en-GB", "en-orig"} {
			for _, t := range tracks[lang] {
				if t.Ext == "json3" {
					return t.URL
				}
			}
		}
	}
	return ""
}

func (r *Runner) fetchTranscript(ctx context.Context, trackURL string) ([]model.TranscriptSegment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating caption request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching captions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption endpoint returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading captions: %w", err)
	}

	var captions json3Captions
	if err := json.Unmarshal(body, &captions); err != nil {
		return nil, fmt.Errorf("parsing json3 captions: %w", err)
	}

	segments := []model.TranscriptSegment{}
	for _, ev := range captions.Events {
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		segments = append(segments, model.TranscriptSegment{
			Text:     text,
			Start:    ev.TStartMs / 1000,
			Duration: ev.DDurMs / 1000,
		})
	}
	return segments, nil
}

// ExtractFrame grabs a single JPEG still at the given timestamp. The video
// stream URL is resolved with yt-dlp, then ffmpeg seeks and decodes exactly
// one frame to stdout.
func (r *Runner) ExtractFrame(ctx context.Context, url string, timestamp float64) ([]byte, error) {
	streamURL, err := r.streamURL(ctx, url)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, r.ffmpegPath,
		"-ss", strconv.FormatFloat(timestamp, 'f', 2, 64),
		"-i", streamURL,
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame at %.2fs: %w: %s", timestamp, err, lastLine(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame at %.2fs", timestamp)
	}
	return stdout.Bytes(), nil
}

func (r *Runner) streamURL(ctx context.Context, url string) (string, error) {
	cmd := exec.CommandContext(ctx, r.ytdlpPath, "-g", "-f", "best[height<=720]", "--no-warnings", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp stream url for %s: %w: %s", url, err, lastLine(stderr.String()))
	}
	streamURL := strings.TrimSpace(strings.SplitN(stdout.String(), "\n", 2)[0])
	if streamURL == "" {
		return "", fmt.Errorf("yt-dlp returned no stream url for %s", url)
	}
	return streamURL, nil
}

// formatDuration renders seconds as m:ss or h:mm:ss to match what video
// platforms display.
func formatDuration(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
