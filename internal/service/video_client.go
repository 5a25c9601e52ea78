package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"rehaulx/internal/model"

	"github.com/rs/zerolog"
)

// VideoClient talks to the external video analysis sidecar.
type VideoClient interface {
	AnalyzeVideo(ctx context.Context, url string) (*model.VideoInfo, error)
	ExtractFrames(ctx context.Context, url string, timestamps []float64) ([]model.KeyFrame, error)
}

type videoClient struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewVideoClient creates a VideoClient against the given base URL. No client
// timeout is set; frame extraction can run long and callers cancel via
// context.
func NewVideoClient(baseURL string, logger zerolog.Logger) VideoClient {
	return &videoClient{
		baseURL: baseURL,
		client:  &http.Client{},
		logger:  logger.With().Str("service", "VideoClient").Logger(),
	}
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type analyzeResponse struct {
	VideoInfo *model.VideoInfo `json:"videoInfo"`
}

func (c *videoClient) AnalyzeVideo(ctx context.Context, url string) (*model.VideoInfo, error) {
	var resp analyzeResponse
	if err := c.post(ctx, "/api/analyze-video", analyzeRequest{URL: url}, &resp); err != nil {
		return nil, err
	}
	if resp.VideoInfo == nil {
		return nil, fmt.Errorf("video service returned no videoInfo for %s", url)
	}
	return resp.VideoInfo, nil
}

type extractFramesRequest struct {
	URL        string    `json:"url"`
	Timestamps []float64 `json:"timestamps"`
}

type extractFramesResponse struct {
	Frames []model.KeyFrame `json:"frames"`
}

func (c *videoClient) ExtractFrames(ctx context.Context, url string, timestamps []float64) ([]model.KeyFrame, error) {
	var resp extractFramesResponse
	if err := c.post(ctx, "/api/extract-frames", extractFramesRequest{URL: url, Timestamps: timestamps}, &resp); err != nil {
		return nil, err
	}
	return resp.Frames, nil
}

func (c *videoClient) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("making request to video service: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			c.logger.Warn().Err(readErr).Int("status_code", resp.StatusCode).Msg("Failed to read error body from video service")
			return fmt.Errorf("video service returned status %d", resp.StatusCode)
		}
		errorMsg := string(bodyBytes)
		c.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("error_body", errorMsg).
			Msg("Video service returned error")
		return fmt.Errorf("video service returned status %d: %s", resp.StatusCode, errorMsg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
