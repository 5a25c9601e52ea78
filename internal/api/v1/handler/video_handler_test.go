package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"rehaulx/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVideoService struct {
	info       *model.VideoInfo
	frames     []model.KeyFrame
	analyzeErr error
	framesErr  error
}

func (f *fakeVideoService) Analyze(_ context.Context, _ string) (*model.VideoInfo, error) {
	return f.info, f.analyzeErr
}

func (f *fakeVideoService) ExtractFrames(_ context.Context, _ string, _ []float64) ([]model.KeyFrame, error) {
	return f.frames, f.framesErr
}

func newVideoHandler(svc *fakeVideoService) *VideoHandler {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewVideoHandler(svc, validate, zerolog.Nop())
}

func TestAnalyzeVideoSuccess(t *testing.T) {
	svc := &fakeVideoService{info: &model.VideoInfo{Title: "A Video", VideoID: "dQw4w9WgXcQ"}}
	h := newVideoHandler(svc)
	body := []byte(`{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`)

	req := httptest.NewRequest(http.MethodPost, "/analyze-video", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.analyzeVideo(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]model.VideoInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "A Video", resp["videoInfo"].Title)
}

func TestAnalyzeVideoInvalidURL(t *testing.T) {
	h := newVideoHandler(&fakeVideoService{})
	body := []byte(`{"videoUrl":"https://example.com/not-a-video"}`)

	req := httptest.NewRequest(http.MethodPost, "/analyze-video", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.analyzeVideo(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeVideoUpstreamErrorPassesDetails(t *testing.T) {
	svc := &fakeVideoService{analyzeErr: errors.New("yt-dlp metadata for https://youtu.be/dQw4w9WgXcQ: exit status 1: ERROR: Video unavailable")}
	h := newVideoHandler(svc)
	body := []byte(`{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`)

	req := httptest.NewRequest(http.MethodPost, "/analyze-video", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.analyzeVideo(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to analyze video", resp["error"])
	assert.Contains(t, resp["details"], "Video unavailable")
}

func TestExtractFramesUpstreamErrorPassesDetails(t *testing.T) {
	svc := &fakeVideoService{framesErr: errors.New("resolve stream url: exit status 1")}
	h := newVideoHandler(svc)
	body := []byte(`{"videoUrl":"https://youtu.be/dQw4w9WgXcQ","timestamps":[30]}`)

	req := httptest.NewRequest(http.MethodPost, "/extract-frames", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.extractFrames(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to extract frames", resp["error"])
	assert.Contains(t, resp["details"], "exit status 1")
}
