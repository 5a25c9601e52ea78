package handler

import (
	"encoding/json"
	"net/http"

	"rehaulx/internal/api/v1/dto"
	"rehaulx/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type VideoHandler struct {
	videoService service.VideoService
	validate     *validator.Validate
	logger       zerolog.Logger
}

func NewVideoHandler(videoService service.VideoService, validate *validator.Validate, logger zerolog.Logger) *VideoHandler {
	return &VideoHandler{
		videoService: videoService,
		validate:     validate,
		logger:       logger,
	}
}

// RegisterRoutes mounts v1 video routes. Analysis is available to anonymous
// visitors, so the auth middleware is optional here.
func (h *VideoHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/analyze-video", authMw(http.HandlerFunc(h.analyzeVideo)))
	mux.Handle("/extract-frames", authMw(http.HandlerFunc(h.extractFrames)))
}

// analyzeVideo godoc
// @Summary Analyze a YouTube video
// @Description Resolves metadata and transcript for a YouTube URL. A video without captions still analyzes; its transcript is empty.
// @Tags videos
// @Accept json
// @Produce json
// @Param request body dto.AnalyzeVideoRequestDTO true "Video URL"
// @Success 200 {object} dto.AnalyzeVideoResponseDTO
// @Failure 400 {string} string "Invalid JSON payload or URL"
// @Failure 500 {object} map[string]string "Analysis failed with upstream details"
// @Router /analyze-video [post]
func (h *VideoHandler) analyzeVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.AnalyzeVideoRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if service.ExtractVideoID(req.VideoURL) == "" {
		http.Error(w, "Invalid YouTube URL", http.StatusBadRequest)
		return
	}

	info, err := h.videoService.Analyze(r.Context(), req.VideoURL)
	if err != nil {
		h.logger.Error().Err(err).Str("url", req.VideoURL).Msg("Video analysis failed")
		writeError(w, http.StatusInternalServerError, "Failed to analyze video", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AnalyzeVideoResponseDTO{VideoInfo: info})
}

// extractFrames godoc
// @Summary Extract key-frame stills
// @Description Extracts one JPEG still per timestamp from the video.
// @Tags videos
// @Accept json
// @Produce json
// @Param request body dto.ExtractFramesRequestDTO true "Video URL and timestamps"
// @Success 200 {object} dto.ExtractFramesResponseDTO
// @Failure 400 {string} string "Invalid JSON payload"
// @Failure 500 {object} map[string]string "Extraction failed with upstream details"
// @Router /extract-frames [post]
func (h *VideoHandler) extractFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.ExtractFramesRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	frames, err := h.videoService.ExtractFrames(r.Context(), req.VideoURL, req.Timestamps)
	if err != nil {
		h.logger.Error().Err(err).Str("url", req.VideoURL).Msg("Frame extraction failed")
		writeError(w, http.StatusInternalServerError, "Failed to extract frames", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ExtractFramesResponseDTO{Frames: frames})
}

// writeJSON renders v as a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders an upstream failure as `{error, details}`. The details
// string carries the underlying error message for the client to display.
func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := map[string]string{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	writeJSON(w, status, body)
}
