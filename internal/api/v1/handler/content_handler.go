package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"rehaulx/internal/api/v1/dto"
	"rehaulx/internal/llm"
	"rehaulx/internal/middleware"
	"rehaulx/internal/model"
	"rehaulx/internal/pgmq"
	"rehaulx/internal/service"
	"rehaulx/internal/worker"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// minTranscriptWords gates generation: shorter transcripts produce junk.
const minTranscriptWords = 50

// maxFrameTimestamps caps how many stills are extracted per generation.
const maxFrameTimestamps = 5

var generatedRangeRe = regexp.MustCompile(`<!-- TIMESTAMP_RANGE: (\d+)-(\d+) -->`)

type ContentHandler struct {
	provider   llm.Provider
	billing    service.BillingService
	projects   service.ProjectService
	queue      *pgmq.Client
	frameQueue string
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewContentHandler creates a ContentHandler. queue may be nil when no frame
// worker is deployed; saved projects then simply keep their initial frames.
func NewContentHandler(provider llm.Provider, billing service.BillingService, projects service.ProjectService, queue *pgmq.Client, frameQueue string, validate *validator.Validate, logger zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		provider:   provider,
		billing:    billing,
		projects:   projects,
		queue:      queue,
		frameQueue: frameQueue,
		validate:   validate,
		logger:     logger,
	}
}

// RegisterRoutes mounts v1 generation routes. Generation works for anonymous
// visitors too, so auth is optional; authenticated users get balance
// enforcement and debits.
func (h *ContentHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/generate-content", authMw(http.HandlerFunc(h.generateContent)))
	mux.Handle("/generate-timestamps", authMw(http.HandlerFunc(h.generateTimestamps)))
}

type sseEvent struct {
	Type         string                  `json:"type"`
	Progress     int                     `json:"progress,omitempty"`
	Message      string                  `json:"message,omitempty"`
	Content      string                  `json:"content,omitempty"`
	TimestampMap []llm.TimestampMapEntry `json:"timestampMap,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

// generateContent godoc
// @Summary Generate repurposed content from a transcript
// @Description Streams generation progress and accumulated content over Server-Sent Events. Authenticated users are charged minutes after successful completion.
// @Tags content
// @Accept json
// @Produce text/event-stream
// @Param request body dto.GenerateContentRequestDTO true "Generation request"
// @Success 200 {string} string "Server-Sent Events stream"
// @Failure 400 {object} map[string]string "Missing transcript, content type, or transcript too short"
// @Failure 402 {object} map[string]interface{} "Insufficient minutes"
// @Router /generate-content [post]
func (h *ContentHandler) generateContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.GenerateContentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if len(req.Transcript) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Transcript is required for content generation",
			"details": "Cannot generate content without video transcript. Please ensure the video has captions or transcript available.",
		})
		return
	}

	estSeconds := estimateSeconds(req.Transcript)
	minutesNeeded := service.CeilMinutes(float64(estSeconds))

	userID := middleware.UserID(r.Context())
	if userID != "" {
		balance, err := h.billing.MinutesBalance(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to check minutes balance", err)
			return
		}
		if balance.Remaining < minutesNeeded {
			writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
				"error":         "Insufficient minutes",
				"details":       fmt.Sprintf("You need %d minutes for this generation but only have %d.", minutesNeeded, balance.Remaining),
				"minutesNeeded": minutesNeeded,
				"remaining":     balance.Remaining,
				"upgrade":       true,
			})
			return
		}
	}

	if req.ContentType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Content type is required"})
		return
	}

	if countWords(req.Transcript) < minTranscriptWords {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Transcript too short for content generation",
			"details": "The video transcript is too short to generate meaningful content. Please try with a longer video.",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	send := func(ev sseEvent) bool {
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to marshal SSE event")
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			h.logger.Error().Err(err).Msg("Failed to write SSE event")
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(sseEvent{Type: "progress", Progress: 10, Message: "Analyzing video content..."}) {
		return
	}

	timestampMap := llm.BuildTimestampMap(req.Transcript)
	prompt := llm.BuildPrompt(req.ContentType, llm.TranscriptText(timestampMap), req.KeyFrames, req.VideoInfo)

	if !send(sseEvent{Type: "progress", Progress: 30, Message: "Generating content with AI..."}) {
		return
	}

	var generated strings.Builder
	progress := 30
	streamErr := h.provider.GenerateStream(r.Context(), prompt, nil, func(chunk string) error {
		generated.WriteString(chunk)
		if progress < 90 {
			progress += 2
			if progress > 90 {
				progress = 90
			}
		}
		if !send(sseEvent{Type: "progress", Progress: progress, Message: "Generating content..."}) {
			return context.Canceled
		}
		if !send(sseEvent{Type: "content", Content: generated.String(), TimestampMap: timestampMap}) {
			return context.Canceled
		}
		return nil
	})
	if streamErr != nil {
		h.logger.Error().Err(streamErr).Str("content_type", req.ContentType).Msg("Content generation failed")
		send(sseEvent{Type: "error", Error: streamErr.Error()})
		return
	}

	send(sseEvent{Type: "progress", Progress: 100, Message: "Content generation complete!"})
	send(sseEvent{Type: "complete", Content: generated.String(), TimestampMap: timestampMap})

	// Settlement is fire-and-forget: the content is already delivered, so
	// debit or persistence failures only get logged.
	if userID != "" {
		h.settle(userID, req, generated.String(), minutesNeeded, estSeconds)
	}
}

// settle debits minutes and optionally persists the generation as a project,
// queueing frame extraction for the marked timestamp ranges.
func (h *ContentHandler) settle(userID string, req dto.GenerateContentRequestDTO, content string, minutesNeeded, estSeconds int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.billing.DebitMinutes(ctx, userID, minutesNeeded, "content_generation:"+req.ContentType, map[string]any{
		"seconds": estSeconds,
		"source":  "content-generation",
	}); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to debit minutes")
	}

	if !req.SaveProject {
		return
	}
	title := "Generated Content"
	if req.VideoInfo != nil && req.VideoInfo.Title != "" {
		title = req.VideoInfo.Title
	}
	thumbnail := ""
	if req.VideoInfo != nil {
		thumbnail = req.VideoInfo.Thumbnail
	}
	project := &model.Project{
		UserID:      userID,
		Title:       title,
		ContentType: req.ContentType,
		VideoURL:    req.VideoURL,
		Thumbnail:   thumbnail,
		Content:     content,
		KeyFrames:   req.KeyFrames,
		Status:      "processing",
	}
	if err := h.projects.Create(ctx, project); err != nil {
		return
	}

	timestamps := rangeTimestamps(content, maxFrameTimestamps)
	if h.queue == nil || len(timestamps) == 0 || req.VideoURL == "" {
		return
	}
	job := worker.FrameJob{ProjectID: project.ID, VideoURL: req.VideoURL, Timestamps: timestamps}
	if err := worker.EnqueueFrameJob(ctx, h.queue, h.frameQueue, job); err != nil {
		h.logger.Error().Err(err).Int64("project_id", project.ID).Msg("Failed to enqueue frame job")
	}
}

// rangeTimestamps pulls distinct range starts out of generated content.
func rangeTimestamps(content string, limit int) []float64 {
	seen := map[int]bool{}
	var out []float64
	for _, m := range generatedRangeRe.FindAllStringSubmatch(content, -1) {
		start, err := strconv.Atoi(m[1])
		if err != nil || seen[start] {
			continue
		}
		seen[start] = true
		out = append(out, float64(start))
		if len(out) >= limit {
			break
		}
	}
	return out
}

// estimateSeconds derives the billable duration from the transcript: end of
// the last segment, falling back to the summed durations.
func estimateSeconds(transcript []model.TranscriptSegment) int {
	last := transcript[len(transcript)-1]
	if last.Start > 0 || last.Duration > 0 {
		est := int(math.Round(last.Start + last.Duration))
		if est < 1 {
			est = 1
		}
		return est
	}
	var total float64
	for _, seg := range transcript {
		total += seg.Duration
	}
	est := int(math.Round(total))
	if est < 1 {
		est = 1
	}
	return est
}

func countWords(transcript []model.TranscriptSegment) int {
	total := 0
	for _, seg := range transcript {
		total += len(strings.Fields(seg.Text))
	}
	return total
}

// generateTimestamps godoc
// @Summary Identify key timestamps in a transcript
// @Description Asks the model for 8-10 repurposing-worthy timestamps. Falls back to evenly spaced timestamps when the model response cannot be parsed.
// @Tags content
// @Accept json
// @Produce json
// @Param request body dto.GenerateTimestampsRequestDTO true "Transcript segments"
// @Success 200 {object} dto.GenerateTimestampsResponseDTO
// @Failure 400 {string} string "Valid transcript array is required"
// @Router /generate-timestamps [post]
func (h *ContentHandler) generateTimestamps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.GenerateTimestampsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Valid transcript array is required"})
		return
	}

	entries := llm.BuildTimestampMap(req.Transcript)
	maxStart := req.Transcript[len(req.Transcript)-1].Start

	response, err := h.provider.Generate(r.Context(), llm.BuildTimestampPrompt(llm.TranscriptText(entries)), &llm.Options{Temperature: 0.3})
	var timestamps []int
	if err != nil {
		h.logger.Warn().Err(err).Msg("Timestamp generation failed, using evenly spaced fallback")
		timestamps = evenTimestamps(maxStart)
	} else {
		timestamps = parseTimestamps(response, maxStart)
	}

	writeJSON(w, http.StatusOK, dto.GenerateTimestampsResponseDTO{Timestamps: timestamps})
}

var (
	jsonArrayRe = regexp.MustCompile(`\[[\d,\s]+\]`)
	numberRe    = regexp.MustCompile(`\d+`)
)

// parseTimestamps extracts a timestamp list from a model response. It tries
// a literal JSON array first, then bare numbers, then the even fallback.
// Results are clamped to the video, sorted and capped at 10.
func parseTimestamps(response string, maxStart float64) []int {
	var timestamps []int
	if m := jsonArrayRe.FindString(response); m != "" {
		if err := json.Unmarshal([]byte(m), &timestamps); err != nil {
			timestamps = nil
		}
	}
	if timestamps == nil {
		for _, n := range numberRe.FindAllString(response, 10) {
			v, err := strconv.Atoi(n)
			if err != nil {
				continue
			}
			timestamps = append(timestamps, v)
		}
	}
	if len(timestamps) == 0 {
		return evenTimestamps(maxStart)
	}

	filtered := timestamps[:0]
	for _, t := range timestamps {
		if t >= 0 && float64(t) <= maxStart {
			filtered = append(filtered, t)
		}
	}
	sort.Ints(filtered)
	if len(filtered) > 10 {
		filtered = filtered[:10]
	}
	return filtered
}

// evenTimestamps spreads 8 timestamps across the video.
func evenTimestamps(maxStart float64) []int {
	total := maxStart
	if total <= 0 {
		total = 300
	}
	interval := total / 8
	out := make([]int, 8)
	for i := range out {
		out[i] = int(math.Floor(float64(i) * interval))
	}
	return out
}
