package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"rehaulx/internal/api/v1/dto"
	"rehaulx/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type ExportHandler struct {
	exports  service.ExportService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewExportHandler(exports service.ExportService, validate *validator.Validate, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{exports: exports, validate: validate, logger: logger}
}

func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/export", authMw(http.HandlerFunc(h.export)))
}

// export godoc
// @Summary Export generated content as a document
// @Description Renders content to txt, pdf, or docx and returns it as a file attachment. The format defaults to pdf.
// @Tags export
// @Accept json
// @Produce application/octet-stream
// @Param request body dto.ExportRequestDTO true "Export request"
// @Success 200 {file} binary "Document attachment"
// @Failure 400 {object} map[string]string "Missing content or unsupported format"
// @Router /export [post]
func (h *ExportHandler) export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.ExportRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Content is required for export"})
		return
	}
	format := req.Format
	if format == "" {
		format = "pdf"
	}

	result, err := h.exports.Export(r.Context(), format, req.Content, req.VideoInfo, req.KeyFrames)
	if err != nil {
		if errors.Is(err, service.ErrUnknownFormat) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unsupported export format: " + format})
			return
		}
		h.logger.Error().Err(err).Str("format", format).Msg("Export failed")
		writeError(w, http.StatusInternalServerError, "Failed to export content", err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write export response")
	}
}
