package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rehaulx/internal/api/v1/dto"
	"rehaulx/internal/middleware"
	"rehaulx/internal/model"
	"rehaulx/internal/repository"
	"rehaulx/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type ProjectHandler struct {
	projects service.ProjectService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewProjectHandler(projects service.ProjectService, validate *validator.Validate, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, validate: validate, logger: logger}
}

func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/projects", authMw(http.HandlerFunc(h.projectsRoot)))
	mux.Handle("/projects/", authMw(http.HandlerFunc(h.projectByID)))
	mux.Handle("/dashboard-stats", authMw(http.HandlerFunc(h.dashboardStats)))
}

func (h *ProjectHandler) projectsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listProjects(w, r)
	case http.MethodPost:
		h.createProject(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ProjectHandler) projectByID(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/projects/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		http.Error(w, "Invalid project id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.getProject(w, r, id)
	case http.MethodDelete:
		h.deleteProject(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// listProjects godoc
// @Summary List the user's projects
// @Tags projects
// @Produce json
// @Param limit query int false "Page size, max 50" default(20)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} dto.ProjectResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Security BearerAuth
// @Router /projects [get]
func (h *ProjectHandler) listProjects(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	projects, err := h.projects.List(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list projects")
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}
	out := make([]dto.ProjectResponseDTO, 0, len(projects))
	for i := range projects {
		out = append(out, dto.ProjectResponseFromModel(&projects[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createProject godoc
// @Summary Save a generated project
// @Tags projects
// @Accept json
// @Produce json
// @Param request body dto.ProjectCreateDTO true "Project payload"
// @Success 201 {object} dto.ProjectResponseDTO
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 401 {string} string "Unauthorized"
// @Security BearerAuth
// @Router /projects [post]
func (h *ProjectHandler) createProject(w http.ResponseWriter, r *http.Request) {
	var req dto.ProjectCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid project: " + err.Error()})
		return
	}
	userID := middleware.UserID(r.Context())

	project := &model.Project{
		UserID:      userID,
		Title:       req.Title,
		ContentType: req.ContentType,
		VideoURL:    req.VideoURL,
		Thumbnail:   req.Thumbnail,
		Content:     req.Content,
		KeyFrames:   req.KeyFrames,
	}
	if err := h.projects.Create(r.Context(), project); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create project")
		writeError(w, http.StatusInternalServerError, "Failed to create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ProjectResponseFromModel(project))
}

// getProject godoc
// @Summary Get a project by id
// @Tags projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} dto.ProjectResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Failure 404 {string} string "Project not found"
// @Security BearerAuth
// @Router /projects/{id} [get]
func (h *ProjectHandler) getProject(w http.ResponseWriter, r *http.Request, id int64) {
	userID := middleware.UserID(r.Context())
	project, err := h.projects.Get(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Project not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Int64("project_id", id).Msg("Failed to get project")
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ProjectResponseFromModel(project))
}

// deleteProject godoc
// @Summary Delete a project
// @Tags projects
// @Param id path int true "Project ID"
// @Success 204 "Deleted"
// @Failure 401 {string} string "Unauthorized"
// @Failure 404 {string} string "Project not found"
// @Security BearerAuth
// @Router /projects/{id} [delete]
func (h *ProjectHandler) deleteProject(w http.ResponseWriter, r *http.Request, id int64) {
	userID := middleware.UserID(r.Context())
	if err := h.projects.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Project not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Int64("project_id", id).Msg("Failed to delete project")
		writeError(w, http.StatusInternalServerError, "Failed to delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dashboardStats godoc
// @Summary Get dashboard statistics
// @Tags projects
// @Produce json
// @Success 200 {object} dto.DashboardStatsResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Security BearerAuth
// @Router /dashboard-stats [get]
func (h *ProjectHandler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := middleware.UserID(r.Context())
	count, err := h.projects.Count(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to get dashboard stats")
		writeError(w, http.StatusInternalServerError, "Failed to get dashboard stats", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DashboardStatsResponseDTO{ProjectCount: count})
}
