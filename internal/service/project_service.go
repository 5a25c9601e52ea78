package service

import (
	"context"

	"rehaulx/internal/model"
	"rehaulx/internal/repository"

	"github.com/rs/zerolog"
)

// ProjectService defines business logic for persisted repurposing results.
type ProjectService interface {
	Create(ctx context.Context, p *model.Project) error
	Get(ctx context.Context, id int64, userID string) (*model.Project, error)
	List(ctx context.Context, userID string, limit, offset int) ([]model.Project, error)
	Delete(ctx context.Context, id int64, userID string) error
	Count(ctx context.Context, userID string) (int, error)
}

type projectService struct {
	repo   repository.ProjectRepository
	logger zerolog.Logger
}

// NewProjectService creates a new ProjectService with a scoped logger.
func NewProjectService(repo repository.ProjectRepository, logger zerolog.Logger) ProjectService {
	return &projectService{
		repo:   repo,
		logger: logger.With().Str("service", "ProjectService").Logger(),
	}
}

func (s *projectService) Create(ctx context.Context, p *model.Project) error {
	if p.Status == "" {
		p.Status = "completed"
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("user_id", p.UserID).Msg("Failed to create project")
		return err
	}
	return nil
}

func (s *projectService) Get(ctx context.Context, id int64, userID string) (*model.Project, error) {
	return s.repo.GetByID(ctx, id, userID)
}

func (s *projectService) List(ctx context.Context, userID string, limit, offset int) ([]model.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	projects, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list projects")
		return nil, err
	}
	return projects, nil
}

func (s *projectService) Delete(ctx context.Context, id int64, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if err != repository.ErrNotFound {
			s.logger.Error().Err(err).Int64("project_id", id).Msg("Failed to delete project")
		}
		return err
	}
	return nil
}

func (s *projectService) Count(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to count projects")
		return 0, err
	}
	return count, nil
}
