package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rehaulx/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectRepository stores persisted repurposing results.
type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id int64, userID string) (*model.Project, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Project, error)
	Delete(ctx context.Context, id int64, userID string) error
	CountByUser(ctx context.Context, userID string) (int, error)
	UpdateKeyFrames(ctx context.Context, id int64, frames []model.KeyFrame, status string) error
}

type projectRepo struct {
	pool *pgxpool.Pool
}

// NewProjectRepo creates a new ProjectRepository.
func NewProjectRepo(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepo{pool: pool}
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	frames, err := marshalFrames(p.KeyFrames)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO projects (user_id, title, content_type, video_url, thumbnail, content, key_frames, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err = r.pool.QueryRow(ctx, q,
		p.UserID,
		p.Title,
		p.ContentType,
		p.VideoURL,
		p.Thumbnail,
		p.Content,
		frames,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert project for user %s: %w", p.UserID, err)
	}
	return nil
}

func (r *projectRepo) GetByID(ctx context.Context, id int64, userID string) (*model.Project, error) {
	const q = `
		SELECT id, user_id, title, content_type, video_url, COALESCE(thumbnail, ''), COALESCE(content, ''), key_frames, status, created_at
		FROM projects
		WHERE id = $1 AND user_id = $2
	`
	var p model.Project
	var rawFrames []byte
	err := r.pool.QueryRow(ctx, q, id, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.ContentType,
		&p.VideoURL,
		&p.Thumbnail,
		&p.Content,
		&rawFrames,
		&p.Status,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch project %d: %w", id, err)
	}
	if err := unmarshalFrames(rawFrames, &p.KeyFrames); err != nil {
		return nil, fmt.Errorf("project %d: %w", id, err)
	}
	return &p, nil
}

func (r *projectRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Project, error) {
	const q = `
		SELECT id, user_id, title, content_type, video_url, COALESCE(thumbnail, ''), COALESCE(content, ''), key_frames, status, created_at
		FROM projects
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query projects for user %s: %w", userID, err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		var rawFrames []byte
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.ContentType, &p.VideoURL, &p.Thumbnail, &p.Content, &rawFrames, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if err := unmarshalFrames(rawFrames, &p.KeyFrames); err != nil {
			return nil, fmt.Errorf("project %d: %w", p.ID, err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("projects rows: %w", err)
	}
	return projects, nil
}

func (r *projectRepo) Delete(ctx context.Context, id int64, userID string) error {
	const q = `DELETE FROM projects WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *projectRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	const q = `SELECT COUNT(*) FROM projects WHERE user_id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count projects for user %s: %w", userID, err)
	}
	return count, nil
}

func (r *projectRepo) UpdateKeyFrames(ctx context.Context, id int64, frames []model.KeyFrame, status string) error {
	raw, err := marshalFrames(frames)
	if err != nil {
		return err
	}
	const q = `UPDATE projects SET key_frames = $2, status = $3 WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id, raw, status); err != nil {
		return fmt.Errorf("update key frames for project %d: %w", id, err)
	}
	return nil
}

func marshalFrames(frames []model.KeyFrame) ([]byte, error) {
	if frames == nil {
		return []byte("[]"), nil
	}
	raw, err := json.Marshal(frames)
	if err != nil {
		return nil, fmt.Errorf("marshal key frames: %w", err)
	}
	return raw, nil
}

func unmarshalFrames(raw []byte, frames *[]model.KeyFrame) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, frames); err != nil {
		return fmt.Errorf("unmarshal key frames: %w", err)
	}
	return nil
}
