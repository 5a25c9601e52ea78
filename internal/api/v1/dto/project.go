package dto

import (
	"time"

	"rehaulx/internal/model"
)

type ProjectCreateDTO struct {
	Title       string           `json:"title" validate:"required,min=1,max=200"`
	ContentType string           `json:"contentType" validate:"required"`
	VideoURL    string           `json:"videoUrl" validate:"required"`
	Thumbnail   string           `json:"thumbnail,omitempty"`
	Content     string           `json:"content,omitempty"`
	KeyFrames   []model.KeyFrame `json:"keyFrames,omitempty"`
}

type ProjectResponseDTO struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	ContentType string           `json:"contentType"`
	VideoURL    string           `json:"videoUrl"`
	Thumbnail   string           `json:"thumbnail,omitempty"`
	Content     string           `json:"content,omitempty"`
	KeyFrames   []model.KeyFrame `json:"keyFrames,omitempty"`
	Status      string           `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func ProjectResponseFromModel(p *model.Project) ProjectResponseDTO {
	return ProjectResponseDTO{
		ID:          p.ID,
		Title:       p.Title,
		ContentType: p.ContentType,
		VideoURL:    p.VideoURL,
		Thumbnail:   p.Thumbnail,
		Content:     p.Content,
		KeyFrames:   p.KeyFrames,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
	}
}

type DashboardStatsResponseDTO struct {
	ProjectCount int `json:"projectCount"`
}
