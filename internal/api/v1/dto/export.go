package dto

import "rehaulx/internal/model"

type ExportRequestDTO struct {
	Content   string           `json:"content" validate:"required"`
	VideoInfo *model.VideoInfo `json:"videoInfo,omitempty"`
	KeyFrames []model.KeyFrame `json:"keyFrames,omitempty"`
	Format    string           `json:"format,omitempty"`
}
