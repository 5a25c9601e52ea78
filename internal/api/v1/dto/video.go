package dto

import "rehaulx/internal/model"

type AnalyzeVideoRequestDTO struct {
	VideoURL string `json:"videoUrl" validate:"required"`
}

type AnalyzeVideoResponseDTO struct {
	VideoInfo *model.VideoInfo `json:"videoInfo"`
}

type ExtractFramesRequestDTO struct {
	VideoURL   string    `json:"videoUrl" validate:"required"`
	Timestamps []float64 `json:"timestamps" validate:"required,min=1,max=20"`
}

type ExtractFramesResponseDTO struct {
	Frames []model.KeyFrame `json:"frames"`
}
