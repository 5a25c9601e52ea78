package dto

import "rehaulx/internal/model"

type GenerateContentRequestDTO struct {
	VideoURL    string                    `json:"videoUrl"`
	ContentType string                    `json:"contentType"`
	Transcript  []model.TranscriptSegment `json:"transcript"`
	KeyFrames   []model.KeyFrame          `json:"keyFrames,omitempty"`
	VideoInfo   *model.VideoInfo          `json:"videoInfo,omitempty"`
	SaveProject bool                      `json:"saveProject,omitempty"`
}

type GenerateTimestampsRequestDTO struct {
	Transcript []model.TranscriptSegment `json:"transcript" validate:"required,min=1"`
}

type GenerateTimestampsResponseDTO struct {
	Timestamps []int `json:"timestamps"`
}
