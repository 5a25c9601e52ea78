package model

import "time"

// TranscriptSegment is one caption line of a video transcript.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// VideoInfo is the merged metadata + transcript result of analyzing a video.
type VideoInfo struct {
	Title      string              `json:"title"`
	Thumbnail  string              `json:"thumbnail"`
	Duration   string              `json:"duration"`
	URL        string              `json:"url"`
	VideoID    string              `json:"videoId"`
	Transcript []TranscriptSegment `json:"transcript"`
	Author     string              `json:"author"`
	ViewCount  string              `json:"viewCount"`
	UploadDate string              `json:"uploadDate,omitempty"`
}

// KeyFrame is a single extracted still image tied to a timestamp.
// ImageURL is either a data URI or a storage URL. Immutable once extracted.
type KeyFrame struct {
	Timestamp   float64 `json:"timestamp"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Project is a persisted repurposing result.
type Project struct {
	ID          int64      `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	Title       string     `db:"title" json:"title"`
	ContentType string     `db:"content_type" json:"content_type"`
	VideoURL    string     `db:"video_url" json:"video_url"`
	Thumbnail   string     `db:"thumbnail" json:"thumbnail,omitempty"`
	Content     string     `db:"content" json:"content,omitempty"`
	KeyFrames   []KeyFrame `db:"key_frames" json:"key_frames,omitempty"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
