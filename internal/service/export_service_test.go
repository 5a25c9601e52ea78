package service

import (
	"context"
	"strings"
	"testing"

	"rehaulx/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportTxt(t *testing.T) {
	svc := NewExportService(zerolog.Nop())
	info := &model.VideoInfo{Title: "My Video"}
	frames := []model.KeyFrame{{Timestamp: 30, Description: "Opening"}}

	result, err := svc.Export(context.Background(), "txt", "<h1>Heading</h1><p>Body text.</p>", info, frames)
	require.NoError(t, err)

	assert.Equal(t, "text/plain", result.ContentType)
	assert.Equal(t, "My_Video.txt", result.Filename)

	text := string(result.Data)
	assert.Contains(t, text, "My Video")
	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "Body text.")
	assert.Contains(t, text, "1. [0:30] Opening")
	assert.NotContains(t, text, "<p>")
}

func TestExportPdf(t *testing.T) {
	svc := NewExportService(zerolog.Nop())
	result, err := svc.Export(context.Background(), "pdf", "<h1>Title</h1><p>Paragraph.</p>", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "Generated_Content.pdf", result.Filename)
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF"))
}

func TestExportDocx(t *testing.T) {
	svc := NewExportService(zerolog.Nop())
	info := &model.VideoInfo{Title: "Walkthrough", Author: "Creator", Duration: "10:00"}

	result, err := svc.Export(context.Background(), "docx", "<p>Some content.</p>", info, nil)
	require.NoError(t, err)

	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", result.ContentType)
	assert.Equal(t, "Walkthrough.docx", result.Filename)
	// DOCX files are zip archives.
	assert.True(t, strings.HasPrefix(string(result.Data), "PK"))
}

func TestExportUnknownFormat(t *testing.T) {
	svc := NewExportService(zerolog.Nop())
	_, err := svc.Export(context.Background(), "epub", "content", nil, nil)
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "My_Video_Title_", sanitizeFilename("My Video Title!"))
	long := strings.Repeat("a", 80)
	assert.Len(t, sanitizeFilename(long), 50)
	assert.Equal(t, "caf_", sanitizeFilename("café"))
}
