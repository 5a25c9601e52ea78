package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rehaulx/internal/model"
)

func TestFormatLLMContentMatchesFramesInclusive(t *testing.T) {
	raw := "Intro paragraph.\n\n<!-- TIMESTAMP_RANGE: 30-60 -->\n\nClosing paragraph."
	frames := []model.KeyFrame{
		{Timestamp: 30, ImageURL: "https://cdn.example.com/f30.jpg", Description: "Opening slide"},
		{Timestamp: 60, ImageURL: "https://cdn.example.com/f60.jpg", Description: "Closing slide"},
		{Timestamp: 61, ImageURL: "https://cdn.example.com/f61.jpg", Description: "Out of range"},
	}

	result := FormatLLMContent(raw, frames)

	// Both boundary frames match, the one past the range does not.
	require.Len(t, result.SuggestedInsertions, 2)
	assert.Equal(t, "insertion-30", result.SuggestedInsertions[0].ID)
	assert.Equal(t, "insertion-60", result.SuggestedInsertions[1].ID)
	assert.Equal(t, 30, result.SuggestedInsertions[0].StartTime)
	assert.Equal(t, 60, result.SuggestedInsertions[0].EndTime)
	assert.Equal(t, "<!-- TIMESTAMP_RANGE: 30-60 -->", result.SuggestedInsertions[0].OriginalTimestamp)
	assert.False(t, result.SuggestedInsertions[0].IsAccepted)

	assert.NotContains(t, result.Content, "TIMESTAMP_RANGE")
	assert.NotContains(t, result.Content, "[KEYFRAME:")
	assert.Contains(t, result.Content, `data-timestamp="30"`)
	assert.Contains(t, result.Content, `data-timestamp="60"`)
	assert.NotContains(t, result.Content, "f61.jpg")
}

func TestFormatLLMContentNoFrames(t *testing.T) {
	raw := "Before.\n\n<!-- TIMESTAMP_RANGE: 10-20 -->\n\nAfter."

	result := FormatLLMContent(raw, nil)

	assert.Empty(t, result.SuggestedInsertions)
	assert.Equal(t, "Before.\n\nAfter.", result.Content)
}

func TestFormatLLMContentMarkdown(t *testing.T) {
	raw := "# Title\n\nSome **bold** and *italic* text.\n\n- one\n- two"

	result := FormatLLMContent(raw, nil)

	assert.Contains(t, result.Content, "<h1>Title</h1>")
	assert.Contains(t, result.Content, "<strong>bold</strong>")
	assert.Contains(t, result.Content, "<em>italic</em>")
	assert.Contains(t, result.Content, "<ul><li>one</li><li>two</li></ul>")
	assert.Equal(t, 1, strings.Count(result.Content, "<ul>"))
}

func TestFormatLLMContentDefaultsDescription(t *testing.T) {
	raw := "<!-- TIMESTAMP_RANGE: 0-90 -->"
	frames := []model.KeyFrame{{Timestamp: 75, ImageURL: "https://cdn.example.com/f.jpg"}}

	result := FormatLLMContent(raw, frames)

	require.Len(t, result.SuggestedInsertions, 1)
	assert.Equal(t, "Key moment at 1:15", result.SuggestedInsertions[0].Text)
	assert.Contains(t, result.Content, "Key moment (1:15)")
}

func TestFormatLLMContentNormalizesBareJPEG(t *testing.T) {
	payload := "/9j/" + strings.Repeat("A", 40)
	raw := "<!-- TIMESTAMP_RANGE: 0-10 -->"
	frames := []model.KeyFrame{{Timestamp: 5, ImageURL: payload, Description: "Frame"}}

	result := FormatLLMContent(raw, frames)

	assert.Contains(t, result.Content, `src="data:image/jpeg;base64,`+payload+`"`)
}

func TestSplitPlaceholder(t *testing.T) {
	tests := []struct {
		name string
		body string
		ts   string
		url  string
		desc string
	}{
		{"https url", "12:https://cdn.example.com/a.jpg:A frame", "12", "https://cdn.example.com/a.jpg", "A frame"},
		{"data uri", "5:data:image/jpeg;base64,abc123:Slide", "5", "data:image/jpeg;base64,abc123", "Slide"},
		{"no description", "7:https://cdn.example.com/b.jpg", "7", "https://cdn.example.com/b.jpg", ""},
		{"plain", "3:frame.jpg:desc", "3", "frame.jpg", "desc"},
		{"timestamp only", "9", "9", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, url, desc := splitPlaceholder(tt.body)
			assert.Equal(t, tt.ts, ts)
			assert.Equal(t, tt.url, url)
			assert.Equal(t, tt.desc, desc)
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "0:00", FormatTimestamp(0))
	assert.Equal(t, "0:59", FormatTimestamp(59))
	assert.Equal(t, "1:00", FormatTimestamp(60))
	assert.Equal(t, "2:05", FormatTimestamp(125.7))
	assert.Equal(t, "10:01", FormatTimestamp(601))
}

func TestInsertFrameSuggestion(t *testing.T) {
	content := "line one\nline two\nline three"
	s := SuggestedInsertion{
		Position: len("line one\n") + 2,
		Text:     "A key moment",
		KeyFrame: &model.KeyFrame{Timestamp: 42, ImageURL: "https://cdn.example.com/f.jpg"},
	}

	after := InsertFrameSuggestion(content, s, "after")
	assert.Contains(t, after, `class="frame-suggestion"`)
	assert.Contains(t, after, `data-timestamp="42"`)
	assert.Less(t, strings.Index(after, "line two"), strings.Index(after, "frame-suggestion"))

	before := InsertFrameSuggestion(content, s, "before")
	assert.Less(t, strings.Index(before, "frame-suggestion"), strings.Index(before, "line two"))
}

func TestFormatStreamingContent(t *testing.T) {
	raw := "## Heading\n\nSome **bold** text.\n\n<!-- TIMESTAMP_RANGE: 15-45 -->\n\n- a\n- b"

	out := FormatStreamingContent(raw)

	assert.Contains(t, out, "<h2>Heading</h2>")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, `<div class="timestamp-skeleton" data-range="15-45">`)
	assert.Contains(t, out, `<ul><li class="ml-4">a</li>`)
	assert.NotContains(t, out, "TIMESTAMP_RANGE")
}

func TestFormatStreamingContentStripsBase64(t *testing.T) {
	payload := "data:image/png;base64," + strings.Repeat("B", 64)
	out := FormatStreamingContent("look " + payload + " here")

	assert.NotContains(t, out, "base64")
	assert.Contains(t, out, "look")

	assert.Empty(t, FormatStreamingContent(""))
}
