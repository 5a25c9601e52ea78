package llm

import (
	"strings"
	"testing"

	"rehaulx/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidContentType(t *testing.T) {
	assert.True(t, ValidContentType(TypeShortArticle))
	assert.True(t, ValidContentType(TypeLongArticle))
	assert.True(t, ValidContentType(TypeLinkedIn))
	assert.True(t, ValidContentType(TypeTwitter))
	assert.False(t, ValidContentType("newsletter"))
	assert.False(t, ValidContentType(""))
}

func TestBuildTimestampMap(t *testing.T) {
	entries := BuildTimestampMap([]model.TranscriptSegment{
		{Text: "hello", Start: 0, Duration: 4},
		{Text: "world", Start: 4.7, Duration: 3},
	})
	require.Len(t, entries, 2)
	assert.Equal(t, "[0s]", entries[0].Timestamp)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, "[4s]", entries[1].Timestamp)
	assert.Equal(t, "world", entries[1].Text)
}

func TestTranscriptText(t *testing.T) {
	entries := BuildTimestampMap([]model.TranscriptSegment{
		{Text: "first", Start: 0},
		{Text: "second", Start: 30},
	})
	text := TranscriptText(entries)
	assert.Equal(t, "[0s] first\n[30s] second", text)
}

func TestBuildPromptIncludesContext(t *testing.T) {
	info := &model.VideoInfo{Title: "Go Concurrency", Author: "Gopher", Duration: "12:30"}
	frames := []model.KeyFrame{{Timestamp: 30}, {Timestamp: 90}}

	prompt := BuildPrompt(TypeLongArticle, "[0s] some transcript", frames, info)

	assert.Contains(t, prompt, "Go Concurrency")
	assert.Contains(t, prompt, "Gopher")
	assert.Contains(t, prompt, "[0s] some transcript")
	assert.Contains(t, prompt, "30, 90")
	assert.Contains(t, prompt, "TIMESTAMP_RANGE")
}

func TestBuildPromptDefaults(t *testing.T) {
	prompt := BuildPrompt(TypeShortArticle, "[0s] text", nil, &model.VideoInfo{})
	assert.Contains(t, prompt, "Video Content")
	assert.Contains(t, prompt, "Content Creator")
}

func TestTwitterPromptOmitsVideoContext(t *testing.T) {
	info := &model.VideoInfo{Title: "Go Concurrency"}
	prompt := BuildPrompt(TypeTwitter, "[0s] text", nil, info)
	assert.NotContains(t, prompt, "Go Concurrency")
	assert.Contains(t, prompt, "Twitter thread")
}

func TestBuildPromptUnknownTypeFallsBack(t *testing.T) {
	unknown := BuildPrompt("newsletter", "[0s] text", nil, nil)
	short := BuildPrompt(TypeShortArticle, "[0s] text", nil, nil)
	assert.Equal(t, short, unknown)
}

func TestBuildPromptVariesByType(t *testing.T) {
	base := "[0s] text"
	prompts := map[string]string{}
	for _, ct := range []string{TypeShortArticle, TypeLongArticle, TypeLinkedIn, TypeTwitter} {
		prompts[ct] = BuildPrompt(ct, base, nil, nil)
	}
	seen := map[string]bool{}
	for _, p := range prompts {
		assert.False(t, seen[p], "prompts should differ per content type")
		seen[p] = true
	}
}

func TestBuildTimestampPrompt(t *testing.T) {
	prompt := BuildTimestampPrompt("[0s] first\n[30s] second")
	assert.Contains(t, prompt, "[0s] first")
	assert.True(t, strings.Contains(prompt, "timestamp") || strings.Contains(prompt, "Timestamp"))
}
