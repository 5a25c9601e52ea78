package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rehaulx/internal/model"
)

func TestCleanHTMLToText(t *testing.T) {
	html := `<h1>Big Title</h1><p>First <strong>important</strong> paragraph.</p>` +
		`<h2>Section</h2><ul><li>alpha</li><li>beta</li></ul>` +
		`<p>Closing &amp; done.</p>`

	out := CleanHTMLToText(html)

	assert.Contains(t, out, "Big Title\n"+strings.Repeat("=", 50))
	assert.Contains(t, out, "Section\n"+strings.Repeat("-", 30))
	assert.Contains(t, out, "• alpha")
	assert.Contains(t, out, "• beta")
	assert.Contains(t, out, "First important paragraph.")
	assert.Contains(t, out, "Closing & done.")
	assert.NotContains(t, out, "<")
}

func TestCleanHTMLToTextKeyframeBlocks(t *testing.T) {
	html := `Before.<div class="keyframe-suggestion my-6" data-timestamp="42">` +
		`<img src="https://cdn.example.com/f.jpg" alt="Slide" />` +
		`<p class="text-sm">Slide (0:42)</p></div>After.`

	out := CleanHTMLToText(html)

	assert.Contains(t, out, "[Visual: Slide (0:42)]")
	assert.NotContains(t, out, "keyframe-suggestion")
	assert.NotContains(t, out, "cdn.example.com")
}

func TestCleanHTMLToTextStripsBase64(t *testing.T) {
	html := `<p>Text data:image/jpeg;base64,` + strings.Repeat("Q", 80) + ` more</p>`

	out := CleanHTMLToText(html)

	assert.NotContains(t, out, "base64")
	assert.NotContains(t, out, strings.Repeat("Q", 80))
	assert.Contains(t, out, "[Image]")
}

func TestCleanHTMLToTextIdempotent(t *testing.T) {
	html := `<h1>Title</h1><p>Body with <em>emphasis</em>.</p>` +
		`<div class="keyframe-suggestion" data-timestamp="10"><p>Moment (0:10)</p></div>` +
		`<ul><li>item</li></ul>`

	once := CleanHTMLToText(html)
	twice := CleanHTMLToText(once)

	assert.Equal(t, once, twice)
}

func TestFormatContentForExport(t *testing.T) {
	frames := []model.KeyFrame{
		{Timestamp: 30, Description: "Opening"},
		{Timestamp: 95},
	}

	out := FormatContentForExport("<p>Hello world.</p>", "My Video", frames)

	assert.True(t, strings.HasPrefix(out, "My Video\n"+strings.Repeat("=", len("My Video"))))
	assert.Contains(t, out, "Hello world.")
	assert.Contains(t, out, "Key Visual Moments:")
	assert.Contains(t, out, "1. [0:30] Opening")
	assert.Contains(t, out, "2. [1:35] Key moment")
}

func TestFormatContentForExportNoFrames(t *testing.T) {
	out := FormatContentForExport("<p>Body.</p>", "Title", nil)

	assert.NotContains(t, out, "Key Visual Moments")
}

func TestExtractImagePlaceholders(t *testing.T) {
	content := `<p>Intro paragraph.</p>` +
		`<div class="keyframe-suggestion" data-timestamp="12.5">` +
		`<img src="https://cdn.example.com/a.jpg" alt="A" />` +
		`<p class="text-sm">First moment</p></div>` +
		`<p>Middle text.</p>` +
		`<div class="keyframe-suggestion" data-timestamp="80">` +
		`<img src="https://cdn.example.com/b.jpg" alt="B" />` +
		`<p class="text-sm">Second moment</p></div>`

	placeholders := ExtractImagePlaceholders(content)

	require.Len(t, placeholders, 2)
	assert.Equal(t, 12.5, placeholders[0].Timestamp)
	assert.Equal(t, "https://cdn.example.com/a.jpg", placeholders[0].ImageURL)
	assert.Equal(t, "First moment", placeholders[0].Description)
	assert.Equal(t, 80.0, placeholders[1].Timestamp)
	assert.Greater(t, placeholders[1].Position, placeholders[0].Position)
}

func TestExtractImagePlaceholdersNone(t *testing.T) {
	assert.Empty(t, ExtractImagePlaceholders("<p>No frames here.</p>"))
}
