package llm

import (
	"fmt"
	"math"
	"strings"

	"rehaulx/internal/model"
)

// Supported content types.
const (
	TypeShortArticle = "short-article"
	TypeLongArticle  = "long-article"
	TypeLinkedIn     = "linkedin"
	TypeTwitter      = "twitter"
)

// ValidContentType reports whether t is one of the supported content types.
func ValidContentType(t string) bool {
	switch t {
	case TypeShortArticle, TypeLongArticle, TypeLinkedIn, TypeTwitter:
		return true
	}
	return false
}

// TimestampMapEntry pairs a transcript segment with its display timestamp.
// The map is streamed alongside generated content so the client can link
// text back to video positions.
type TimestampMapEntry struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	Index     int     `json:"index"`
	Timestamp string  `json:"timestamp"`
}

// BuildTimestampMap renders the transcript as `[Ns]`-prefixed entries.
func BuildTimestampMap(transcript []model.TranscriptSegment) []TimestampMapEntry {
	entries := make([]TimestampMapEntry, len(transcript))
	for i, seg := range transcript {
		entries[i] = TimestampMapEntry{
			Text:      seg.Text,
			Start:     seg.Start,
			Index:     i,
			Timestamp: fmt.Sprintf("[%ds]", int(math.Floor(seg.Start))),
		}
	}
	return entries
}

// TranscriptText joins the timestamp map into the prompt's transcript block.
func TranscriptText(entries []TimestampMapEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Timestamp + " " + e.Text
	}
	return strings.Join(lines, "\n")
}

const timestampRangeInstruction = `IMPORTANT: For each paragraph, include a comment indicating which timestamp range it covers, like this:
<!-- TIMESTAMP_RANGE: 0-30 --> (for content covering 0 to 30 seconds)
<!-- TIMESTAMP_RANGE: 45-90 --> (for content covering 45 to 90 seconds)`

// BuildPrompt assembles the generation prompt for a content type. Unknown
// types fall back to the short article prompt.
func BuildPrompt(contentType, transcriptText string, keyFrames []model.KeyFrame, videoInfo *model.VideoInfo) string {
	keyTimestamps := joinTimestamps(keyFrames)
	videoContext := ""
	if videoInfo != nil {
		videoContext = fmt.Sprintf(`
Video Information:
- Title: %s
- Author: %s
- Duration: %s
`, orDefault(videoInfo.Title, "Video Content"), orDefault(videoInfo.Author, "Content Creator"), orDefault(videoInfo.Duration, "Unknown"))
	}

	switch contentType {
	case TypeLongArticle:
		return fmt.Sprintf(`Write a comprehensive 1000+ word blog article based on this video content.

%s

Use the video title, description, and author information to create authoritative, well-researched content.

%s

Include:
- SEO-optimized title (incorporate video title elements)
- Meta description incorporating key insights
- Detailed introduction that references the original video
- 5-7 main sections with subheadings
- Examples and actionable insights from the content
- Conclusion with strong call-to-action
- Focus on key moments at: %s

Video Transcript with timestamps:
%s`, videoContext, timestampRangeInstruction, keyTimestamps, transcriptText)

	case TypeLinkedIn:
		return fmt.Sprintf(`Create a professional LinkedIn post based on this video transcript.

IMPORTANT: Include timestamp references where relevant, like: "As mentioned at 2:30 in the video..."

Include:
- Attention-grabbing opening line
- 2-3 key insights or takeaways
- Personal reflection or industry perspective
- Call-to-action for engagement
- Use relevant hashtags
- Keep it under 300 words
- Focus on timestamps: %s

Transcript with timestamps:
%s`, keyTimestamps, transcriptText)

	case TypeTwitter:
		return fmt.Sprintf(`Create a Twitter thread (8-12 tweets) based on this video transcript.

IMPORTANT: Include timestamp references where relevant, like: "At 1:45, the key insight is..."

Include:
- Hook tweet that grabs attention
- Break down key insights into digestible tweets
- Use emojis and formatting for engagement
- End with call-to-action
- Each tweet under 280 characters
- Focus on key moments: %s

Format as: 1/ [tweet content]

Transcript with timestamps:
%s`, keyTimestamps, transcriptText)

	default:
		return fmt.Sprintf(`Write a 500-word SEO-optimized blog article based on this video content.

%s

Use the video title and description as context for creating compelling, accurate content.

%s

Include:
- Compelling headline (incorporate video title if relevant)
- Introduction hook referencing the video content
- 3-4 main sections with subheadings
- Conclusion with call-to-action
- Focus on key insights from timestamps: %s

Video Transcript with timestamps:
%s`, videoContext, timestampRangeInstruction, keyTimestamps, transcriptText)
	}
}

// BuildTimestampPrompt asks the model to pick key moments for repurposing.
func BuildTimestampPrompt(transcriptText string) string {
	return fmt.Sprintf(`Analyze this video transcript and identify 8-10 key timestamps (in seconds) that would be most important for repurposing into blog posts, LinkedIn posts, Twitter threads, and newsletters. Focus on:
- Main topic introductions
- Key insights or revelations
- Important examples or case studies
- Conclusion or summary moments
- Actionable advice or tips

Transcript segments:
%s

Return only a JSON array of timestamp numbers (in seconds), like: [15, 45, 120, 180, 240, 300, 420, 480]`, transcriptText)
}

func joinTimestamps(keyFrames []model.KeyFrame) string {
	parts := make([]string, len(keyFrames))
	for i, kf := range keyFrames {
		parts[i] = fmt.Sprintf("%g", kf.Timestamp)
	}
	return strings.Join(parts, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
