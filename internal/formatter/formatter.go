package formatter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"rehaulx/internal/model"
)

// SuggestedInsertion is a proposed key-frame placement derived from a
// (content, keyFrames) pair. It is transient: the client flips IsAccepted
// when the user accepts the suggestion into the final content.
type SuggestedInsertion struct {
	ID                string          `json:"id"`
	Position          int             `json:"position"`
	OriginalTimestamp string          `json:"originalTimestamp"`
	StartTime         int             `json:"startTime"`
	EndTime           int             `json:"endTime"`
	KeyFrame          *model.KeyFrame `json:"keyFrame,omitempty"`
	Text              string          `json:"text"`
	IsAccepted        bool            `json:"isAccepted"`
}

// ContentWithFrames is the result of formatting raw LLM output.
type ContentWithFrames struct {
	Content             string               `json:"content"`
	SuggestedInsertions []SuggestedInsertion `json:"suggestedInsertions"`
}

var (
	timestampRangeRe = regexp.MustCompile(`<!-- TIMESTAMP_RANGE: (\d+)-(\d+) -->`)

	// Defensive cleanup against raw base64 payloads leaking from the LLM
	// into plain text.
	leakedImageRes = []*regexp.Regexp{
		regexp.MustCompile(`Image:\s*image/[a-z]+;base64,[A-Za-z0-9+/=]+`),
		regexp.MustCompile(`URL:\s*data:image/[a-z]+;base64,[A-Za-z0-9+/=]+`),
		regexp.MustCompile(`image/[a-z]+;base64,[A-Za-z0-9+/=]+:Frame at \d+s`),
		regexp.MustCompile(`/9j/[A-Za-z0-9+/=]+:Frame at \d+s[^:]*:Frame at \d+s \(\d+:\d+\)`),
	}

	boldRe     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe   = regexp.MustCompile(`\*(.*?)\*`)
	h3Re       = regexp.MustCompile(`(?m)^### (.*)$`)
	h2Re       = regexp.MustCompile(`(?m)^## (.*)$`)
	h1Re       = regexp.MustCompile(`(?m)^# (.*)$`)
	listRe     = regexp.MustCompile(`(?m)^- (.*)$`)
	liItemRe   = regexp.MustCompile(`<li>.*</li>`)
	manyNLRe   = regexp.MustCompile(`\n{3,}`)
	keyframeRe = regexp.MustCompile(`\[KEYFRAME:[0-9]+(?:\.[0-9]+)?:[^\]]*\]`)
)

// FormatLLMContent turns raw LLM output (markdown-like text with embedded
// TIMESTAMP_RANGE comments) into HTML, splicing key-frame suggestion blocks
// in at matching timestamp positions.
func FormatLLMContent(rawContent string, keyFrames []model.KeyFrame) ContentWithFrames {
	var insertions []SuggestedInsertion

	matches := timestampRangeRe.FindAllStringSubmatch(rawContent, -1)
	parts := timestampRangeRe.Split(rawContent, -1)

	// Splice key-frame placeholders in after each timestamp boundary. A
	// range with no matching frame is a purely textual boundary.
	var b strings.Builder
	for i, part := range parts {
		b.WriteString(part)
		if i >= len(matches) {
			continue
		}
		startTime, _ := strconv.Atoi(matches[i][1])
		endTime, _ := strconv.Atoi(matches[i][2])

		for _, frame := range keyFrames {
			// Inclusive range: a frame exactly on a boundary counts.
			if frame.Timestamp < float64(startTime) || frame.Timestamp > float64(endTime) {
				continue
			}
			text := frame.Description
			if text == "" {
				text = "Key moment at " + FormatTimestamp(frame.Timestamp)
			}
			f := frame
			insertions = append(insertions, SuggestedInsertion{
				ID:                "insertion-" + formatTS(frame.Timestamp),
				Position:          b.Len(),
				OriginalTimestamp: matches[i][0],
				StartTime:         startTime,
				EndTime:           endTime,
				KeyFrame:          &f,
				Text:              text,
				IsAccepted:        false,
			})
			desc := frame.Description
			if desc == "" {
				desc = "Key moment"
			}
			fmt.Fprintf(&b, "\n\n[KEYFRAME:%s:%s:%s]\n\n", formatTS(frame.Timestamp), frame.ImageURL, desc)
		}
	}

	content := b.String()

	for _, re := range leakedImageRes {
		content = re.ReplaceAllString(content, "")
	}

	content = boldRe.ReplaceAllString(content, "<strong>$1</strong>")
	content = italicRe.ReplaceAllString(content, "<em>$1</em>")
	content = h3Re.ReplaceAllString(content, "<h3>$1</h3>")
	content = h2Re.ReplaceAllString(content, "<h2>$1</h2>")
	content = h1Re.ReplaceAllString(content, "<h1>$1</h1>")
	content = listRe.ReplaceAllString(content, "<li>$1</li>")
	content = wrapListItems(content)

	content = expandKeyframePlaceholders(content)

	content = manyNLRe.ReplaceAllString(content, "\n\n")
	return ContentWithFrames{
		Content:             strings.TrimSpace(content),
		SuggestedInsertions: insertions,
	}
}

// wrapListItems gathers all <li> items into a single <ul> at the position of
// the first item.
func wrapListItems(content string) string {
	items := liItemRe.FindAllString(content, -1)
	if len(items) == 0 {
		return content
	}
	first := true
	return liItemRe.ReplaceAllStringFunc(content, func(item string) string {
		if first {
			first = false
			return "<ul>" + strings.Join(items, "") + "</ul>"
		}
		return ""
	})
}

// expandKeyframePlaceholders converts [KEYFRAME:ts:url:description] markers
// into keyframe-suggestion divs with a normalized image source.
func expandKeyframePlaceholders(content string) string {
	return keyframeRe.ReplaceAllStringFunc(content, func(placeholder string) string {
		body := strings.TrimSuffix(strings.TrimPrefix(placeholder, "[KEYFRAME:"), "]")
		ts, imageURL, description := splitPlaceholder(body)

		var imgTag string
		if imageURL != "" {
			src := normalizeImageSrc(imageURL)
			imgTag = fmt.Sprintf(`<img src="%s" alt="%s" class="w-full max-w-md mx-auto rounded-lg shadow-md mb-3" style="max-height: 300px; object-fit: cover;" />`, src, description)
		}
		seconds, _ := strconv.ParseFloat(ts, 64)
		return fmt.Sprintf(`<div class="keyframe-suggestion my-6 p-4 bg-white/5 border border-white/10 rounded-lg text-center" data-timestamp="%s">%s<p class="text-sm text-white/70 italic mt-2">%s (%s)</p></div>`,
			ts, imgTag, description, FormatTimestamp(seconds))
	})
}

// splitPlaceholder splits "ts:url:description". URLs may themselves contain
// colons (data URIs, https), so the url/description boundary is located
// after the scheme or base64 payload rather than at the first colon.
func splitPlaceholder(body string) (ts, url, desc string) {
	i := strings.Index(body, ":")
	if i < 0 {
		return body, "", ""
	}
	ts, rest := body[:i], body[i+1:]

	switch {
	case strings.HasPrefix(rest, "data:image/"):
		// Base64 alphabet has no colon, so the payload ends at the next one.
		if j := strings.Index(rest, ";base64,"); j >= 0 {
			if k := strings.Index(rest[j:], ":"); k >= 0 {
				return ts, rest[:j+k], rest[j+k+1:]
			}
		}
		return ts, rest, ""
	case strings.HasPrefix(rest, "http://"), strings.HasPrefix(rest, "https://"):
		j := strings.Index(rest, "//")
		if k := strings.Index(rest[j+2:], ":"); k >= 0 {
			return ts, rest[:j+2+k], rest[j+2+k+1:]
		}
		return ts, rest, ""
	default:
		if j := strings.Index(rest, ":"); j >= 0 {
			return ts, rest[:j], rest[j+1:]
		}
		return ts, rest, ""
	}
}

// normalizeImageSrc turns bare base64 payloads (with or without the /9j/
// JPEG magic prefix) into full data URIs.
func normalizeImageSrc(imageURL string) string {
	switch {
	case strings.HasPrefix(imageURL, "data:image/"):
		return imageURL
	case strings.HasPrefix(imageURL, "/9j/"):
		return "data:image/jpeg;base64," + imageURL
	case strings.Contains(imageURL, "base64"):
		if i := strings.Index(imageURL, ","); i >= 0 {
			return "data:image/jpeg;base64," + imageURL[i+1:]
		}
		return "data:image/jpeg;base64," + imageURL
	default:
		return imageURL
	}
}

// FormatTimestamp renders seconds as m:ss.
func FormatTimestamp(seconds float64) string {
	m := int(seconds) / 60
	s := int(seconds) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

func formatTS(ts float64) string {
	return strconv.FormatFloat(ts, 'f', -1, 64)
}

// InsertFrameSuggestion splices an accepted suggestion into content near its
// recorded position. The position mapping counts newlines over accumulated
// line lengths, so it is approximate: good enough for the interactive accept
// action, not for byte-exact reconstruction.
func InsertFrameSuggestion(content string, suggestion SuggestedInsertion, position string) string {
	lines := strings.Split(content, "\n")

	insertIndex := 0
	charCount := 0
	for i, line := range lines {
		charCount += len(line) + 1 // +1 for the newline
		if charCount >= suggestion.Position {
			if position == "before" {
				insertIndex = i
			} else {
				insertIndex = i + 1
			}
			break
		}
	}

	var tsAttr, imgSrc string
	if suggestion.KeyFrame != nil {
		tsAttr = formatTS(suggestion.KeyFrame.Timestamp)
		imgSrc = suggestion.KeyFrame.ImageURL
	}
	block := fmt.Sprintf(`
<div class="frame-suggestion" data-timestamp="%s">
  <img src="%s" alt="%s" class="rounded-lg shadow-md" />
  <p class="text-sm text-gray-600 mt-2">%s</p>
</div>
`, tsAttr, imgSrc, suggestion.Text, suggestion.Text)

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insertIndex]...)
	out = append(out, block)
	out = append(out, lines[insertIndex:]...)
	return strings.Join(out, "\n")
}
