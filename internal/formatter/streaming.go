package formatter

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	streamBase64Res = []*regexp.Regexp{
		regexp.MustCompile(`(?i)data:image/[a-z]+;base64,[A-Za-z0-9+/=]+`),
		regexp.MustCompile(`(?i)image/[a-z]+;base64,[A-Za-z0-9+/=]+`),
		regexp.MustCompile(`\b[A-Za-z0-9+/=]{100,}\b`),
		regexp.MustCompile(`/9j/[A-Za-z0-9+/=]{50,}`),
	}
	streamRangeRe = regexp.MustCompile(`(?i)<!--\s*TIMESTAMP_RANGE:\s*(\d+)-(\d+)\s*-->`)
	streamListRe  = regexp.MustCompile(`(?m)^\s*-\s+(.*)$`)
	streamLiRunRe = regexp.MustCompile(`(?s)<li class="ml-4">.*?</li>(?:\s*<li class="ml-4">.*?</li>)*`)
)

// FormatStreamingContent renders a partial, still-streaming LLM response for
// live display: base64 junk is stripped and TIMESTAMP_RANGE markers become
// skeleton blocks that the client swaps out once frames arrive.
func FormatStreamingContent(content string) string {
	if content == "" {
		return ""
	}

	for _, re := range streamBase64Res {
		content = re.ReplaceAllString(content, "")
	}

	content = streamRangeRe.ReplaceAllStringFunc(content, func(marker string) string {
		m := streamRangeRe.FindStringSubmatch(marker)
		return fmt.Sprintf("\n\n<div class=\"timestamp-skeleton\" data-range=\"%s-%s\">Analyzing visual moments (%ss-%ss)</div>\n\n",
			m[1], m[2], m[1], m[2])
	})

	content = boldRe.ReplaceAllString(content, "<strong>$1</strong>")
	content = italicRe.ReplaceAllString(content, "<em>$1</em>")
	content = h3Re.ReplaceAllString(content, "<h3>$1</h3>")
	content = h2Re.ReplaceAllString(content, "<h2>$1</h2>")
	content = h1Re.ReplaceAllString(content, "<h1>$1</h1>")
	content = streamListRe.ReplaceAllString(content, `<li class="ml-4">$1</li>`)

	paragraphs := strings.Split(content, "\n\n")
	for i, p := range paragraphs {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			paragraphs[i] = ""
			continue
		}
		// Already-HTML blocks are left unwrapped.
		if strings.Contains(trimmed, "<h") || strings.Contains(trimmed, "<div") || strings.Contains(trimmed, "<li") {
			paragraphs[i] = p
			continue
		}
		paragraphs[i] = "<p>" + trimmed + "</p>"
	}
	content = strings.Join(paragraphs, "\n\n")

	return streamLiRunRe.ReplaceAllString(content, "<ul>$0</ul>")
}
