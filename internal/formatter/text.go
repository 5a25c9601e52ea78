package formatter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"rehaulx/internal/model"
)

var (
	keyframeDivRe = regexp.MustCompile(`(?s)<div class="keyframe-suggestion[^>]*data-timestamp="([^"]*)"[^>]*>.*?<p[^>]*>(.*?)</p>.*?</div>`)
	frameDivRe    = regexp.MustCompile(`(?s)<div class="frame-suggestion".*?</div>`)

	base64TextRes = []*regexp.Regexp{
		regexp.MustCompile(`Image:\s*image/[a-z]+;base64,[A-Za-z0-9+/=]+`),
		regexp.MustCompile(`URL:\s*data:image/[a-z]+;base64,[A-Za-z0-9+/=]+`),
		regexp.MustCompile(`data:image/[^;]+;base64,[A-Za-z0-9+/=]+`),
		regexp.MustCompile(`image/[a-z]+;base64,[A-Za-z0-9+/=]+`),
		regexp.MustCompile(`/9j/[A-Za-z0-9+/=]+(?::[^:]*)?(?::[^:]*)?`),
		regexp.MustCompile(`Image: data:image[^,]*,[A-Za-z0-9+/=]+`),
	}
	base64TrailRe = regexp.MustCompile(`;base64,[A-Za-z0-9+/=]+`)
	// Long runs of base64-looking text. Requires payload characters so the
	// rule cannot eat the `=` underline emitted for h1 headings, which keeps
	// CleanHTMLToText idempotent.
	longBase64Re = regexp.MustCompile(`[A-Za-z0-9+/]{50,}={0,2}`)

	htmlH1Re     = regexp.MustCompile(`<h1[^>]*>(.*?)</h1>`)
	htmlH2Re     = regexp.MustCompile(`<h2[^>]*>(.*?)</h2>`)
	htmlH3Re     = regexp.MustCompile(`<h3[^>]*>(.*?)</h3>`)
	htmlUlRe     = regexp.MustCompile(`<ul[^>]*>`)
	htmlLiRe     = regexp.MustCompile(`<li[^>]*>(.*?)</li>`)
	htmlStrongRe = regexp.MustCompile(`<strong[^>]*>(.*?)</strong>`)
	htmlEmRe     = regexp.MustCompile(`<em[^>]*>(.*?)</em>`)
	htmlPRe      = regexp.MustCompile(`<p[^>]*>(.*?)</p>`)
	anyTagRe     = regexp.MustCompile(`<[^>]*>`)
	edgeSpaceRe  = regexp.MustCompile(`^\s+|\s+$`)
)

// CleanHTMLToText flattens formatted HTML content back to plain text for
// copy/export. Keyframe blocks become [Visual: ...] placeholders. The
// function is idempotent.
func CleanHTMLToText(htmlContent string) string {
	out := keyframeDivRe.ReplaceAllString(htmlContent, "\n[Visual: $2]\n")
	out = frameDivRe.ReplaceAllString(out, "")

	for _, re := range base64TextRes {
		out = re.ReplaceAllString(out, "[Image]")
	}
	out = strings.ReplaceAll(out, "URL: data", "")
	out = base64TrailRe.ReplaceAllString(out, "")
	out = longBase64Re.ReplaceAllString(out, "[Image Data]")

	out = htmlH1Re.ReplaceAllString(out, "\n\n$1\n"+strings.Repeat("=", 50)+"\n")
	out = htmlH2Re.ReplaceAllString(out, "\n\n$1\n"+strings.Repeat("-", 30)+"\n")
	out = htmlH3Re.ReplaceAllString(out, "\n\n$1\n")

	out = htmlUlRe.ReplaceAllString(out, "\n")
	out = strings.ReplaceAll(out, "</ul>", "\n")
	out = htmlLiRe.ReplaceAllString(out, "• $1\n")

	out = htmlStrongRe.ReplaceAllString(out, "$1")
	out = htmlEmRe.ReplaceAllString(out, "$1")
	out = htmlPRe.ReplaceAllString(out, "$1\n\n")
	out = anyTagRe.ReplaceAllString(out, "")

	out = strings.ReplaceAll(out, "&amp;", "&")
	out = strings.ReplaceAll(out, "&lt;", "<")
	out = strings.ReplaceAll(out, "&gt;", ">")
	out = strings.ReplaceAll(out, "&quot;", `"`)
	out = strings.ReplaceAll(out, "&#39;", "'")
	out = strings.ReplaceAll(out, "&nbsp;", " ")

	out = manyNLRe.ReplaceAllString(out, "\n\n")
	out = edgeSpaceRe.ReplaceAllString(out, "")

	out = boldRe.ReplaceAllString(out, "$1")
	out = italicRe.ReplaceAllString(out, "$1")
	return strings.TrimSpace(out)
}

// FormatContentForExport produces the flat-text rendition used by the TXT
// export and as the body source for PDF/DOCX.
func FormatContentForExport(content, title string, keyFrames []model.KeyFrame) string {
	clean := CleanHTMLToText(content)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	b.WriteString(clean)
	b.WriteString("\n\n")

	if len(keyFrames) > 0 {
		fmt.Fprintf(&b, "\n%s\nKey Visual Moments:\n", strings.Repeat("-", 30))
		for i, frame := range keyFrames {
			desc := frame.Description
			if desc == "" {
				desc = "Key moment"
			}
			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, FormatTimestamp(frame.Timestamp), desc)
		}
	}
	return b.String()
}

// ImagePlaceholder locates an embedded keyframe block within formatted
// content, with its position measured in cleaned-text offsets.
type ImagePlaceholder struct {
	Position    int     `json:"position"`
	Timestamp   float64 `json:"timestamp"`
	ImageURL    string  `json:"imageUrl"`
	Description string  `json:"description"`
}

var keyframeImgDivRe = regexp.MustCompile(`(?s)<div class="keyframe-suggestion[^>]*data-timestamp="([^"]*)"[^>]*>.*?<img[^>]*src="([^"]*)"[^>]*>.*?<p[^>]*>(.*?)</p>.*?</div>`)

// ExtractImagePlaceholders returns every keyframe block embedded in content.
func ExtractImagePlaceholders(content string) []ImagePlaceholder {
	var placeholders []ImagePlaceholder
	textPosition := 0
	lastIndex := 0

	for _, loc := range keyframeImgDivRe.FindAllStringSubmatchIndex(content, -1) {
		textPosition += len(CleanHTMLToText(content[lastIndex:loc[0]]))

		ts, _ := strconv.ParseFloat(content[loc[2]:loc[3]], 64)
		desc := anyTagRe.ReplaceAllString(content[loc[6]:loc[7]], "")
		placeholders = append(placeholders, ImagePlaceholder{
			Position:    textPosition,
			Timestamp:   ts,
			ImageURL:    content[loc[4]:loc[5]],
			Description: strings.TrimSpace(desc),
		})
		lastIndex = loc[1]
	}
	return placeholders
}
