package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"rehaulx/internal/formatter"
	"rehaulx/internal/model"

	docx "github.com/fumiama/go-docx"
	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
)

// ErrUnknownFormat is returned for export formats other than txt, pdf, docx.
var ErrUnknownFormat = fmt.Errorf("unknown export format")

// ExportResult is a rendered document ready to be sent as an attachment.
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ExportService renders formatted content into downloadable documents.
type ExportService interface {
	Export(ctx context.Context, format, content string, videoInfo *model.VideoInfo, keyFrames []model.KeyFrame) (*ExportResult, error)
}

type exportService struct {
	logger zerolog.Logger
}

// NewExportService creates an ExportService with a scoped logger.
func NewExportService(logger zerolog.Logger) ExportService {
	return &exportService{logger: logger.With().Str("service", "ExportService").Logger()}
}

var (
	exportSplitRe   = regexp.MustCompile(`(?s)(<div class="keyframe-suggestion[^>]*>.*?</div>)`)
	exportImgRe     = regexp.MustCompile(`<img[^>]*src="([^"]*)"`)
	exportCaptionRe = regexp.MustCompile(`(?s)<p[^>]*>(.*?)</p>`)
	filenameRe      = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

func (s *exportService) Export(_ context.Context, format, content string, videoInfo *model.VideoInfo, keyFrames []model.KeyFrame) (*ExportResult, error) {
	title := "Generated Content"
	if videoInfo != nil && videoInfo.Title != "" {
		title = videoInfo.Title
	}

	switch format {
	case "txt":
		return &ExportResult{
			Data:        []byte(formatter.FormatContentForExport(content, title, keyFrames)),
			ContentType: "text/plain",
			Filename:    sanitizeFilename(title) + ".txt",
		}, nil
	case "pdf":
		data, err := s.renderPDF(content, title, keyFrames)
		if err != nil {
			s.logger.Error().Err(err).Msg("PDF generation failed")
			return nil, fmt.Errorf("generate pdf: %w", err)
		}
		return &ExportResult{Data: data, ContentType: "application/pdf", Filename: sanitizeFilename(title) + ".pdf"}, nil
	case "docx":
		data, err := s.renderDocx(content, title, videoInfo, keyFrames)
		if err != nil {
			s.logger.Error().Err(err).Msg("DOCX generation failed")
			return nil, fmt.Errorf("generate docx: %w", err)
		}
		return &ExportResult{
			Data:        data,
			ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			Filename:    sanitizeFilename(title) + ".docx",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

func sanitizeFilename(title string) string {
	if len(title) > 50 {
		title = title[:50]
	}
	return filenameRe.ReplaceAllString(title, "_")
}

// walkContentBlocks visits text runs and keyframe-suggestion blocks in
// document order.
func walkContentBlocks(content string, onText func(string), onBlock func(string)) {
	last := 0
	for _, loc := range exportSplitRe.FindAllStringIndex(content, -1) {
		if loc[0] > last {
			onText(content[last:loc[0]])
		}
		onBlock(content[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(content) {
		onText(content[last:])
	}
}

// imageBytes decodes the JPEG payload of a frame image reference. Only
// base64 payloads are supported; storage URLs yield nil.
func imageBytes(imageURL string) []byte {
	payload := imageURL
	switch {
	case strings.HasPrefix(imageURL, "data:image/"):
		i := strings.Index(imageURL, ",")
		if i < 0 {
			return nil
		}
		payload = imageURL[i+1:]
	case strings.HasPrefix(imageURL, "/9j/"):
		// Bare JPEG base64.
	default:
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	return data
}

func (s *exportService) renderPDF(content, title string, keyFrames []model.KeyFrame) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	pageWidth, pageHeight := pdf.GetPageSize()
	const margin = 20.0
	contentWidth := pageWidth - margin*2

	pdf.SetFont("Helvetica", "B", 20)
	pdf.MultiCell(contentWidth, 10, title, "", "L", false)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	imgIndex := 0
	walkContentBlocks(content, func(text string) {
		clean := formatter.CleanHTMLToText(text)
		if clean == "" {
			return
		}
		pdf.MultiCell(contentWidth, 6, clean, "", "L", false)
		pdf.Ln(5)
	}, func(block string) {
		s.pdfInlineImage(pdf, block, margin, contentWidth, pageHeight, &imgIndex)
	})

	if len(keyFrames) > 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.MultiCell(contentWidth, 8, "Key Visual Moments", "", "L", false)
		pdf.Ln(6)

		for i, frame := range keyFrames {
			desc := frame.Description
			if desc == "" {
				desc = "Key moment"
			}
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(contentWidth, 6, fmt.Sprintf("%d. [%s] %s", i+1, formatter.FormatTimestamp(frame.Timestamp), desc), "", "L", false)
			pdf.Ln(2)

			if data := imageBytes(frame.ImageURL); data != nil {
				s.pdfImage(pdf, data, margin, contentWidth*0.6, pageHeight, &imgIndex)
			} else if frame.ImageURL != "" {
				s.pdfPlaceholder(pdf, margin, contentWidth*0.6)
			}
			pdf.Ln(6)
		}
	}

	if pdf.Err() {
		return nil, pdf.Error()
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfInlineImage renders one keyframe-suggestion block: image plus caption.
func (s *exportService) pdfInlineImage(pdf *fpdf.Fpdf, block string, margin, contentWidth, pageHeight float64, imgIndex *int) {
	imgMatch := exportImgRe.FindStringSubmatch(block)
	if imgMatch == nil {
		return
	}
	caption := "Visual element"
	if m := exportCaptionRe.FindStringSubmatch(block); m != nil {
		if c := strings.TrimSpace(regexp.MustCompile(`<[^>]*>`).ReplaceAllString(m[1], "")); c != "" {
			caption = c
		}
	}

	if data := imageBytes(imgMatch[1]); data != nil {
		s.pdfImage(pdf, data, margin, contentWidth*0.8, pageHeight, imgIndex)
	} else {
		s.pdfPlaceholder(pdf, margin, contentWidth)
	}
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(contentWidth, 5, caption, "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Ln(5)
}

func (s *exportService) pdfImage(pdf *fpdf.Fpdf, jpeg []byte, margin, width, pageHeight float64, imgIndex *int) {
	*imgIndex++
	name := fmt.Sprintf("frame-%d", *imgIndex)
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(jpeg))
	if pdf.Err() {
		s.logger.Warn().Str("image", name).Msg("Could not register frame image")
		pdf.ClearError()
		s.pdfPlaceholder(pdf, margin, width)
		return
	}
	height := width * 9 / 16
	if pdf.GetY()+height > pageHeight-20 {
		pdf.AddPage()
	}
	pdf.ImageOptions(name, margin, pdf.GetY(), width, height, false, opts, 0, "")
	pdf.SetY(pdf.GetY() + height + 4)
}

func (s *exportService) pdfPlaceholder(pdf *fpdf.Fpdf, margin, width float64) {
	y := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Rect(margin, y, width, 20, "FD")
	pdf.SetTextColor(100, 100, 100)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(margin+5, y+12, "Image unavailable")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetY(y + 25)
}

func (s *exportService) renderDocx(content, title string, videoInfo *model.VideoInfo, keyFrames []model.KeyFrame) ([]byte, error) {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().AddText(title).Size("32").Bold()

	if videoInfo != nil && (videoInfo.Author != "" || videoInfo.Duration != "") {
		meta := []string{}
		if videoInfo.Author != "" {
			meta = append(meta, "By: "+videoInfo.Author)
		}
		if videoInfo.Duration != "" {
			meta = append(meta, "Duration: "+videoInfo.Duration)
		}
		doc.AddParagraph().AddText(strings.Join(meta, " | ")).Size("20").Italic()
	}
	doc.AddParagraph()

	walkContentBlocks(content, func(text string) {
		clean := formatter.CleanHTMLToText(text)
		if clean == "" {
			return
		}
		for _, line := range strings.Split(clean, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			doc.AddParagraph().AddText(line)
		}
	}, func(block string) {
		if m := exportImgRe.FindStringSubmatch(block); m != nil {
			s.docxImage(doc, m[1])
		}
	})

	if len(keyFrames) > 0 {
		doc.AddParagraph()
		doc.AddParagraph().AddText("Key Visual Moments").Size("24").Bold()
		for i, frame := range keyFrames {
			desc := frame.Description
			if desc == "" {
				desc = "Key moment"
			}
			doc.AddParagraph().AddText(fmt.Sprintf("%d. [%s] %s", i+1, formatter.FormatTimestamp(frame.Timestamp), desc)).Bold()
			s.docxImage(doc, frame.ImageURL)
		}
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *exportService) docxImage(doc *docx.Docx, imageURL string) {
	data := imageBytes(imageURL)
	if data == nil {
		if imageURL != "" {
			doc.AddParagraph().AddText("[Image unavailable]").Italic()
		}
		return
	}
	if _, err := doc.AddParagraph().AddInlineDrawing(data); err != nil {
		s.logger.Warn().Err(err).Msg("Could not embed frame image in docx")
		doc.AddParagraph().AddText("[Image unavailable]").Italic()
	}
}
