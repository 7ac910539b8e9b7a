package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/locator"
	"github.com/jackzampolin/lexreview/internal/providers"
	"github.com/jackzampolin/lexreview/internal/types"
)

// ErrOCRNotConfigured is returned when no OCR provider is available.
var ErrOCRNotConfigured = errors.New("no OCR provider configured")

// OCRDocument is a single-page document recognized from an image. Word
// boxes are in image pixels with a top-left origin.
type OCRDocument struct {
	width, height float64
	lines         []textLine
	text          string
}

var _ Document = (*OCRDocument)(nil)

// ExtractImage runs the OCR provider over an image and keeps the word
// geometry for search.
func ExtractImage(ctx context.Context, ocr providers.OCRProvider, image []byte, format string) (*OCRDocument, error) {
	if ocr == nil {
		return nil, errcode.New(errcode.OCRSettingMissing, ErrOCRNotConfigured)
	}
	if c, ok := ocr.(interface{ Configured() bool }); ok && !c.Configured() {
		return nil, errcode.New(errcode.OCRSettingMissing, fmt.Errorf("%s: url or secret missing", ocr.Name()))
	}

	res, err := ocr.Recognize(ctx, image, format)
	if err != nil {
		return nil, errcode.New(errcode.OCRRequestFailed, err)
	}
	return newOCRDocument(res)
}

func newOCRDocument(res *providers.OCRResult) (*OCRDocument, error) {
	doc := &OCRDocument{width: res.Width, height: res.Height}

	var line textLine
	var words []string
	flush := func() {
		if len(words) > 0 {
			line.text = strings.Join(words, " ")
			doc.lines = append(doc.lines, line)
		}
		line = textLine{}
		words = nil
	}
	for _, w := range res.Words {
		text := strings.TrimSpace(w.Text)
		if text != "" {
			words = append(words, text)
			line.add(text, locator.Rect{X0: w.X0, Y0: w.Y0, X1: w.X1, Y1: w.Y1})
		}
		if w.LineBreak {
			flush()
		}
	}
	flush()

	doc.text = joinLines(doc.lines)
	if doc.text == "" {
		doc.text = strings.TrimSpace(res.Text)
	}
	if doc.text == "" {
		return nil, errcode.Newf(errcode.NoTextsExtracted, "OCR returned no text")
	}
	return doc, nil
}

// PageCount is always 1.
func (d *OCRDocument) PageCount() int { return 1 }

// PageSize returns the image size in pixels.
func (d *OCRDocument) PageSize(page int) (float64, float64) {
	if page != 1 {
		return 0, 0
	}
	return d.width, d.height
}

// Search matches literal against recognized lines. Each rune of a match
// takes its word's box, so results are word-granular.
func (d *OCRDocument) Search(page int, literal string) []locator.Rect {
	if page != 1 {
		return nil
	}
	return searchLines(d.lines, literal)
}

// Pages returns the recognized text as page 1.
func (d *OCRDocument) Pages() []types.PageDocument {
	return []types.PageDocument{{PageContent: d.text, Page: 1}}
}
