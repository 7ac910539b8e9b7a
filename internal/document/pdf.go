package document

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/locator"
	"github.com/jackzampolin/lexreview/internal/types"
)

// A4 in points, used when a page has no readable MediaBox.
const (
	defaultPageWidth  = 595.0
	defaultPageHeight = 842.0
)

// rowTolerance is how far apart two baselines may be and still count as
// one line, in points.
const rowTolerance = 2.0

// PDF is an extracted PDF document. It is read-only after ExtractPDF and
// safe for concurrent use.
type PDF struct {
	pages []pdfPage
}

type pdfPage struct {
	width, height float64
	lines         []textLine
	text          string
}

var _ Document = (*PDF)(nil)

// ExtractPDF validates data with pdfcpu and extracts positioned text with
// ledongthuc/pdf. Pages are numbered from 1.
func ExtractPDF(ctx context.Context, data []byte) (*PDF, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return nil, errcode.New(errcode.PDFLoadFailed, fmt.Errorf("failed to validate PDF: %w", err))
	}
	pageCount, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, errcode.New(errcode.PDFLoadFailed, fmt.Errorf("failed to get page count: %w", err))
	}
	if pageCount == 0 {
		return nil, errcode.Newf(errcode.InnerDataError, "PDF has no pages")
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// Owner-password restrictions: decrypt with pdfcpu and try again.
		var buf bytes.Buffer
		if derr := api.Decrypt(bytes.NewReader(data), &buf, conf); derr != nil {
			return nil, errcode.New(errcode.PDFLoadFailed, fmt.Errorf("failed to open PDF: %w", err))
		}
		decrypted := buf.Bytes()
		r, err = pdf.NewReader(bytes.NewReader(decrypted), int64(len(decrypted)))
		if err != nil {
			return nil, errcode.New(errcode.PDFLoadFailed, fmt.Errorf("failed to open decrypted PDF: %w", err))
		}
	}

	doc := &PDF{pages: make([]pdfPage, 0, pageCount)}
	hasText := false
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := readPage(r.Page(i))
		if err != nil {
			return nil, errcode.New(errcode.InnerDataError, fmt.Errorf("failed to read page %d: %w", i, err))
		}
		if page.text != "" {
			hasText = true
		}
		doc.pages = append(doc.pages, page)
	}
	if !hasText {
		return nil, errcode.Newf(errcode.NoTextsExtracted, "no text in %d pages", pageCount)
	}
	return doc, nil
}

// PageCount returns the number of pages.
func (d *PDF) PageCount() int {
	return len(d.pages)
}

// PageSize returns the page's width and height in points.
func (d *PDF) PageSize(page int) (float64, float64) {
	if page < 1 || page > len(d.pages) {
		return 0, 0
	}
	p := d.pages[page-1]
	return p.width, p.height
}

// Search returns the rectangles of literal on page, top-left origin.
func (d *PDF) Search(page int, literal string) []locator.Rect {
	if page < 1 || page > len(d.pages) {
		return nil
	}
	return searchLines(d.pages[page-1].lines, literal)
}

// Pages returns the extracted text of each page.
func (d *PDF) Pages() []types.PageDocument {
	out := make([]types.PageDocument, len(d.pages))
	for i, p := range d.pages {
		out[i] = types.PageDocument{PageContent: p.text, Page: i + 1}
	}
	return out
}

func readPage(p pdf.Page) (page pdfPage, err error) {
	page.width, page.height = mediaBox(p.V)
	if p.V.IsNull() {
		return page, nil
	}

	// Content panics on malformed operators.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()

	page.lines = buildLines(p.Content().Text, page.height)
	page.text = joinLines(page.lines)
	return page, nil
}

// buildLines groups glyphs into rows by baseline, top to bottom, and
// orders each row left to right. A gap wider than a fifth of the font
// size becomes a space.
func buildLines(glyphs []pdf.Text, pageHeight float64) []textLine {
	if len(glyphs) == 0 {
		return nil
	}
	sorted := make([]pdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var rows [][]pdf.Text
	for _, g := range sorted {
		n := len(rows)
		if n > 0 && math.Abs(rows[n-1][0].Y-g.Y) <= rowTolerance {
			rows[n-1] = append(rows[n-1], g)
			continue
		}
		rows = append(rows, []pdf.Text{g})
	}

	lines := make([]textLine, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })

		var line textLine
		var text []byte
		for i, g := range row {
			size := g.FontSize
			if size <= 0 {
				size = 10
			}
			width := g.W
			if width <= 0 {
				width = size / 2
			}
			if i > 0 {
				prev := row[i-1]
				if g.X-(prev.X+prev.W) > size*0.2 {
					text = append(text, ' ')
				}
			}
			text = append(text, g.S...)
			line.add(g.S, locator.Rect{
				X0: g.X,
				Y0: pageHeight - g.Y - size,
				X1: g.X + width,
				Y1: pageHeight - g.Y + size*0.2,
			})
		}
		line.text = string(bytes.TrimSpace(text))
		if line.text == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// mediaBox reads the inherited MediaBox of a page dictionary.
func mediaBox(v pdf.Value) (float64, float64) {
	for ; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Kind() != pdf.Array || box.Len() != 4 {
			continue
		}
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return defaultPageWidth, defaultPageHeight
}
