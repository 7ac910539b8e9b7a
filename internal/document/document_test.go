package document

import (
	"context"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/locator"
	"github.com/jackzampolin/lexreview/internal/providers"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		format string
		err    bool
	}{
		{"s3://bucket/contracts/a.pdf", KindPDF, "pdf", false},
		{"file:///tmp/scan.JPG", KindImage, "jpg", false},
		{"https://host/x.png?sig=abc", KindImage, "png", false},
		{"doc.jpeg", KindImage, "jpeg", false},
		{"notes.docx", "", "docx", true},
		{"noext", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, format, err := DetectKind(tt.name)
			if tt.err {
				require.Error(t, err)
				assert.True(t, errcode.Has(err, errcode.UnsupportedFileType))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.format, format)
		})
	}
}

func TestSearchLinesIgnoresWhitespaceAndNormalization(t *testing.T) {
	var line textLine
	line.text = "임금은 매월 지급"
	// Decomposed jamo, as some PDFs emit them.
	for i, word := range []string{norm.NFD.String("임금은"), " ", "매월", " ", "지급"} {
		x := float64(i * 10)
		line.add(word, locator.Rect{X0: x, Y0: 5, X1: x + 10, Y1: 15})
	}

	got := searchLines([]textLine{line}, "임금은 매월")
	require.Len(t, got, 1)
	assert.Equal(t, locator.Rect{X0: 0, Y0: 5, X1: 30, Y1: 15}, got[0])

	assert.Len(t, searchLines([]textLine{line}, "매월지급"), 1)
	assert.Empty(t, searchLines([]textLine{line}, "분기"))
	assert.Empty(t, searchLines([]textLine{line}, "   "))
}

func TestSearchLinesFindsRepeats(t *testing.T) {
	var line textLine
	line.add("갑과 갑", locator.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10})
	assert.Len(t, searchLines([]textLine{line}, "갑"), 2)
}

func TestBuildLines(t *testing.T) {
	glyphs := []pdf.Text{
		{FontSize: 10, X: 30, Y: 700, W: 10, S: "조"},
		{FontSize: 10, X: 10, Y: 700, W: 10, S: "제"},
		{FontSize: 10, X: 20, Y: 700.5, W: 10, S: "1"},
		{FontSize: 10, X: 60, Y: 700, W: 10, S: "목"},
		{FontSize: 10, X: 10, Y: 680, W: 10, S: "①"},
	}

	lines := buildLines(glyphs, 800)
	require.Len(t, lines, 2)
	assert.Equal(t, "제1조 목", lines[0].text)
	assert.Equal(t, "①", lines[1].text)

	rects := searchLines(lines, "제1조")
	require.Len(t, rects, 1)
	assert.Equal(t, locator.Rect{X0: 10, Y0: 89.5, X1: 40, Y1: 102}, rects[0])
}

func TestExtractImage(t *testing.T) {
	ocr := providers.NewMockOCRProvider()
	ocr.Result = &providers.OCRResult{
		Width:  1000,
		Height: 2000,
		Words: []providers.OCRWord{
			{Text: "제1조(목적)", X0: 100, Y0: 100, X1: 300, Y1: 140, LineBreak: true},
			{Text: "①", X0: 100, Y0: 160, X1: 120, Y1: 200},
			{Text: "임금은", X0: 130, Y0: 160, X1: 220, Y1: 200},
			{Text: "매월", X0: 230, Y0: 160, X1: 300, Y1: 200, LineBreak: true},
		},
	}

	doc, err := ExtractImage(context.Background(), ocr, []byte("img"), "png")
	require.NoError(t, err)

	pages := doc.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, "제1조(목적)\n① 임금은 매월", pages[0].PageContent)
	assert.Equal(t, 1, doc.PageCount())

	w, h := doc.PageSize(1)
	assert.Equal(t, 1000.0, w)
	assert.Equal(t, 2000.0, h)

	rects := doc.Search(1, "임금은 매월")
	require.Len(t, rects, 1)
	assert.Equal(t, locator.Rect{X0: 130, Y0: 160, X1: 300, Y1: 200}, rects[0])
	assert.Empty(t, doc.Search(2, "임금은"))
}

func TestExtractImageErrors(t *testing.T) {
	_, err := ExtractImage(context.Background(), nil, nil, "png")
	assert.True(t, errcode.Has(err, errcode.OCRSettingMissing))

	failing := providers.NewMockOCRProvider()
	failing.ShouldFail = true
	_, err = ExtractImage(context.Background(), failing, nil, "png")
	assert.True(t, errcode.Has(err, errcode.OCRRequestFailed))

	empty := providers.NewMockOCRProvider()
	empty.Result = &providers.OCRResult{Width: 10, Height: 10}
	_, err = ExtractImage(context.Background(), empty, nil, "png")
	assert.True(t, errcode.Has(err, errcode.NoTextsExtracted))

	unconfigured := providers.NewClovaOCRClient(providers.ClovaOCRConfig{})
	_, err = ExtractImage(context.Background(), unconfigured, nil, "png")
	assert.True(t, errcode.Has(err, errcode.OCRSettingMissing))
}
