// Package document turns stored files into page text for the chunker and
// a searchable handle for the locator.
package document

import (
	"context"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/locator"
	"github.com/jackzampolin/lexreview/internal/providers"
	"github.com/jackzampolin/lexreview/internal/types"
)

// Document is an extracted file: its page text plus literal search.
type Document interface {
	locator.Searchable
	Pages() []types.PageDocument
}

// Kind is a supported input file type.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

// DetectKind maps a file name or URI to its Kind by extension.
func DetectKind(name string) (Kind, string, error) {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	switch ext {
	case "pdf":
		return KindPDF, ext, nil
	case "png", "jpg", "jpeg":
		return KindImage, ext, nil
	default:
		return "", ext, errcode.Newf(errcode.UnsupportedFileType, "extension %q", ext)
	}
}

// Extract dispatches on kind. ocr is only consulted for images.
func Extract(ctx context.Context, kind Kind, format string, data []byte, ocr providers.OCRProvider) (Document, error) {
	switch kind {
	case KindPDF:
		return ExtractPDF(ctx, data)
	case KindImage:
		return ExtractImage(ctx, ocr, data, format)
	default:
		return nil, errcode.Newf(errcode.UnsupportedFileType, "kind %q", kind)
	}
}

// textLine is one visual line. key is the line's text in NFD with all
// whitespace removed; boxes holds one rectangle per rune of key.
type textLine struct {
	text  string
	key   string
	boxes []locator.Rect
}

func (l *textLine) add(s string, box locator.Rect) {
	for _, r := range norm.NFD.String(s) {
		if unicode.IsSpace(r) {
			continue
		}
		l.key += string(r)
		l.boxes = append(l.boxes, box)
	}
}

// searchKey normalizes a literal the same way textLine.add does.
func searchKey(literal string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, norm.NFD.String(literal))
}

// searchLines returns the enclosing rectangle of every occurrence of
// literal, ignoring whitespace. Matches never span lines.
func searchLines(lines []textLine, literal string) []locator.Rect {
	needle := searchKey(literal)
	if needle == "" {
		return nil
	}
	n := utf8.RuneCountInString(needle)

	var out []locator.Rect
	for _, l := range lines {
		offset := 0
		for {
			i := strings.Index(l.key[offset:], needle)
			if i < 0 {
				break
			}
			start := utf8.RuneCountInString(l.key[:offset+i])
			out = append(out, enclose(l.boxes[start:start+n]))
			offset += i + len(needle)
		}
	}
	return out
}

func enclose(boxes []locator.Rect) locator.Rect {
	r := boxes[0]
	for _, b := range boxes[1:] {
		r.X0 = min(r.X0, b.X0)
		r.Y0 = min(r.Y0, b.Y0)
		r.X1 = max(r.X1, b.X1)
		r.Y1 = max(r.Y1, b.Y1)
	}
	return r
}

func joinLines(lines []textLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, l.text)
	}
	return norm.NFC.String(strings.Join(parts, "\n"))
}
