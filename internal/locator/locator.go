// Package locator maps clause text back to on-page bounding boxes.
package locator

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jackzampolin/lexreview/internal/patterns"
	"github.com/jackzampolin/lexreview/internal/types"
)

// DefaultMinPhraseLength drops phrases too short to locate unambiguously.
const DefaultMinPhraseLength = 4

// Rect is an absolute rectangle in page units with a top-left origin.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Searchable is a document that can report where literal text appears.
// Pages are 1-based.
type Searchable interface {
	PageCount() int
	PageSize(page int) (width, height float64)
	Search(page int, literal string) []Rect
}

// PagePositions holds the merged boxes found on one page.
type PagePositions struct {
	Page  int                 `json:"page"`
	Boxes []types.BoundingBox `json:"boxes"`
}

// Config configures a Locator.
type Config struct {
	MinPhraseLength int
}

// Locator finds clause text inside a Searchable document.
type Locator struct {
	minPhrase int
}

// New creates a Locator.
func New(cfg Config) *Locator {
	if cfg.MinPhraseLength <= 0 {
		cfg.MinPhraseLength = DefaultMinPhraseLength
	}
	return &Locator{minPhrase: cfg.MinPhraseLength}
}

// Query is the text of one review unit to locate.
type Query struct {
	Text string
	// Style is the clause numbering family of the unit; its labels are
	// dropped from phrases.
	Style patterns.ClauseStyle
	// StartPage is the first page scanned. Values below 1 scan from page 1.
	StartPage int
}

// Locate searches the pages from q.StartPage on for the phrases of q.Text and
// returns one entry per page with matches, in page order. Matches that start
// on the same row are merged into a single enclosing box.
func (l *Locator) Locate(q Query, doc Searchable) []PagePositions {
	phrases := l.Phrases(q.Text, q.Style)
	if len(phrases) == 0 || doc == nil {
		return nil
	}

	var out []PagePositions
	for page := max(q.StartPage, 1); page <= doc.PageCount(); page++ {
		width, height := doc.PageSize(page)
		if width <= 0 || height <= 0 {
			continue
		}

		var boxes []types.BoundingBox
		for _, phrase := range phrases {
			for _, r := range doc.Search(page, phrase) {
				boxes = append(boxes, Normalize(r, width, height))
			}
		}
		if len(boxes) == 0 {
			continue
		}
		out = append(out, PagePositions{Page: page, Boxes: MergeRows(boxes)})
	}
	return out
}

// Phrases splits clause text into independently searchable lines. Title
// prefixes ("title+") of each joined segment are dropped, as are leading
// clause labels of style.
func (l *Locator) Phrases(text string, style patterns.ClauseStyle) []string {
	seen := make(map[string]struct{})
	var phrases []string

	for _, segment := range strings.Split(text, patterns.ClauseTextSeparator) {
		if _, body, ok := strings.Cut(segment, patterns.ArticleClauseSeparator); ok {
			segment = body
		}
		for _, line := range strings.Split(segment, "\n") {
			line = strings.TrimSpace(patterns.StripLabel(line, style))
			if utf8.RuneCountInString(line) < l.minPhrase {
				continue
			}
			if _, dup := seen[line]; dup {
				continue
			}
			seen[line] = struct{}{}
			phrases = append(phrases, line)
		}
	}
	return phrases
}

// Normalize converts an absolute rectangle to page-relative percentages.
func Normalize(r Rect, width, height float64) types.BoundingBox {
	return types.BoundingBox{
		X:      r.X0 / width * 100,
		Y:      r.Y0 / height * 100,
		Width:  (r.X1 - r.X0) / width * 100,
		Height: (r.Y1 - r.Y0) / height * 100,
	}
}

// MergeRows groups boxes by their rounded top edge and merges each group.
// Rows are returned top to bottom.
func MergeRows(boxes []types.BoundingBox) []types.BoundingBox {
	rows := make(map[float64][]types.BoundingBox)
	var keys []float64
	for _, b := range boxes {
		key := rowKey(b.Y)
		if _, ok := rows[key]; !ok {
			keys = append(keys, key)
		}
		rows[key] = append(rows[key], b)
	}
	sort.Float64s(keys)

	merged := make([]types.BoundingBox, 0, len(keys))
	for _, key := range keys {
		merged = append(merged, Merge(rows[key]...))
	}
	return merged
}

// Merge returns the smallest box enclosing all of boxes.
func Merge(boxes ...types.BoundingBox) types.BoundingBox {
	if len(boxes) == 0 {
		return types.BoundingBox{}
	}
	x0, y0 := boxes[0].X, boxes[0].Y
	x1, y1 := boxes[0].X+boxes[0].Width, boxes[0].Y+boxes[0].Height
	for _, b := range boxes[1:] {
		x0 = math.Min(x0, b.X)
		y0 = math.Min(y0, b.Y)
		x1 = math.Max(x1, b.X+b.Width)
		y1 = math.Max(y1, b.Y+b.Height)
	}
	return types.BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Truncate keeps at most maxPages page groups. A non-positive maxPages keeps all.
func Truncate(positions []PagePositions, maxPages int) []PagePositions {
	if maxPages <= 0 || len(positions) <= maxPages {
		return positions
	}
	return positions[:maxPages]
}

func rowKey(y float64) float64 {
	return math.Round(y*100) / 100
}
