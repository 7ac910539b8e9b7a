// Package chunker recovers the article/clause structure of a legal document
// from page-tagged text.
//
// Each page is scanned for article headings ("제N조(제목)"). The body of an
// article runs until the next heading. When the body opens a numbered clause
// list the list is split using that family's pattern; otherwise the whole body
// is clause 1. Text at the top of a page that precedes the first heading is a
// continuation of the previous page's last clause.
package chunker

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/patterns"
	"github.com/jackzampolin/lexreview/internal/types"
)

// DefaultMinBodyLength is the minimum trimmed rune count of an emitted unit.
const DefaultMinBodyLength = 10

// Config configures a Chunker.
type Config struct {
	// MinBodyLength discards header-only or empty fragments.
	MinBodyLength int
	Logger        *slog.Logger
}

// Chunker splits pages into structural units. It holds no per-document state
// and is safe for concurrent use.
type Chunker struct {
	minBody int
	logger  *slog.Logger
}

// New creates a Chunker.
func New(cfg Config) *Chunker {
	if cfg.MinBodyLength <= 0 {
		cfg.MinBodyLength = DefaultMinBodyLength
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Chunker{
		minBody: cfg.MinBodyLength,
		logger:  cfg.Logger,
	}
}

// Chunk returns the structural units of docs in page order. It fails with
// errcode.ChunkingFailed when nothing could be extracted.
func (c *Chunker) Chunk(docs []types.PageDocument) ([]types.StructuralUnit, error) {
	var units []types.StructuralUnit

	for _, doc := range docs {
		text := norm.NFC.String(doc.PageContent)
		order := 1

		if !patterns.StartsWithArticle(text) {
			units, order = c.appendPreamble(units, text, doc.Page, order)
		}

		headings := patterns.ArticleHeading.FindAllStringIndex(text, -1)
		for i, loc := range headings {
			end := len(text)
			if i+1 < len(headings) {
				end = headings[i+1][0]
			}

			heading := text[loc[0]:loc[1]]
			num, title, ok := patterns.ParseArticleHeading(heading)
			if !ok {
				c.logger.Warn("skipping unsupported article heading",
					"page", doc.Page,
					"heading", heading,
					"code", errcode.UnsupportedFormat.Code)
				continue
			}

			body := strings.TrimSpace(text[loc[1]:end])
			units, order = c.appendArticle(units, num, title, body, doc.Page, order)
		}
	}

	if len(units) == 0 {
		return nil, errcode.Newf(errcode.ChunkingFailed, "no structural units in %d pages", len(docs))
	}
	return units, nil
}

func (c *Chunker) appendArticle(units []types.StructuralUnit, num int, title, body string, page, order int) ([]types.StructuralUnit, int) {
	style := patterns.DetectStyle(body)

	if style == patterns.StyleNone {
		if c.long(body) {
			units = append(units, types.StructuralUnit{
				ClauseContent: title + patterns.ArticleClauseSeparator + "\n" + body,
				Page:          page,
				OrderIndex:    order,
				ClauseNumber:  fmt.Sprintf("제%d조 1항", num),
				Style:         style,
			})
			order++
		}
		return units, order
	}

	// Text ahead of the first clause label is not part of any clause.
	_, segments := patterns.Split("\n"+body, style)
	for _, seg := range segments {
		content := strings.TrimSpace(seg.Body)
		if !c.long(content) {
			continue
		}
		units = append(units, types.StructuralUnit{
			ClauseContent: title + patterns.ArticleClauseSeparator + "\n" + content,
			Page:          page,
			OrderIndex:    order,
			ClauseNumber:  fmt.Sprintf("제%d조 %s항", num, seg.Label),
			Style:         style,
		})
		order++
	}
	return units, order
}

// appendPreamble attaches the text above the page's first heading to the last
// clause seen so far. Later labels in the preamble continue that clause's
// article using the same numbering family.
func (c *Chunker) appendPreamble(units []types.StructuralUnit, text string, page, order int) ([]types.StructuralUnit, int) {
	if len(units) == 0 {
		return units, order
	}

	preamble := text
	if loc := patterns.ArticleHeading.FindStringIndex(text); loc != nil {
		preamble = text[:loc[0]]
	}

	prev := units[len(units)-1]
	head, segments := patterns.Split("\n"+preamble, prev.Style)

	if content := patterns.StripPageMarkers(head); c.long(content) {
		units = append(units, types.StructuralUnit{
			ClauseContent: content,
			Page:          page,
			OrderIndex:    order,
			ClauseNumber:  prev.ClauseNumber,
			Style:         prev.Style,
		})
		order++
	}

	prefix := patterns.ArticlePrefix(prev.ClauseNumber)
	for _, seg := range segments {
		content := strings.TrimSpace(seg.Body)
		if !c.long(content) {
			continue
		}
		units = append(units, types.StructuralUnit{
			ClauseContent: content,
			Page:          page,
			OrderIndex:    order,
			ClauseNumber:  fmt.Sprintf("%s %s항", prefix, seg.Label),
			Style:         prev.Style,
		})
		order++
	}
	return units, order
}

func (c *Chunker) long(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= c.minBody
}
