// Package patterns holds the regular expressions and separators used to
// recover article/clause structure from Korean legal documents.
package patterns

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// ClauseTextSeparator joins the contents of units that share a clause number.
	ClauseTextSeparator = "!!!"

	// ArticleClauseSeparator sits between an article title and its clause body.
	ArticleClauseSeparator = "+"

	// PageMarkerPrefix starts page header/footer lines emitted by extraction.
	PageMarkerPrefix = "페이지"
)

var (
	// ArticleHeader matches a line that opens an article ("제 3 조").
	ArticleHeader = regexp.MustCompile(`^\s*제\s*\d+\s*조`)

	// ArticleHeading matches a full article heading with its bracketed title,
	// e.g. "제1조(목적)" or "제12조【손해배상】".
	ArticleHeading = regexp.MustCompile(`제\d+조\s*(?:【[^】]+】|\([^)]+\))`)

	// clauseToken finds the first line-leading clause label in an article body.
	clauseToken = regexp.MustCompile(`(?m)^[ \t]*([①-⑳]|\d+\.|\(\d+\))`)

	circledSplit       = regexp.MustCompile(`[\n\s]*[①-⑳]`)
	numericSplit       = regexp.MustCompile(`\n\s*\d+\.`)
	parentheticalSplit = regexp.MustCompile(`\n\s*\(\d+\)`)

	circledLabel       = regexp.MustCompile(`^\s*[①-⑳]\s*`)
	numericLabel       = regexp.MustCompile(`^\s*\d+\.\s*`)
	parentheticalLabel = regexp.MustCompile(`^\s*\(\d+\)\s*`)
)

// ClauseStyle is the numbering family used by the clauses of one article.
// Articles never mix families, so the style is chosen once from the first label.
type ClauseStyle int

const (
	StyleNone ClauseStyle = iota
	StyleCircled
	StyleNumeric
	StyleParenthetical
)

func (s ClauseStyle) String() string {
	switch s {
	case StyleCircled:
		return "circled"
	case StyleNumeric:
		return "numeric"
	case StyleParenthetical:
		return "parenthetical"
	default:
		return "none"
	}
}

// splitter returns the regexp that separates clauses of this style.
func (s ClauseStyle) splitter() *regexp.Regexp {
	switch s {
	case StyleCircled:
		return circledSplit
	case StyleNumeric:
		return numericSplit
	case StyleParenthetical:
		return parentheticalSplit
	default:
		return nil
	}
}

// label returns the regexp matching a line-leading label of this style.
func (s ClauseStyle) label() *regexp.Regexp {
	switch s {
	case StyleCircled:
		return circledLabel
	case StyleNumeric:
		return numericLabel
	case StyleParenthetical:
		return parentheticalLabel
	default:
		return nil
	}
}

// StripLabel removes a leading clause label of the given style from line.
// Other text, including labels of other families, is left alone.
func StripLabel(line string, style ClauseStyle) string {
	re := style.label()
	if re == nil {
		return line
	}
	return re.ReplaceAllString(line, "")
}

// DetectStyle picks the clause family from the first line-leading label of body.
// Only a family's first label ("①", "1.", "(1)") opens a clause list; anything
// else leaves the body as a single implicit clause.
func DetectStyle(body string) ClauseStyle {
	m := clauseToken.FindStringSubmatch(body)
	if m == nil {
		return StyleNone
	}
	switch m[1] {
	case "①":
		return StyleCircled
	case "1.":
		return StyleNumeric
	case "(1)":
		return StyleParenthetical
	default:
		return StyleNone
	}
}

// Segment is one labelled piece produced by Split.
type Segment struct {
	Label string
	Body  string
}

// Split cuts text at every label of the given style. head is the text before
// the first label. Labels are normalized to plain digits ("③" -> "3",
// "2." -> "2", "(4)" -> "4"). StyleNone returns text as head with no segments.
func Split(text string, style ClauseStyle) (head string, segments []Segment) {
	re := style.splitter()
	if re == nil {
		return text, nil
	}

	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}

	head = text[:locs[0][0]]
	segments = make([]Segment, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segments = append(segments, Segment{
			Label: NormalizeLabel(text[loc[0]:loc[1]]),
			Body:  text[loc[1]:end],
		})
	}
	return head, segments
}

// NormalizeLabel converts a raw clause token into its digit form.
func NormalizeLabel(token string) string {
	token = strings.TrimSpace(token)
	token = strings.TrimSuffix(token, ".")
	token = strings.TrimPrefix(token, "(")
	token = strings.TrimSuffix(token, ")")

	if r, size := utf8.DecodeRuneInString(token); size == len(token) && r >= '①' && r <= '⑳' {
		return strconv.Itoa(int(r-'①') + 1)
	}
	return token
}

// ParseArticleHeading extracts the article number and title from a heading
// such as "제 3 조 (계약 기간)". Spaces are removed before parsing, so the
// title above becomes "계약기간".
func ParseArticleHeading(heading string) (int, string, bool) {
	clean := strings.ReplaceAll(heading, " ", "")
	if !strings.HasPrefix(clean, "제") {
		return 0, "", false
	}
	numPart, titlePart, ok := strings.Cut(strings.TrimPrefix(clean, "제"), "조")
	if !ok {
		return 0, "", false
	}
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, "", false
	}
	return n, strings.Trim(titlePart, "【】()[]"), true
}

// IsPageMarker reports whether line is an extraction page header/footer.
func IsPageMarker(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), PageMarkerPrefix)
}

// StripPageMarkers drops page marker lines and trims the result.
func StripPageMarkers(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !IsPageMarker(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// StartsWithArticle reports whether the first non page-marker line opens an article.
func StartsWithArticle(pageText string) bool {
	for _, line := range strings.Split(strings.TrimSpace(pageText), "\n") {
		if IsPageMarker(line) {
			continue
		}
		return ArticleHeader.MatchString(line)
	}
	return false
}

// ArticlePrefix returns the "제N조" part of a clause number.
func ArticlePrefix(clauseNumber string) string {
	prefix, _, _ := strings.Cut(clauseNumber, " ")
	return prefix
}

// SplitTitle separates "title+\nbody" into its parts. Text without the
// separator is returned as body with an empty title.
func SplitTitle(text string) (title, body string) {
	title, body, ok := strings.Cut(text, ArticleClauseSeparator)
	if !ok {
		return "", text
	}
	return title, body
}

// CleanClause flattens clause text for prompts and output: newlines become
// spaces and both separators are removed.
func CleanClause(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, ArticleClauseSeparator, "")
	text = strings.ReplaceAll(text, ClauseTextSeparator, "")
	return text
}
