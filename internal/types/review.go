// Package types holds the document and review data model shared by the
// chunker, aggregator, orchestrator and locator.
package types

import "github.com/jackzampolin/lexreview/internal/patterns"

// PageDocument is the extracted text of one page. Pages are 1-based.
type PageDocument struct {
	PageContent string `json:"page_content"`
	Page        int    `json:"page"`
}

// StructuralUnit is one clause-level slice of a page.
type StructuralUnit struct {
	ClauseContent string `json:"clause_content"`
	Page          int    `json:"page"`
	// OrderIndex is 1-based and restarts on every page.
	OrderIndex int `json:"order_index"`
	// ClauseNumber is the "제N조 M항" aggregation key.
	ClauseNumber string `json:"clause_number"`
	// Style is the numbering family of the article the unit came from.
	Style patterns.ClauseStyle `json:"-"`
}

// BoundingBox is a page-relative rectangle in percent (0-100).
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Fragment records where one contributing unit of a ReviewUnit lives.
// Position stays nil until the locator resolves it.
type Fragment struct {
	OrderIndex int           `json:"order_index"`
	Page       int           `json:"page"`
	Position   []BoundingBox `json:"position"`
}

// ReviewUnit is the aggregated, scorable text for one clause number.
type ReviewUnit struct {
	ClauseNumber  string               `json:"clause_number"`
	IncorrectText string               `json:"incorrect_text"`
	Accuracy      *float64             `json:"accuracy"`
	CorrectedText string               `json:"corrected_text,omitempty"`
	ProofText     string               `json:"proof_text,omitempty"`
	Fragments     []Fragment           `json:"fragments"`
	Style         patterns.ClauseStyle `json:"-"`
}

// SimilarityMatch is a reference corpus hit with its payload.
type SimilarityMatch struct {
	ID            string  `json:"id"`
	ProofText     string  `json:"proof_text"`
	IncorrectText string  `json:"incorrect_text"`
	CorrectedText string  `json:"corrected_text"`
	Similarity    float32 `json:"similarity"`
}

// AnalysisResult is the outbound payload for one reviewed document.
type AnalysisResult struct {
	TotalPage   int           `json:"total_page"`
	Chunks      []*ReviewUnit `json:"chunks"`
	TotalChunks int           `json:"total_chunks"`
}
