// Package prompts provides prompt management with embedded defaults and
// operator overrides.
//
// Embedded .tmpl files in code are the source of truth for defaults. An
// OverrideStore (Postgres, when enabled) may replace a prompt's text without a
// rebuild; the resolver falls back to the embedded default on any store error.
package prompts

import (
	"context"
	"time"
)

// EmbeddedPrompt represents a prompt loaded from an embedded .tmpl file.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: review.correction.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 hash of the text for change detection
}

// Override is an operator-supplied replacement for an embedded prompt.
type Override struct {
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	Note      string    `json:"note,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResolvedPrompt is the result of resolving a prompt key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Hash       string   `json:"hash"`
}

// OverrideStore persists prompt overrides.
type OverrideStore interface {
	// GetOverride returns nil, nil when no override exists.
	GetOverride(ctx context.Context, key string) (*Override, error)
	SetOverride(ctx context.Context, o Override) error
	DeleteOverride(ctx context.Context, key string) error
}
