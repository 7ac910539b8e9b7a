package prompts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrNotFound is returned for keys with no embedded prompt.
var ErrNotFound = errors.New("prompt not found")

// Resolver resolves prompts by key.
// Resolution order: Override > Embedded default
type Resolver struct {
	store    OverrideStore
	embedded map[string]EmbeddedPrompt
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewResolver creates a new prompt resolver. store may be nil.
func NewResolver(store OverrideStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:    store,
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Register registers an embedded prompt.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// Resolve returns the override for key if one exists, otherwise the
// embedded default.
func (r *Resolver) Resolve(ctx context.Context, key string) (*ResolvedPrompt, error) {
	if r.store != nil {
		override, err := r.store.GetOverride(ctx, key)
		if err != nil {
			r.logger.Warn("failed to check prompt override", "key", key, "error", err)
		} else if override != nil {
			return &ResolvedPrompt{
				Key:        key,
				Text:       override.Text,
				Variables:  ExtractVariables(override.Text),
				IsOverride: true,
				Hash:       HashText(override.Text),
			}, nil
		}
	}

	r.mu.RLock()
	embedded, ok := r.embedded[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Hash:      embedded.Hash,
	}, nil
}

// Text resolves key and returns only its text, falling back to def when the
// key is unknown.
func (r *Resolver) Text(ctx context.Context, key, def string) string {
	if r == nil {
		return def
	}
	p, err := r.Resolve(ctx, key)
	if err != nil {
		return def
	}
	return p.Text
}

// SetOverride validates that the override keeps the embedded variables and
// stores it.
func (r *Resolver) SetOverride(ctx context.Context, o Override) error {
	if r.store == nil {
		return fmt.Errorf("override store not configured")
	}
	r.mu.RLock()
	embedded, ok := r.embedded[o.Key]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, o.Key)
	}
	have := make(map[string]bool)
	for _, v := range ExtractVariables(o.Text) {
		have[v] = true
	}
	for _, v := range embedded.Variables {
		if !have[v] {
			return fmt.Errorf("override for %s is missing variable .%s", o.Key, v)
		}
	}
	return r.store.SetOverride(ctx, o)
}

// ClearOverride drops the override for key so the embedded text applies again.
func (r *Resolver) ClearOverride(ctx context.Context, key string) error {
	if r.store == nil {
		return fmt.Errorf("override store not configured")
	}
	return r.store.DeleteOverride(ctx, key)
}

// HasStore reports whether overrides can be persisted.
func (r *Resolver) HasStore() bool {
	return r != nil && r.store != nil
}

// AllEmbedded returns all registered embedded prompts sorted by key.
func (r *Resolver) AllEmbedded() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}
