package endpoints

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lexreview/internal/api"
	"github.com/jackzampolin/lexreview/internal/prompts"
	"github.com/jackzampolin/lexreview/internal/svcctx"
)

// PromptResponse represents a single prompt.
type PromptResponse struct {
	Key         string   `json:"key"`
	Text        string   `json:"text"`
	Description string   `json:"description,omitempty"`
	Variables   []string `json:"variables,omitempty"`
	Hash        string   `json:"hash,omitempty"`
	IsOverride  bool     `json:"is_override"`
}

// PromptsListResponse contains all prompts.
type PromptsListResponse struct {
	Prompts []PromptResponse `json:"prompts"`
}

// SetPromptRequest is the request body for setting a prompt override.
type SetPromptRequest struct {
	Text string `json:"text"`
	Note string `json:"note,omitempty"`
}

type promptsGroup struct{}

func (promptsGroup) Group() (string, string) {
	return "prompts", "Prompt inspection and override commands"
}

// writePromptError maps resolver errors onto status codes. Prompt management
// is an operator surface, so it answers with plain codes rather than errcode.
func writePromptError(w http.ResponseWriter, status int, err error) {
	if errors.Is(err, prompts.ErrNotFound) {
		status = http.StatusNotFound
	}
	api.WriteJSON(w, status, api.Envelope{
		Code:    http.StatusText(status),
		Message: "prompt request failed",
		Detail:  err.Error(),
	})
}

// ListPromptsEndpoint handles GET /prompts.
type ListPromptsEndpoint struct{ promptsGroup }

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return false }

func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.PromptsFrom(r.Context())
	if resolver == nil {
		writePromptError(w, http.StatusServiceUnavailable, errors.New("prompt resolver not available"))
		return
	}

	embedded := resolver.AllEmbedded()
	resp := PromptsListResponse{Prompts: make([]PromptResponse, 0, len(embedded))}
	for _, p := range embedded {
		item := PromptResponse{
			Key:         p.Key,
			Text:        p.Text,
			Description: p.Description,
			Variables:   p.Variables,
			Hash:        p.Hash,
		}
		if resolved, err := resolver.Resolve(r.Context(), p.Key); err == nil && resolved.IsOverride {
			item.Text = resolved.Text
			item.Hash = resolved.Hash
			item.IsOverride = true
		}
		resp.Prompts = append(resp.Prompts, item)
	}

	api.WriteSuccess(w, http.StatusOK, api.CodeOK, "prompts", resp)
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PromptsListResponse
			if _, err := client.Get(cmd.Context(), "/prompts", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetPromptEndpoint handles GET /prompts/{key...}.
type GetPromptEndpoint struct{ promptsGroup }

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/prompts/{key...}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return false }

func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(r.PathValue("key"))
	if err != nil || key == "" {
		writePromptError(w, http.StatusBadRequest, errors.New("invalid prompt key"))
		return
	}

	resolver := svcctx.PromptsFrom(r.Context())
	if resolver == nil {
		writePromptError(w, http.StatusServiceUnavailable, errors.New("prompt resolver not available"))
		return
	}

	resolved, err := resolver.Resolve(r.Context(), key)
	if err != nil {
		writePromptError(w, http.StatusInternalServerError, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.CodeOK, "prompt", resolvedResponse(resolved))
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a prompt by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PromptResponse
			if _, err := client.Get(cmd.Context(), "/prompts/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SetPromptEndpoint handles PUT /prompts/{key...}.
type SetPromptEndpoint struct{ promptsGroup }

func (e *SetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/prompts/{key...}", e.handler
}

func (e *SetPromptEndpoint) RequiresInit() bool { return false }

func (e *SetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(r.PathValue("key"))
	if err != nil || key == "" {
		writePromptError(w, http.StatusBadRequest, errors.New("invalid prompt key"))
		return
	}

	var req SetPromptRequest
	if err := api.DecodeBody(r, &req); err != nil {
		writePromptError(w, http.StatusBadRequest, err)
		return
	}
	if req.Text == "" {
		writePromptError(w, http.StatusBadRequest, errors.New("text is required"))
		return
	}

	resolver := svcctx.PromptsFrom(r.Context())
	if !resolver.HasStore() {
		writePromptError(w, http.StatusServiceUnavailable, errors.New("prompt overrides require postgres"))
		return
	}

	if err := resolver.SetOverride(r.Context(), prompts.Override{Key: key, Text: req.Text, Note: req.Note}); err != nil {
		writePromptError(w, http.StatusBadRequest, err)
		return
	}
	svcctx.LoggerFrom(r.Context()).Info("prompt override set", "key", key)

	resolved, err := resolver.Resolve(r.Context(), key)
	if err != nil {
		writePromptError(w, http.StatusInternalServerError, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.CodeOK, "override stored", resolvedResponse(resolved))
}

func (e *SetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "set <key> <text>",
		Short: "Override a prompt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PromptResponse
			req := SetPromptRequest{Text: args[1], Note: note}
			if _, err := client.Put(cmd.Context(), "/prompts/"+url.PathEscape(args[0]), req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Note about this override")
	return cmd
}

// ClearPromptEndpoint handles DELETE /prompts/{key...}.
type ClearPromptEndpoint struct{ promptsGroup }

func (e *ClearPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/prompts/{key...}", e.handler
}

func (e *ClearPromptEndpoint) RequiresInit() bool { return false }

func (e *ClearPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(r.PathValue("key"))
	if err != nil || key == "" {
		writePromptError(w, http.StatusBadRequest, errors.New("invalid prompt key"))
		return
	}

	resolver := svcctx.PromptsFrom(r.Context())
	if !resolver.HasStore() {
		writePromptError(w, http.StatusServiceUnavailable, errors.New("prompt overrides require postgres"))
		return
	}
	if err := resolver.ClearOverride(r.Context(), key); err != nil {
		writePromptError(w, http.StatusInternalServerError, err)
		return
	}

	resolved, err := resolver.Resolve(r.Context(), key)
	if err != nil {
		writePromptError(w, http.StatusInternalServerError, err)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.CodeOK, "override cleared", resolvedResponse(resolved))
}

func (e *ClearPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <key>",
		Short: "Remove a prompt override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if _, err := client.Delete(cmd.Context(), "/prompts/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			cmd.Println("Override cleared")
			return nil
		},
	}
}

func resolvedResponse(p *prompts.ResolvedPrompt) PromptResponse {
	return PromptResponse{
		Key:        p.Key,
		Text:       p.Text,
		Variables:  p.Variables,
		Hash:       p.Hash,
		IsOverride: p.IsOverride,
	}
}
