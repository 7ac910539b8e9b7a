package endpoints

import (
	"net/http"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lexreview/internal/api"
	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/pgstore"
	"github.com/jackzampolin/lexreview/internal/svcctx"
)

var docHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// GetReviewEndpoint handles GET /reviews/{hash}.
type GetReviewEndpoint struct{}

func (e *GetReviewEndpoint) Group() (string, string) {
	return "reviews", "Cached review commands"
}

func (e *GetReviewEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/reviews/{hash}", e.handler
}

// The cache does not depend on providers, so lookups work before the
// pipeline is ready.
func (e *GetReviewEndpoint) RequiresInit() bool { return false }

func (e *GetReviewEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	if !docHashPattern.MatchString(hash) {
		api.WriteCodeError(w, errcode.InvalidURLParameter, "hash must be a sha256 hex digest")
		return
	}

	cache := svcctx.CacheFrom(r.Context())
	if cache == nil {
		api.WriteJSON(w, http.StatusServiceUnavailable, api.Envelope{
			Code:    "CACHE_DISABLED",
			Message: "review cache requires postgres",
		})
		return
	}

	entries, err := cache.Lookup(r.Context(), hash)
	if err != nil {
		api.WriteError(w, errcode.New(errcode.StorageClientError, err))
		return
	}
	if len(entries) == 0 {
		api.WriteSuccess(w, http.StatusOK, api.CodeNoDocumentFound, "no cached review for this document", []pgstore.CachedReview{})
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.CodeReviewSuccess, "cached reviews", entries)
}

func (e *GetReviewEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <sha256>",
		Short: "Show cached reviews of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp []pgstore.CachedReview
			if _, err := client.Get(cmd.Context(), "/reviews/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
