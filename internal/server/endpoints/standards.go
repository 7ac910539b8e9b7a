package endpoints

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lexreview/internal/api"
	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/standards"
	"github.com/jackzampolin/lexreview/internal/svcctx"
)

type standardsGroup struct{}

func (standardsGroup) Group() (string, string) {
	return "standards", "Reference standard commands"
}

// IngestStandardEndpoint handles POST /standards.
type IngestStandardEndpoint struct{ standardsGroup }

func (e *IngestStandardEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/standards", e.handler
}

func (e *IngestStandardEndpoint) RequiresInit() bool { return true }

func (e *IngestStandardEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := svcctx.LoggerFrom(ctx)

	var req standards.IngestRequest
	if err := api.DecodeBody(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	svc := svcctx.StandardsFrom(ctx)
	if svc == nil {
		api.WriteError(w, errcode.Newf(errcode.UploadFailed, "standards service not available"))
		return
	}

	res, err := svc.Ingest(ctx, req)
	if err != nil {
		logger.Warn("standard ingestion failed", "standard_id", req.StandardID, "code", errcode.From(err).Code, "error", err)
		api.WriteError(w, err)
		return
	}
	logger.Info("standard ingested", "standard_id", res.StandardID, "points", res.Points, "replaced", res.Replaced)
	api.WriteSuccess(w, http.StatusOK, api.CodeUploadSuccess, "standard stored", res)
}

func (e *IngestStandardEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		id       int64
		category string
	)
	cmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "Add a reference standard document",
		Long: `Fetch a reference document, split it into clauses and store their
embeddings. Points already stored under the same id are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp standards.IngestResult
			if _, err := client.Post(cmd.Context(), "/standards", standards.IngestRequest{
				URL:        args[0],
				StandardID: id,
				Category:   category,
			}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Standard id")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Standard category")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// DeleteStandardEndpoint handles DELETE /standards/{id}.
type DeleteStandardEndpoint struct{ standardsGroup }

func (e *DeleteStandardEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/standards/{id}", e.handler
}

func (e *DeleteStandardEndpoint) RequiresInit() bool { return true }

func (e *DeleteStandardEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := svcctx.LoggerFrom(ctx)

	id, err := standards.ParseStandardID(r.PathValue("id"))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	category := r.URL.Query().Get("category")

	svc := svcctx.StandardsFrom(ctx)
	if svc == nil {
		api.WriteError(w, errcode.Newf(errcode.DeleteFailed, "standards service not available"))
		return
	}

	res, err := svc.Delete(ctx, id)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if !res.Found {
		api.WriteSuccess(w, http.StatusOK, api.CodeNoDocumentFound, "no points stored for this standard", res)
		return
	}
	logger.Info("standard deleted", "standard_id", id, "category", category, "points", res.Deleted)
	api.WriteSuccess(w, http.StatusOK, api.CodeDeleteSuccess, "standard deleted", res)
}

func (e *DeleteStandardEndpoint) Command(getServerURL func() string) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a reference standard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return err
			}
			path := "/standards/" + url.PathEscape(args[0])
			if category != "" {
				path += "?category=" + url.QueryEscape(category)
			}
			client := api.NewClient(getServerURL())
			var resp standards.DeleteResult
			env, err := client.Delete(cmd.Context(), path, &resp)
			if err != nil {
				return err
			}
			if !api.IsStructuredOutput() {
				cmd.Println(env.Message)
				return nil
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Standard category")
	return cmd
}
