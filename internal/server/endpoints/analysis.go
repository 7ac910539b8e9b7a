package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lexreview/internal/api"
	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/review"
	"github.com/jackzampolin/lexreview/internal/svcctx"
	"github.com/jackzampolin/lexreview/internal/types"
)

// AnalyzeEndpoint handles POST /agreements/analysis.
type AnalyzeEndpoint struct{}

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/agreements/analysis", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := svcctx.LoggerFrom(ctx)

	var req review.Request
	if err := api.DecodeBody(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	pipeline := svcctx.PipelineFrom(ctx)
	if pipeline == nil {
		api.WriteError(w, errcode.Newf(errcode.ReviewFailed, "review pipeline not available"))
		return
	}

	logger.Info("analysis requested", "url", req.URL, "category", req.Category)
	report, err := pipeline.Analyze(ctx, req)
	if err != nil {
		logger.Warn("analysis failed", "code", errcode.From(err).Code, "error", err)
		api.WriteError(w, err)
		return
	}
	for _, f := range report.Failures {
		logger.Warn("clause failed", "clause_number", f.ClauseNumber, "code", errcode.From(f.Err).Code, "error", f.Err)
	}

	api.WriteSuccess(w, http.StatusOK, api.CodeReviewSuccess, "agreement reviewed", report.Result)
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Review an agreement stored at a URL",
		Long: `Review an agreement against the reference standards.

The URL may be file://, http(s):// or s3:// (when a gateway is configured).
PDF documents are read directly; png and jpg images go through OCR.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp types.AnalysisResult
			if _, err := client.Post(cmd.Context(), "/agreements/analysis", review.Request{
				URL:      args[0],
				Category: category,
			}, &resp); err != nil {
				return err
			}
			if !api.IsStructuredOutput() {
				fmt.Printf("%d clauses flagged across %d pages\n", resp.TotalChunks, resp.TotalPage)
				return nil
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Agreement category (e.g. 근로계약)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}
