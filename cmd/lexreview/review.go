package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/lexreview/internal/api"
	"github.com/jackzampolin/lexreview/internal/errcode"
	"github.com/jackzampolin/lexreview/internal/review"
	"github.com/jackzampolin/lexreview/internal/types"
)

var (
	reviewCategory string
	reviewNoColor  bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <file>",
	Short: "Review a local agreement without a server",
	Long: `Run the review pipeline in-process on a local PDF, png or jpg file and
print the flagged clauses.

With --output json or yaml the full result is printed instead of the summary.

Examples:
  lexreview review contract.pdf --category 근로계약
  lexreview review scan.png -c 임대차 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		services, err := buildServices(ctx)
		if err != nil {
			return err
		}
		defer services.Close()

		report, err := services.Pipeline.AnalyzeBytes(ctx, filepath.Base(args[0]), data, reviewCategory)
		if err != nil {
			code := errcode.From(err)
			return fmt.Errorf("%s %s: %w", code.Code, code.Message, err)
		}

		if api.IsStructuredOutput() {
			return api.Output(report.Result)
		}
		if reviewNoColor {
			color.NoColor = true
		}
		printSummary(os.Stdout, args[0], report)
		return nil
	},
}

func printSummary(w io.Writer, name string, r *review.Report) {
	bold := color.New(color.FgWhite, color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintf(w, "%s\n", name)
	fmt.Fprintf(w, "  pages %d, clauses %d, elapsed %s", r.Result.TotalPage, r.Clauses, r.Elapsed.Round(time.Millisecond))
	if r.Cached {
		cyan.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)

	if r.Result.TotalChunks == 0 {
		green.Fprintln(w, "  no clauses flagged")
	}
	for _, u := range r.Result.Chunks {
		fmt.Fprintln(w)
		score := 0.0
		if u.Accuracy != nil {
			score = *u.Accuracy
		}
		red.Fprintf(w, "  %s", u.ClauseNumber)
		fmt.Fprintf(w, "  score %.2f", score)
		if pages := fragmentPages(u.Fragments); pages != "" {
			fmt.Fprintf(w, "  p.%s", pages)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "    원문: %s\n", oneLine(u.IncorrectText))
		green.Fprintf(w, "    수정: %s\n", oneLine(u.CorrectedText))
		cyan.Fprintf(w, "    근거: %s\n", oneLine(u.ProofText))
	}

	if r.Rejected > 0 || r.Dropped > 0 || len(r.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  below threshold %d, dropped %d", r.Rejected, r.Dropped)
		if len(r.Failures) > 0 {
			yellow.Fprintf(w, ", failed %d", len(r.Failures))
		}
		fmt.Fprintln(w)
	}
	for _, f := range r.Failures {
		yellow.Fprintf(w, "    %s: %s\n", f.ClauseNumber, errcode.From(f.Err).Code)
	}
}

func fragmentPages(frags []types.Fragment) string {
	var pages []string
	seen := make(map[int]bool)
	for _, f := range frags {
		if f.Position == nil || seen[f.Page] {
			continue
		}
		seen[f.Page] = true
		pages = append(pages, fmt.Sprint(f.Page))
	}
	return strings.Join(pages, ",")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewCategory, "category", "c", "", "Agreement category (e.g. 근로계약)")
	_ = reviewCmd.MarkFlagRequired("category")
	reviewCmd.Flags().BoolVar(&reviewNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(reviewCmd)
}
