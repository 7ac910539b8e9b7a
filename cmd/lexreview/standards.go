package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lexreview/internal/api"
	"github.com/jackzampolin/lexreview/internal/standards"
)

var standardsCmd = &cobra.Command{
	Use:   "standards",
	Short: "Manage reference standards without a server",
	Long: `Add or remove reference standards in the configured vector store,
running in-process. Use 'lexreview api standards' to go through a server.`,
}

var (
	stdID       int64
	stdCategory string
)

var standardsIngestCmd = &cobra.Command{
	Use:   "ingest <url>",
	Short: "Add a reference standard document",
	Long: `Fetch a reference document, split it into clauses and store their
embeddings. Local paths are accepted and turned into file:// URLs.

Examples:
  lexreview standards ingest ./labor-standard.pdf --id 7 -c 근로계약`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		services, err := buildServices(ctx)
		if err != nil {
			return err
		}
		defer services.Close()

		uri, err := toURI(args[0])
		if err != nil {
			return err
		}
		res, err := services.Standards.Ingest(ctx, standards.IngestRequest{
			URL:        uri,
			StandardID: stdID,
			Category:   stdCategory,
		})
		if err != nil {
			return err
		}
		return api.Output(res)
	},
}

var standardsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a reference standard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := standards.ParseStandardID(args[0])
		if err != nil {
			return err
		}

		services, err := buildServices(ctx)
		if err != nil {
			return err
		}
		defer services.Close()

		res, err := services.Standards.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !res.Found {
			fmt.Printf("No points stored for standard %d\n", id)
			return nil
		}
		return api.Output(res)
	},
}

func init() {
	standardsIngestCmd.Flags().Int64Var(&stdID, "id", 0, "Standard id")
	standardsIngestCmd.Flags().StringVarP(&stdCategory, "category", "c", "", "Standard category")
	_ = standardsIngestCmd.MarkFlagRequired("id")

	standardsCmd.AddCommand(standardsIngestCmd)
	standardsCmd.AddCommand(standardsDeleteCmd)
	rootCmd.AddCommand(standardsCmd)
}
