package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/lexreview/internal/server"
	"github.com/jackzampolin/lexreview/internal/svcctx"
)

var (
	serveHost    string
	servePort    string
	stopPostgres bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lexreview server",
	Long: `Start the lexreview HTTP server.

When postgres is enabled without a dsn, the pgvector container is started
first. The config file is watched; review settings and providers reload
without a restart.

The server provides:
  - POST   /agreements/analysis  review an agreement by URL
  - POST   /standards            add a reference standard
  - DELETE /standards/{id}       remove a reference standard
  - GET    /reviews/{sha256}     read cached reviews (postgres)
  - /prompts                     inspect and override prompts
  - /health, /ready, /status

Examples:
  lexreview serve                    # Start on the configured port
  lexreview serve --port 3000        # Start on a custom port
  lexreview serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := getHome()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}

		services, err := svcctx.Build(ctx, mgr.Get(), h, logger, svcctx.BuildOptions{ManagePostgres: true})
		if err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Services:      services,
			ConfigManager: mgr,
			StopPostgres:  stopPostgres,
			Logger:        logger,
		})
		if err != nil {
			services.Close()
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port)")
	serveCmd.Flags().BoolVar(&stopPostgres, "stop-postgres", false, "Stop the managed postgres container on shutdown")

	rootCmd.AddCommand(serveCmd)
}
