package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lexreview/internal/pgstore"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the Postgres container",
	Long: `Manage the pgvector-enabled Postgres container.

Postgres holds the review cache, prompt overrides and, with the pgvector
backend, the reference corpus. Data is persisted to ~/.lexreview/postgres/.

Examples:
  lexreview db start   # Start the container
  lexreview db stop    # Stop the container (data preserved)
  lexreview db status  # Check container status
  lexreview db logs    # View container logs`,
}

// getDockerManager returns a docker manager for the configured container.
func getDockerManager() (*pgstore.DockerManager, error) {
	h, err := getHome()
	if err != nil {
		return nil, err
	}
	mgr, err := loadConfig(h)
	if err != nil {
		return nil, err
	}
	pg := mgr.Get().Postgres
	return pgstore.NewDockerManager(pgstore.DockerConfig{
		ContainerName: pg.ContainerName,
		Image:         pg.Image,
		DataPath:      h.PostgresPath(),
		HostPort:      pg.Port,
		Password:      pg.Password,
	})
}

// withDocker runs fn with a docker manager that is closed afterwards.
func withDocker(fn func(*pgstore.DockerManager) error) error {
	dm, err := getDockerManager()
	if err != nil {
		return err
	}
	defer dm.Close()
	return fn(dm)
}

var dbStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Postgres container",
	Long: `Start the Postgres container.

If the container doesn't exist, it will be created and started.
If it's already running, this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		return withDocker(func(dm *pgstore.DockerManager) error {
			fmt.Println("Starting Postgres...")
			if err := dm.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start Postgres: %w", err)
			}
			fmt.Printf("Postgres is running at %s\n", dm.DSN())
			return nil
		})
	},
}

var dbStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the Postgres container",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocker(func(dm *pgstore.DockerManager) error {
			fmt.Println("Stopping Postgres...")
			if err := dm.Stop(cmd.Context()); err != nil {
				return fmt.Errorf("failed to stop Postgres: %w", err)
			}
			fmt.Println("Postgres stopped")
			return nil
		})
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Postgres container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withDocker(func(dm *pgstore.DockerManager) error {
			status, err := dm.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			switch status {
			case pgstore.StatusRunning:
				fmt.Printf("Status: %s\n", status)
				fmt.Printf("DSN: %s\n", dm.DSN())
				if err := ping(ctx, dm.DSN()); err != nil {
					fmt.Printf("Health: unhealthy (%v)\n", err)
				} else {
					fmt.Println("Health: healthy")
				}
			case pgstore.StatusStopped:
				fmt.Printf("Status: %s (use 'lexreview db start' to start)\n", status)
			case pgstore.StatusNotFound:
				fmt.Printf("Status: %s (use 'lexreview db start' to create)\n", status)
			default:
				fmt.Printf("Status: %s\n", status)
			}
			return nil
		})
	},
}

func ping(ctx context.Context, dsn string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := pgstore.Open(ctx, pgstore.Config{DSN: dsn, Logger: logger})
	if err != nil {
		return err
	}
	return db.Close()
}

var logsTail string

var dbLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show Postgres container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocker(func(dm *pgstore.DockerManager) error {
			logs, err := dm.Logs(cmd.Context(), logsTail)
			if err != nil {
				return fmt.Errorf("failed to get logs: %w", err)
			}
			fmt.Print(logs)
			return nil
		})
	},
}

var dbRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the Postgres container",
	Long: `Remove the Postgres container.

This stops and removes the container. Data in ~/.lexreview/postgres/
is NOT deleted - only the container is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocker(func(dm *pgstore.DockerManager) error {
			fmt.Println("Removing Postgres container...")
			if err := dm.Remove(cmd.Context()); err != nil {
				return fmt.Errorf("failed to remove container: %w", err)
			}
			fmt.Println("Postgres container removed (data preserved)")
			return nil
		})
	},
}

var waitTimeout time.Duration

var dbWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until Postgres accepts connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDocker(func(dm *pgstore.DockerManager) error {
			if err := dm.WaitReady(cmd.Context(), waitTimeout); err != nil {
				return err
			}
			fmt.Println("Postgres is ready")
			return nil
		})
	},
}

func init() {
	dbLogsCmd.Flags().StringVar(&logsTail, "tail", "100", "Number of lines to show from the end")
	dbWaitCmd.Flags().DurationVar(&waitTimeout, "timeout", 60*time.Second, "How long to wait")

	dbCmd.AddCommand(dbStartCmd)
	dbCmd.AddCommand(dbStopCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbLogsCmd)
	dbCmd.AddCommand(dbRemoveCmd)
	dbCmd.AddCommand(dbWaitCmd)
	rootCmd.AddCommand(dbCmd)
}
