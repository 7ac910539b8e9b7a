package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lexreview/internal/api"
	"github.com/jackzampolin/lexreview/internal/config"
	"github.com/jackzampolin/lexreview/internal/home"
	"github.com/jackzampolin/lexreview/internal/svcctx"
	"github.com/jackzampolin/lexreview/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "lexreview",
	Short: "Clause-level review of Korean legal agreements",
	Long: `lexreview reviews legal agreements clause by clause against a corpus of
reference standards.

An agreement (PDF, or an image read through OCR) is split into articles and
clauses. Each clause is embedded, matched against the reference corpus and
sent to an LLM for correction. Clauses whose violation score exceeds the
configured threshold are returned with a corrected text, the legal basis and
their position on the page.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.lexreview/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "lexreview home directory (default: ~/.lexreview)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "text", "output format: text, yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := api.SetOutputFormat(outputFormat); err != nil {
			return err
		}
		level, err := parseLevel(logLevel)
		if err != nil {
			return err
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q", s)
	}
	return level, nil
}

// getHome returns the home directory manager.
func getHome() (*home.Dir, error) {
	return home.New(homeDir)
}

// loadConfig loads the config file, falling back to ~/.lexreview/config.yaml.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	return config.NewManager(path)
}

// buildServices assembles the in-process pipeline used by the local
// commands. The caller closes the returned services.
func buildServices(ctx context.Context) (*svcctx.Services, error) {
	h, err := getHome()
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	mgr, err := loadConfig(h)
	if err != nil {
		return nil, err
	}
	s, err := svcctx.Build(ctx, mgr.Get(), h, logger, svcctx.BuildOptions{ManagePostgres: true})
	if err != nil {
		return nil, err
	}
	if s.InitErr != nil {
		s.Close()
		return nil, s.InitErr
	}
	return s, nil
}
