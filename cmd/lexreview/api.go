package main

import (
	"github.com/jackzampolin/lexreview/internal/api"
	"github.com/jackzampolin/lexreview/internal/server/endpoints"
)

var serverURL string

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	reg := api.NewRegistry()
	for _, ep := range endpoints.All() {
		reg.Register(ep)
	}
	apiCmd := reg.BuildCommands(getServerURL)

	// persistent so all subcommands inherit it
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	rootCmd.AddCommand(apiCmd)
}
