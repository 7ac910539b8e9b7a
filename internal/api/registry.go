package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Registry holds all registered endpoints.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry creates a new endpoint registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an endpoint to the registry.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// RegisterRoutes registers all endpoint HTTP routes with the given mux.
// initMiddleware wraps handlers that require full server initialization.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, initMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		if ep.RequiresInit() {
			handler = initMiddleware(handler)
		}
		mux.HandleFunc(method+" "+path, handler)
	}
}

// Grouped endpoints are nested under a named subcommand of api.
type Grouped interface {
	Group() (name, short string)
}

// BuildCommands returns a cobra.Command tree for all registered endpoints.
// Endpoints implementing Grouped share a parent command.
// getServerURL is called at runtime to get the server URL.
func (r *Registry) BuildCommands(getServerURL func() string) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Commands that call the running server",
		Long: `API commands call the running lexreview server via HTTP.

These commands require a running server (lexreview serve).
Use --server to specify a custom server URL.

Examples:
  lexreview api health                                   # Check server health
  lexreview api analyze s3://bucket/a.pdf -c 근로계약    # Review an agreement
  lexreview api standards ingest file:///std.pdf --id 7 -c 근로계약
  lexreview api standards delete 7 -c 근로계약`,
	}

	groups := make(map[string]*cobra.Command)
	for _, ep := range r.endpoints {
		g, ok := ep.(Grouped)
		if !ok {
			apiCmd.AddCommand(ep.Command(getServerURL))
			continue
		}
		name, short := g.Group()
		parent, exists := groups[name]
		if !exists {
			parent = &cobra.Command{Use: name, Short: short}
			groups[name] = parent
			apiCmd.AddCommand(parent)
		}
		parent.AddCommand(ep.Command(getServerURL))
	}

	return apiCmd
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}
