package endpoints

import (
	"net/http"
	"testing"

	"github.com/jackzampolin/lexreview/internal/api"
)

func TestAllRoutesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, ep := range All() {
		method, path, handler := ep.Route()
		if handler == nil {
			t.Errorf("%s %s has no handler", method, path)
		}
		key := method + " " + path
		if seen[key] {
			t.Errorf("duplicate route %s", key)
		}
		seen[key] = true
	}

	// Registering on one mux panics on conflicting patterns.
	reg := api.NewRegistry()
	for _, ep := range All() {
		reg.Register(ep)
	}
	reg.RegisterRoutes(http.NewServeMux(), func(h http.HandlerFunc) http.HandlerFunc { return h })
}

func TestBuildCommands(t *testing.T) {
	reg := api.NewRegistry()
	for _, ep := range All() {
		reg.Register(ep)
	}
	root := reg.BuildCommands(func() string { return "http://127.0.0.1:8080" })

	want := map[string][]string{
		"health":    nil,
		"analyze":   nil,
		"standards": {"ingest", "delete"},
		"prompts":   {"list", "get", "set", "clear"},
		"reviews":   {"get"},
	}
	for name, subs := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("command %q not found", name)
			continue
		}
		for _, sub := range subs {
			if c, _, err := cmd.Find([]string{sub}); err != nil || c == cmd {
				t.Errorf("command %q %q not found", name, sub)
			}
		}
	}
}

func TestInitRequirements(t *testing.T) {
	needsPipeline := map[string]bool{
		"POST /agreements/analysis": true,
		"POST /standards":           true,
		"DELETE /standards/{id}":    true,
	}
	for _, ep := range All() {
		method, path, _ := ep.Route()
		key := method + " " + path
		if ep.RequiresInit() != needsPipeline[key] {
			t.Errorf("%s RequiresInit() = %v", key, ep.RequiresInit())
		}
	}
}
