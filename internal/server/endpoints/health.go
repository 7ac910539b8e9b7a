package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lexreview/internal/api"
	"github.com/jackzampolin/lexreview/internal/orchestrator"
	"github.com/jackzampolin/lexreview/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status      string `json:"status"`
	Pipeline    string `json:"pipeline,omitempty"`
	VectorStore string `json:"vector_store,omitempty"`
	Postgres    string `json:"postgres,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	api.WriteSuccess(w, http.StatusOK, api.CodeOK, "healthy", HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if _, err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready. It answers 503 until the pipeline is
// assembled and its storage answers.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := svcctx.ServicesFrom(ctx)
	resp := HealthResponse{Status: "ok", Pipeline: "ok", VectorStore: "ok"}

	if s == nil {
		resp.Status, resp.Pipeline = "degraded", "not_initialized"
		api.WriteSuccess(w, http.StatusServiceUnavailable, api.CodeOK, "not ready", resp)
		return
	}
	if s.InitErr != nil {
		resp.Status, resp.Pipeline, resp.Detail = "degraded", "unavailable", s.InitErr.Error()
	}
	if _, err := s.Store.HasCollection(ctx, s.Config.VectorStore.Collection); err != nil {
		resp.Status, resp.VectorStore = "degraded", "unhealthy"
	}
	if s.DB != nil {
		resp.Postgres = "ok"
		if err := s.DB.PingContext(ctx); err != nil {
			resp.Status, resp.Postgres = "degraded", "unhealthy"
		}
	}

	if resp.Status != "ok" {
		api.WriteSuccess(w, http.StatusServiceUnavailable, api.CodeOK, "not ready", resp)
		return
	}
	api.WriteSuccess(w, http.StatusOK, api.CodeOK, "ready", resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (pipeline, vector store, postgres)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			_, err := client.Get(cmd.Context(), "/ready", &resp)
			if resp.Status == "" {
				return err
			}
			fmt.Printf("Status:       %s\n", resp.Status)
			fmt.Printf("Pipeline:     %s\n", resp.Pipeline)
			fmt.Printf("Vector store: %s\n", resp.VectorStore)
			if resp.Postgres != "" {
				fmt.Printf("Postgres:     %s\n", resp.Postgres)
			}
			if resp.Detail != "" {
				fmt.Printf("Detail:       %s\n", resp.Detail)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server      string             `json:"server"`
	Providers   ProvidersStatus    `json:"providers"`
	Review      ReviewStatus       `json:"review"`
	VectorStore VectorStoreStatus  `json:"vector_store"`
	Postgres    PostgresStatus     `json:"postgres"`
	Stats       orchestrator.Stats `json:"stats"`
}

// ProvidersStatus shows registered providers and the ones in use.
type ProvidersStatus struct {
	LLM       []string `json:"llm"`
	Embedders []string `json:"embedders"`
	OCR       []string `json:"ocr"`
	Active    []string `json:"active"`
}

// ReviewStatus shows the live review settings.
type ReviewStatus struct {
	Ready            bool    `json:"ready"`
	Error            string  `json:"error,omitempty"`
	Threshold        float64 `json:"threshold"`
	TopK             int     `json:"top_k"`
	MaxPositionPages int     `json:"max_position_pages"`
}

// VectorStoreStatus shows the similarity-search backend.
type VectorStoreStatus struct {
	Backend    string `json:"backend"`
	Collection string `json:"collection"`
	Exists     bool   `json:"exists"`
}

// PostgresStatus shows the database and managed container.
type PostgresStatus struct {
	Enabled   bool   `json:"enabled"`
	Container string `json:"container,omitempty"`
	Health    string `json:"health,omitempty"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := svcctx.ServicesFrom(ctx)
	if s == nil {
		api.WriteSuccess(w, http.StatusServiceUnavailable, api.CodeOK, "not initialized", StatusResponse{Server: "starting"})
		return
	}
	cfg := s.Config

	resp := StatusResponse{Server: "running"}
	resp.Providers.LLM = s.Registry.ListLLM()
	resp.Providers.Embedders = s.Registry.ListEmbedders()
	resp.Providers.OCR = s.Registry.ListOCR()
	resp.Providers.Active = []string{
		"llm:" + cfg.Defaults.LLMProvider,
		"embedder:" + cfg.Defaults.Embedder,
		"ocr:" + cfg.Defaults.OCRProvider,
	}

	resp.Review = ReviewStatus{
		Ready:            s.Ready(),
		Threshold:        cfg.Review.Threshold,
		TopK:             cfg.Review.TopK,
		MaxPositionPages: cfg.Review.MaxPositionPages,
	}
	if s.InitErr != nil {
		resp.Review.Error = s.InitErr.Error()
	}
	if s.Orchestrator != nil {
		resp.Stats = s.Orchestrator.Stats()
	}

	resp.VectorStore = VectorStoreStatus{Backend: cfg.VectorStore.Backend, Collection: cfg.VectorStore.Collection}
	if resp.VectorStore.Backend == "" {
		resp.VectorStore.Backend = "chromem"
	}
	if ok, err := s.Store.HasCollection(ctx, cfg.VectorStore.Collection); err == nil {
		resp.VectorStore.Exists = ok
	}

	resp.Postgres.Enabled = cfg.Postgres.Enabled
	if s.Docker != nil {
		status, err := s.Docker.Status(ctx)
		if err != nil {
			resp.Postgres.Container = "error"
		} else {
			resp.Postgres.Container = string(status)
		}
	}
	if s.DB != nil {
		resp.Postgres.Health = "healthy"
		if err := s.DB.PingContext(ctx); err != nil {
			resp.Postgres.Health = "unhealthy"
		}
	}

	api.WriteSuccess(w, http.StatusOK, api.CodeOK, "status", resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if _, err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
