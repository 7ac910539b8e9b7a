package svcctx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/jackzampolin/lexreview/internal/chunker"
	"github.com/jackzampolin/lexreview/internal/config"
	"github.com/jackzampolin/lexreview/internal/home"
	"github.com/jackzampolin/lexreview/internal/orchestrator"
	"github.com/jackzampolin/lexreview/internal/pgstore"
	"github.com/jackzampolin/lexreview/internal/prompts"
	"github.com/jackzampolin/lexreview/internal/prompts/casegen"
	"github.com/jackzampolin/lexreview/internal/prompts/correction"
	"github.com/jackzampolin/lexreview/internal/providers"
	"github.com/jackzampolin/lexreview/internal/review"
	"github.com/jackzampolin/lexreview/internal/standards"
	"github.com/jackzampolin/lexreview/internal/storage"
	"github.com/jackzampolin/lexreview/internal/vectorstore"
)

// BuildOptions tunes Build.
type BuildOptions struct {
	// ManagePostgres starts the docker container when postgres is enabled
	// without a DSN.
	ManagePostgres bool

	// Registry replaces the registry built from config, mostly for tests.
	Registry *providers.Registry

	// Store replaces the configured vector store, mostly for tests.
	Store vectorstore.Store
}

// Build assembles every service from cfg. Storage failures are returned;
// provider problems only set InitErr so the server can still start.
func Build(ctx context.Context, cfg *config.Config, dir *home.Dir, logger *slog.Logger, opts BuildOptions) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Services{Config: cfg, Logger: logger, Home: dir}

	s.Registry = opts.Registry
	if s.Registry == nil {
		s.Registry = providers.NewRegistry()
		s.Registry.SetLogger(logger)
		s.Registry.Reload(cfg.ToProviderRegistryConfig())
		s.ownsRegistry = true
	}

	if cfg.Postgres.Enabled {
		if err := s.openPostgres(ctx, opts.ManagePostgres); err != nil {
			s.Close()
			return nil, err
		}
	}

	var overrides prompts.OverrideStore
	if s.DB != nil {
		overrides = pgstore.NewOverrides(s.DB)
	}
	s.Prompts = prompts.NewResolver(overrides, logger)
	correction.RegisterPrompts(s.Prompts)
	casegen.RegisterPrompts(s.Prompts)

	s.Store = opts.Store
	if s.Store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Store = store
	}

	s.Storage = storage.New(storage.Config{
		Timeout:      cfg.Storage.HTTPTimeout(),
		AllowedRoots: cfg.Storage.AllowedRoots,
		S3Gateway:    cfg.Storage.S3Gateway,
		MaxBytes:     cfg.Storage.MaxBytes(),
		Logger:       logger,
	})
	s.Chunker = chunker.New(chunker.Config{
		MinBodyLength: cfg.Review.MinClauseBodyLength,
		Logger:        logger,
	})

	s.searchConcurrency = cfg.Review.SearchConcurrency
	if s.searchConcurrency <= 0 {
		s.searchConcurrency = orchestrator.DefaultSearchConcurrency
	}
	s.searchLimiter = semaphore.NewWeighted(int64(s.searchConcurrency))

	if err := s.assemble(cfg); err != nil {
		s.InitErr = err
		logger.Warn("review pipeline unavailable", "error", err)
	}
	return s, nil
}

// Reconfigure returns a copy of s whose pipeline is rebuilt for cfg. The
// database, vector store and registry are shared with s; the registry is
// reloaded in place when Build created it. Storage and backend changes need
// a restart, as does search_concurrency: the search limiter is shared so the
// bound holds while old and new requests overlap.
func (s *Services) Reconfigure(cfg *config.Config) *Services {
	next := *s
	next.Config = cfg
	next.InitErr = nil
	next.Orchestrator, next.Pipeline, next.Standards = nil, nil, nil

	if c := cfg.Review.SearchConcurrency; c > 0 && c != s.searchConcurrency {
		s.Logger.Warn("search_concurrency change needs a restart",
			"running", s.searchConcurrency, "configured", c)
	}
	if s.ownsRegistry {
		s.Registry.Reload(cfg.ToProviderRegistryConfig())
	}
	next.Chunker = chunker.New(chunker.Config{
		MinBodyLength: cfg.Review.MinClauseBodyLength,
		Logger:        s.Logger,
	})
	if err := next.assemble(cfg); err != nil {
		next.InitErr = err
		s.Logger.Warn("review pipeline unavailable after reload", "error", err)
	}
	return &next
}

// Close releases the vector store, database and docker client. The managed
// container keeps running.
func (s *Services) Close() error {
	var errs []error
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	if s.Docker != nil {
		errs = append(errs, s.Docker.Close())
	}
	return errors.Join(errs...)
}

func (s *Services) openPostgres(ctx context.Context, manage bool) error {
	pg := s.Config.Postgres
	dsn := pg.DSN
	if dsn == "" {
		if manage {
			dataPath := ""
			if s.Home != nil {
				dataPath = s.Home.PostgresPath()
			}
			dm, err := pgstore.NewDockerManager(pgstore.DockerConfig{
				ContainerName: pg.ContainerName,
				Image:         pg.Image,
				DataPath:      dataPath,
				HostPort:      pg.Port,
				Password:      pg.Password,
			})
			if err != nil {
				return err
			}
			s.Docker = dm
			if err := dm.Start(ctx); err != nil {
				return fmt.Errorf("failed to start postgres container: %w", err)
			}
			dsn = dm.DSN()
		} else {
			dsn = pgstore.LocalDSN(pg.Password, pg.Port)
		}
	}

	db, err := pgstore.Open(ctx, pgstore.Config{DSN: dsn, Logger: s.Logger})
	if err != nil {
		return err
	}
	s.DB = db
	s.Cache = pgstore.NewReviewCache(db, s.Config.Review.CacheTTL())
	return nil
}

func (s *Services) openStore(ctx context.Context) (vectorstore.Store, error) {
	vs := s.Config.VectorStore
	if vs.Backend == "pgvector" {
		if s.DB == nil {
			return nil, fmt.Errorf("pgvector backend requires postgres")
		}
		return vectorstore.NewPGVector(ctx, vectorstore.PGVectorConfig{
			DB:         s.DB.DB,
			Dimensions: vs.Dimensions,
			Logger:     s.Logger,
		})
	}

	path := vs.Path
	if path == "" && s.Home != nil {
		path = s.Home.VectorsPath()
	}
	return vectorstore.NewChromem(vectorstore.ChromemConfig{
		Path:       path,
		Compress:   vs.Compress,
		Dimensions: vs.Dimensions,
		Logger:     s.Logger,
	})
}

// assemble builds the orchestrator, review pipeline and standards service.
func (s *Services) assemble(cfg *config.Config) error {
	embedder, err := s.Registry.GetEmbedder(cfg.Defaults.Embedder)
	if err != nil {
		return fmt.Errorf("embedder %q unavailable: %w", cfg.Defaults.Embedder, err)
	}
	if d := cfg.VectorStore.Dimensions; d > 0 && embedder.Dimensions() != d {
		return fmt.Errorf("embedder %q produces %d dimensions, vector store expects %d",
			cfg.Defaults.Embedder, embedder.Dimensions(), d)
	}
	llm, err := s.Registry.GetLLM(cfg.Defaults.LLMProvider)
	if err != nil {
		return fmt.Errorf("llm provider %q unavailable: %w", cfg.Defaults.LLMProvider, err)
	}

	// OCR is optional; image documents fail per request without it.
	ocr, err := s.Registry.GetOCR(cfg.Defaults.OCRProvider)
	if err != nil {
		s.Logger.Debug("ocr provider unavailable", "name", cfg.Defaults.OCRProvider, "error", err)
		ocr = nil
	}

	var model string
	if pc, ok := cfg.GetLLMProvider(cfg.Defaults.LLMProvider); ok {
		model = pc.Model
	}
	rc := cfg.Review

	corrector := correction.New(correction.Config{
		Client:      llm,
		Resolver:    s.Prompts,
		Model:       model,
		Temperature: rc.Temperature,
		MaxTokens:   rc.MaxTokens,
		Logger:      s.Logger,
	})

	orch, err := orchestrator.New(orchestrator.Config{
		Embedder:          embedder,
		Searcher:          s.Store,
		Corrector:         corrector,
		Collection:        cfg.VectorStore.Collection,
		Threshold:         rc.Threshold,
		TopK:              rc.TopK,
		SearchConcurrency: rc.SearchConcurrency,
		Limiter:           s.searchLimiter,
		MaxRetries:        rc.MaxRetries,
		Backoff:           rc.Backoff(),
		CallTimeout:       rc.CallTimeout(),
		MaxPositionPages:  rc.MaxPositionPages,
		SearchParams: vectorstore.SearchParams{
			HNSWEf: rc.HNSWEf,
			Exact:  rc.ExactSearch,
		},
		Logger: s.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	rcfg := review.Config{
		Fetcher:      s.Storage,
		OCR:          ocr,
		Chunker:      s.Chunker,
		Orchestrator: orch,
		Collections:  s.Store,
		Logger:       s.Logger,
	}
	if s.Cache != nil {
		rcfg.Cache = s.Cache
	}
	pipeline, err := review.New(rcfg)
	if err != nil {
		return fmt.Errorf("failed to create review pipeline: %w", err)
	}

	scfg := standards.Config{
		Fetcher:    s.Storage,
		OCR:        ocr,
		Chunker:    s.Chunker,
		Embedder:   embedder,
		Store:      s.Store,
		Collection: cfg.VectorStore.Collection,
		Workers:    cfg.Standards.Workers,
		Retry:      orch.Policy(),
		Logger:     s.Logger,
	}
	if cfg.Standards.GenerateExamples {
		scfg.Generator = casegen.NewGenerator(llm, s.Prompts, model)
	}
	svc, err := standards.New(scfg)
	if err != nil {
		return fmt.Errorf("failed to create standards service: %w", err)
	}

	s.Orchestrator = orch
	s.Pipeline = pipeline
	s.Standards = svc
	return nil
}
