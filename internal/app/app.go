// Package app builds the shared resources of one medingest process from a
// resolved configuration and releases them on Close.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/custodia-labs/medingest/internal/adapters/driven/ai"
	"github.com/custodia-labs/medingest/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/medingest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medingest/internal/adapters/driven/storage/neo4j"
	"github.com/custodia-labs/medingest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/medingest/internal/adapters/driven/vector"
	"github.com/custodia-labs/medingest/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/medingest/internal/connectors/filesystem"
	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/core/services"
	"github.com/custodia-labs/medingest/internal/entities"
	"github.com/custodia-labs/medingest/internal/extractors"
	"github.com/custodia-labs/medingest/internal/logger"
	"github.com/custodia-labs/medingest/internal/postprocessors"
	"github.com/custodia-labs/medingest/internal/postprocessors/jsonexport"
)

// Context holds every long-lived resource. Nothing in medingest reaches
// for globals; commands receive a Context and Close it when done.
type Context struct {
	Config domain.Config

	Embedder  driven.EmbeddingService
	Vectors   *vector.Store
	Model     driven.EntityModel
	Entities  *entities.Engine
	Registry  *extractors.Registry
	Processor *postprocessors.Pipeline
	Stores    []driven.StructuredStore
	Sync      *services.EntitySyncService

	// Source is nil when no input directory is configured.
	Source    *filesystem.Connector
	Pipeline  *services.PipelineService
	Search    *services.SearchService
	Documents *services.DocumentService

	closers []io.Closer
}

// New builds a Context. On error, anything already opened is released.
func New(ctx context.Context, cfg domain.Config) (_ *Context, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Context{Config: cfg}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if c.Embedder, err = newEmbedder(ctx, cfg); err != nil {
		return nil, err
	}
	c.closers = append(c.closers, c.Embedder)

	if c.Vectors, err = newVectorStore(cfg, c.Embedder); err != nil {
		return nil, err
	}
	c.closers = append(c.closers, c.Vectors)

	if c.Model, err = ai.CreateEntityModel(cfg.Model, cfg.UseGPU); err != nil {
		return nil, err
	}
	if closer, ok := c.Model.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
	c.Entities = entities.New(c.Model, entities.Config{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		ModelTimeout:        cfg.Model.Timeout,
	})

	c.Registry = extractors.NewDefaultRegistry()

	processors := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(processors, postprocessors.Defaults{
		OutputDir:           cfg.OutputDir,
		IncludeContent:      cfg.IncludeContent,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	})
	if c.Processor, err = processors.BuildPipeline(cfg.Pipeline); err != nil {
		return nil, err
	}

	targets, err := c.openStores(ctx, cfg.Sync)
	if err != nil {
		return nil, err
	}
	c.Sync = services.NewEntitySyncService(targets, services.RetryPolicy{
		MaxAttempts: cfg.Sync.MaxAttempts,
		BaseBackoff: cfg.Sync.BaseBackoff,
		MaxBackoff:  cfg.Sync.MaxBackoff,
		CallTimeout: services.DefaultRetryPolicy().CallTimeout,
	}, services.WithSyncConcurrency(cfg.Concurrency))

	var source driven.FileSource
	if cfg.InputDir != "" {
		c.Source = filesystem.New(cfg.InputDir,
			filesystem.WithRecursive(cfg.Recursive),
			filesystem.WithFilter(func(path string) bool {
				return cfg.AllowsExtension(filepath.Ext(path))
			}))
		c.closers = append(c.closers, c.Source)
		source = c.Source
	}

	c.Pipeline = services.NewPipelineService(source, c.Registry, c.Entities, c.Vectors, c.Processor, c.Sync,
		services.PipelineOptions{
			Concurrency:     cfg.Concurrency,
			DocumentTimeout: cfg.DocumentTimeout,
			InputDir:        cfg.InputDir,
		})
	c.Search = services.NewSearchService(c.Vectors)
	c.Documents = services.NewDocumentService(jsonexport.NewStore(cfg.OutputDir, cfg.IncludeContent))

	logger.Debug("App ready: embedder=%s vectors=%s model=%s targets=%v",
		c.Embedder.ModelName(), cfg.Vector.Backend, cfg.Model.Provider, c.Sync.Targets())
	return c, nil
}

// Close releases resources in reverse order of creation.
func (c *Context) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func newEmbedder(ctx context.Context, cfg domain.Config) (driven.EmbeddingService, error) {
	if cfg.Embedding.Provider.IsLocal() || cfg.Embedding.Provider == "" {
		return ai.CreateEmbeddingService(cfg.Embedding, cfg.UseGPU)
	}
	return ai.CreateAndValidateEmbeddingService(ctx, cfg.Embedding, cfg.UseGPU)
}

func newVectorStore(cfg domain.Config, embedder driven.EmbeddingService) (*vector.Store, error) {
	switch cfg.Vector.Backend {
	case domain.VectorBackendMemory:
		return vector.New(embedder, cfg.Vector.Metric)
	case domain.VectorBackendFlat, "":
		return flat.Open(cfg.Vector.Path, embedder, cfg.Vector.Metric)
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrConfiguration, cfg.Vector.Backend)
	}
}

// openStores connects every sync target. Each target gets its own limiter
// shared by all workers writing to it.
func (c *Context) openStores(ctx context.Context, cfg domain.SyncSettings) ([]services.SyncTarget, error) {
	targets := make([]services.SyncTarget, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		var store driven.StructuredStore
		switch t {
		case domain.SyncTargetMemory:
			store = memory.NewRecordStore()
		case domain.SyncTargetSQLite:
			s, err := sqlite.NewStore(cfg.SQLitePath)
			if err != nil {
				return nil, fmt.Errorf("open sqlite target: %w", err)
			}
			store = s
		case domain.SyncTargetNeo4j:
			s, err := neo4j.New(ctx, neo4j.Config{
				URI:      cfg.Neo4jURI,
				Username: cfg.Neo4jUser,
				Password: cfg.Neo4jPassword,
				Database: cfg.Neo4jDatabase,
			})
			if err != nil {
				return nil, fmt.Errorf("open neo4j target: %w", err)
			}
			store = s
		default:
			return nil, fmt.Errorf("%w: unknown sync target %q", domain.ErrConfiguration, t)
		}
		c.Stores = append(c.Stores, store)
		c.closers = append(c.closers, store)
		targets = append(targets, services.SyncTarget{
			Store: store,
			Limiter: ratelimit.New(ratelimit.Config{
				RequestsPerSecond: cfg.RatePerSecond,
				Burst:             cfg.Burst,
			}),
		})
	}
	return targets, nil
}
