// Package app builds the stores, providers and services named by a Config.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/analysis"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/config"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/docstore"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/docstore/chroma"
	docsqlite "github.com/beckyxu-design/Carbon-Offset-Validation/internal/docstore/sqlite"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/ingest"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/llm"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/logging"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/narrative"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/server"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/store"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/store/postgres"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/store/sqlite"
)

// Database is a relational store that can also be seeded.
type Database interface {
	store.RelationalStore
	store.Seeder
}

// App holds every long-lived handle the commands need.
type App struct {
	Config    *config.Config
	Store     Database
	Documents docstore.Store
	Provider  llm.Provider
	Service   *analysis.Service
	Fetcher   *ingest.Fetcher
}

// Open connects the relational store and the optional subsystems. Only a
// relational store failure is fatal.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := OpenRelational(ctx, cfg.RelationalDSN())
	if err != nil {
		return nil, err
	}

	docs := OpenDocuments(cfg)
	provider := llm.CreateProvider(ctx, llm.Options{
		Provider:  cfg.Generation.Provider,
		Model:     cfg.Generation.Model,
		BaseURL:   cfg.Generation.BaseURL,
		APIKeyEnv: cfg.Generation.APIKeyEnv,
		RPM:       cfg.Generation.RPM,
	})

	svc := analysis.NewService(db,
		docstore.NewRetriever(docs, cfg.Retrieval.Timeout),
		narrative.New(provider, cfg.Generation.MaxTokens, cfg.Generation.Timeout),
		cfg.Retrieval.TopK,
	)

	return &App{
		Config:    cfg,
		Store:     db,
		Documents: docs,
		Provider:  provider,
		Service:   svc,
		Fetcher:   ingest.NewFetcher(0),
	}, nil
}

// OpenRelational picks Postgres for postgres:// DSNs and SQLite otherwise.
func OpenRelational(ctx context.Context, dsn string) (Database, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		c, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := c.EnsureSchema(ctx); err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("ensuring schema: %w", err)
		}
		return c, nil
	}
	db, err := sqlite.Open(dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// OpenDocuments returns the configured document store, or docstore.Noop
// when retrieval is disabled or the backend cannot be opened.
func OpenDocuments(cfg *config.Config) docstore.Store {
	r := cfg.Retrieval
	switch r.Backend {
	case "sqlite":
		s, err := docsqlite.Open(cfg.DocumentDSN())
		if err != nil {
			logging.Log.WithError(err).Warn("document store unavailable, retrieval disabled")
			return docstore.Noop{}
		}
		return s
	case "chroma":
		if r.ChromaURL == "" {
			logging.Log.Warn("retrieval.chroma_url not set, retrieval disabled")
			return docstore.Noop{}
		}
		return chroma.New(r.ChromaURL, r.Collection, llm.NewOllamaEmbedder(r.EmbeddingModel, r.OllamaURL))
	default:
		logging.Log.Info("No document store configured, retrieval disabled")
		return docstore.Noop{}
	}
}

// Server returns the HTTP API over the app's handles.
func (a *App) Server() *server.Server {
	return server.New(server.Deps{
		Service:    a.Service,
		Store:      a.Store,
		Documents:  a.Documents,
		Generation: a.Provider,
		Fetcher:    a.Fetcher,
	})
}

// Close releases the stores.
func (a *App) Close(ctx context.Context) error {
	docErr := a.Documents.Close()
	if err := a.Store.Close(ctx); err != nil {
		return err
	}
	return docErr
}
