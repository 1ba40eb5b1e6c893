package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/zenspend/zenspend/internal/assistant"
	"github.com/zenspend/zenspend/internal/export"
	"github.com/zenspend/zenspend/internal/extractor"
	"github.com/zenspend/zenspend/internal/gcsuploader"
	infraBQ "github.com/zenspend/zenspend/internal/infra/bigquery"
	"github.com/zenspend/zenspend/internal/logger"
	"github.com/zenspend/zenspend/internal/notionsync"
	"github.com/zenspend/zenspend/internal/storage"
	"github.com/zenspend/zenspend/internal/storage/inmemory"
	"github.com/zenspend/zenspend/internal/storage/sqlstore"
)

// Logger builds the process logger writing to stdout.
func (l Logging) Logger() (zerolog.Logger, error) {
	return logger.New(logger.Options{Level: l.LogLevel, Format: logger.Format(l.LogFormat), Out: os.Stdout})
}

// Location resolves the configured time zone.
func (x Extraction) Location() (*time.Location, error) {
	if x.Timezone == "" || x.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(x.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: time zone %q: %w", x.Timezone, err)
	}
	return loc, nil
}

// Extractor loads the rules file and builds the extractor.
func (x Extraction) Extractor() (*extractor.Extractor, error) {
	rules, err := extractor.LoadRules(x.RulesFile)
	if err != nil {
		return nil, err
	}
	loc, err := x.Location()
	if err != nil {
		return nil, err
	}
	return extractor.New(extractor.Config{
		Rules:                rules,
		DescriptionFromInput: x.DescriptionFromInput,
		Location:             loc,
	})
}

// Repository is an expense repository together with its cleanup.
type Repository struct {
	storage.ExpenseRepository
	io.Closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open connects the configured backend. SQL backends get their schema
// created on first use.
func (s Storage) Open(ctx context.Context, log zerolog.Logger) (*Repository, error) {
	switch s.Backend {
	case BackendMemory, "":
		log.Warn().Msg("Using in-memory storage; expenses are lost on restart")
		return &Repository{inmemory.NewStore(), nopCloser{}}, nil

	case BackendSQLite, BackendPostgres:
		if s.DSN == "" {
			return nil, fmt.Errorf("config: %s backend requires DATABASE_DSN", s.Backend)
		}
		db, dialect, err := sqlstore.Open(ctx, sqlstore.Config{
			Driver:          s.Backend,
			DSN:             s.DSN,
			MaxConns:        s.MaxConns,
			MaxConnLifetime: s.ConnLifetime,
			DialTimeout:     s.DialTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		store := sqlstore.New(db, dialect)
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return &Repository{store, store}, nil

	case BackendBigQuery:
		if s.BigQueryProject == "" {
			return nil, fmt.Errorf("config: bigquery backend requires BIGQUERY_PROJECT")
		}
		repo, err := infraBQ.NewExpenseRepository(ctx, s.BigQueryProject, s.BigQueryDataset)
		if err != nil {
			return nil, err
		}
		return &Repository{repo, repo}, nil

	default:
		return nil, fmt.Errorf("config: unknown storage backend %q", s.Backend)
	}
}

// Responder builds the configured reply generator.
func (a Assistant) Responder(ctx context.Context, log zerolog.Logger) (assistant.Responder, error) {
	switch a.Provider {
	case ProviderTemplate, "":
		return assistant.Template{}, nil
	case ProviderGemini:
		return assistant.NewGeminiResponder(ctx, a.GeminiAPIKey, a.GeminiModel, log)
	case ProviderOpenAI:
		if a.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("config: openai provider requires OPENAI_API_KEY")
		}
		return assistant.NewOpenAIResponder(a.OpenAIAPIKey, a.OpenAIModel, a.OpenAIBaseURL, log), nil
	default:
		return nil, fmt.Errorf("config: unknown assistant provider %q", a.Provider)
	}
}

// Syncer returns the Notion syncer, or nil when sync is disabled.
func (n Notion) Syncer() (*notionsync.Syncer, error) {
	if n.NotionToken == "" {
		return nil, nil
	}
	if n.NotionDatabaseID == "" {
		return nil, fmt.Errorf("config: NOTION_DATABASE_ID is required with NOTION_TOKEN")
	}
	return notionsync.NewSyncer(notionsync.NewNotionClient(n.NotionToken), n.NotionDatabaseID, n.NotionDryRun), nil
}

// Exporter returns the GCS exporter and its cleanup, or nil when exports
// are disabled.
func (x Export) Exporter(ctx context.Context, repo storage.ExpenseRepository) (*export.Exporter, io.Closer, error) {
	if x.ExportBucket == "" {
		return nil, nopCloser{}, nil
	}
	store, err := gcsuploader.NewGCSStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return export.NewExporter(repo, store, x.ExportBucket), store, nil
}
