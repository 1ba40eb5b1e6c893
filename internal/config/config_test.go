package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenspend/zenspend/internal/assistant"
	"github.com/zenspend/zenspend/internal/domain"
	"github.com/zenspend/zenspend/internal/storage"
)

type testCLI struct {
	Core      `embed:""`
	Server    `embed:""`
	Notion    `embed:""`
	Export    `embed:""`
	Assistant `embed:""`
}

func parse(t *testing.T, args ...string) testCLI {
	t.Helper()
	var cli testCLI
	parser, err := kong.New(&cli, kong.Name("zenspend"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	_, err = parser.Parse(args)
	require.NoError(t, err)
	return cli
}

func TestDefaults(t *testing.T) {
	cli := parse(t)

	assert.Equal(t, "info", cli.LogLevel)
	assert.Equal(t, "console", cli.LogFormat)
	assert.Equal(t, BackendMemory, cli.Backend)
	assert.Equal(t, "zenspend", cli.BigQueryDataset)
	assert.Equal(t, 30*time.Minute, cli.ConnLifetime)
	assert.Equal(t, ":8080", cli.ListenAddress)
	assert.Equal(t, "/metrics", cli.MetricsPath)
	assert.Equal(t, 5, cli.Workers)
	assert.Equal(t, []string{"*"}, cli.AllowedOrigins)
	assert.Equal(t, ProviderTemplate, cli.Provider)
	assert.False(t, cli.DescriptionFromInput)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("DATABASE_DSN", "/tmp/zenspend.db")
	t.Setenv("DESCRIPTION_FROM_INPUT", "true")
	t.Setenv("JOB_WORKERS", "2")
	t.Setenv("NOTION_TOKEN", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cli := parse(t)
	assert.Equal(t, BackendSQLite, cli.Backend)
	assert.Equal(t, "/tmp/zenspend.db", cli.DSN)
	assert.True(t, cli.DescriptionFromInput)
	assert.Equal(t, 2, cli.Workers)
	assert.Equal(t, "secret", cli.NotionToken)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cli.AllowedOrigins)
}

func TestEnumRejected(t *testing.T) {
	var cli testCLI
	parser, err := kong.New(&cli)
	require.NoError(t, err)
	_, err = parser.Parse([]string{"--backend=mongo"})
	assert.Error(t, err)
}

func TestExtraction_Extractor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - name: Pets
    keywords: [vet]
`), 0o600))

	ex, err := Extraction{RulesFile: path, Timezone: "UTC"}.Extractor()
	require.NoError(t, err)
	assert.Contains(t, ex.Categories(), "Pets")

	_, err = Extraction{Timezone: "Mars/Olympus"}.Extractor()
	assert.Error(t, err)

	loc, err := Extraction{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLogging_Logger(t *testing.T) {
	log, err := Logging{LogLevel: "debug", LogFormat: "json"}.Logger()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())

	_, err = Logging{LogLevel: "chatty"}.Logger()
	assert.Error(t, err)
}

func TestStorage_OpenMemory(t *testing.T) {
	repo, err := Storage{Backend: BackendMemory}.Open(context.Background(), zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, repo.Close())
}

func TestStorage_OpenSQLite(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "zenspend.db")

	repo, err := Storage{Backend: BackendSQLite, DSN: dsn}.Open(ctx, zerolog.Nop())
	require.NoError(t, err)
	defer repo.Close()

	desc := "filter coffee"
	e := &domain.Expense{
		ID:          "e-1",
		Amount:      decimal.RequireFromString("120.50"),
		Category:    "Drinks",
		Date:        civil.Date{Year: 2025, Month: time.July, Day: 14},
		Description: &desc,
		Source:      domain.SourceChat,
		Input:       "coffee 120.50 yesterday",
		CreatedAt:   time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.InsertExpense(ctx, e))

	got, err := repo.GetExpense(ctx, "e-1")
	require.NoError(t, err)
	assert.True(t, e.Amount.Equal(got.Amount))
	assert.Equal(t, e.Date, got.Date)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)

	_, err = repo.GetExpense(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	totals, err := repo.CategoryTotals(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "120.5", totals[0].Total.String())

	// Reopening keeps the schema and data.
	again, err := Storage{Backend: BackendSQLite, DSN: dsn}.Open(ctx, zerolog.Nop())
	require.NoError(t, err)
	defer again.Close()
}

func TestStorage_OpenErrors(t *testing.T) {
	ctx := context.Background()
	for _, s := range []Storage{
		{Backend: BackendSQLite},
		{Backend: BackendPostgres},
		{Backend: BackendBigQuery},
		{Backend: "mongo"},
	} {
		_, err := s.Open(ctx, zerolog.Nop())
		assert.Error(t, err, s.Backend)
	}
}

func TestAssistant_Responder(t *testing.T) {
	ctx := context.Background()

	r, err := Assistant{Provider: ProviderTemplate}.Responder(ctx, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, assistant.Template{}, r)

	_, err = Assistant{Provider: ProviderOpenAI}.Responder(ctx, zerolog.Nop())
	assert.Error(t, err)

	r, err = Assistant{Provider: ProviderOpenAI, OpenAIAPIKey: "sk-test"}.Responder(ctx, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, r)

	_, err = Assistant{Provider: "clippy"}.Responder(ctx, zerolog.Nop())
	assert.Error(t, err)
}

func TestNotion_Syncer(t *testing.T) {
	s, err := Notion{}.Syncer()
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Notion{NotionToken: "secret"}.Syncer()
	assert.Error(t, err)

	s, err = Notion{NotionToken: "secret", NotionDatabaseID: "db"}.Syncer()
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestExport_Disabled(t *testing.T) {
	x, closer, err := Export{}.Exporter(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, x)
	assert.NoError(t, closer.Close())
}
