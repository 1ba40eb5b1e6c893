package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"cloud.google.com/go/bigquery"
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/zenspend/zenspend/internal/config"
	bq "github.com/zenspend/zenspend/internal/infra/bigquery"
	"github.com/zenspend/zenspend/internal/logger"
)

const (
	AppName = "zenspend-migrate"
	AppDesc = "Apply BigQuery schema migrations for the expenses dataset"
)

type migrateCmd struct {
	config.Logging `embed:""`

	Project   string `env:"BIGQUERY_PROJECT" help:"${env} - GCP project holding the dataset" required:""`
	Dataset   string `env:"BIGQUERY_DATASET" help:"${env} - BigQuery dataset ID" default:"zenspend"`
	AppliedBy string `help:"Recorded in schema_migrations.applied_by" default:"zenspend-migrate"`
	Dir       string `help:"Read migrations from this directory instead of the built-in set" type:"existingdir"`
	List      bool   `help:"Print the migrations that would be considered and exit without connecting"`
}

var errNoProject = errors.New("a GCP project is required")

func main() {
	var cmd migrateCmd
	kong.Parse(&cmd,
		kong.Name(AppName),
		kong.Description(AppDesc),
	)

	log, err := cmd.Logger()
	if err != nil {
		fallback := logger.Default()
		fallback.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	ctx := logger.WithContext(context.Background(), log)
	if err := cmd.run(ctx, os.Stdout, log); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func (c *migrateCmd) table() bq.Table {
	return bq.Table{ProjectID: c.Project, DatasetID: c.Dataset}
}

// source returns the filesystem and directory holding migration files.
func (c *migrateCmd) source() (fs.FS, string) {
	if c.Dir != "" {
		return os.DirFS(c.Dir), "."
	}
	return bq.Migrations, "migrations"
}

func (c *migrateCmd) run(ctx context.Context, out io.Writer, log zerolog.Logger) error {
	if c.Project == "" {
		return errNoProject
	}

	fsys, dir := c.source()
	migrations, err := bq.LoadMigrations(fsys, dir, c.table())
	if err != nil {
		return err
	}
	log.Info().Int("count", len(migrations)).Str("dataset", c.Dataset).Msg("Loaded migrations")

	if c.List {
		for _, m := range migrations {
			fmt.Fprintf(out, "%04d  %-40s  %s\n", m.Version, m.Name, m.Checksum[:12])
		}
		return nil
	}

	client, err := bigquery.NewClient(ctx, c.Project)
	if err != nil {
		return fmt.Errorf("creating BigQuery client: %w", err)
	}
	defer client.Close()

	applied, err := bq.Migrate(ctx, client, c.table(), migrations, c.AppliedBy, log)
	if err != nil {
		return err
	}
	if applied == 0 {
		fmt.Fprintln(out, "Database is up to date")
		return nil
	}
	fmt.Fprintf(out, "Applied %d migration(s)\n", applied)
	return nil
}
