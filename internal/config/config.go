// Package config declares the command-line and environment settings shared
// by the binaries and builds the components they select.
package config

import (
	"time"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBigQuery = "bigquery"
)

// Assistant providers.
const (
	ProviderTemplate = "template"
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
)

// Logging selects log level and output format.
type Logging struct {
	LogLevel  string `env:"LOG_LEVEL" help:"${env} - Log level (debug, info, warn, error)" default:"info"`
	LogFormat string `env:"LOG_FORMAT" help:"${env} - Log output format" enum:"console,json" default:"console"`
}

// Extraction configures the expense extractor.
type Extraction struct {
	RulesFile            string `env:"RULES_FILE" help:"${env} - YAML file with category keywords and month names. Built-in tables are used when unset or missing"`
	DescriptionFromInput bool   `env:"DESCRIPTION_FROM_INPUT" help:"${env} - Use the raw message as description when none is given" default:"false"`
	Timezone             string `env:"TZ_NAME" help:"${env} - IANA time zone used for today and relative dates" default:"Local"`
}

// Storage selects and configures the expense repository.
type Storage struct {
	Backend         string        `env:"STORAGE_BACKEND" help:"${env} - Expense storage backend" enum:"memory,sqlite,postgres,bigquery" default:"memory"`
	DSN             string        `env:"DATABASE_DSN" help:"${env} - Database DSN (postgres URL or sqlite file path)"`
	MaxConns        int32         `env:"DATABASE_MAX_CONNS" help:"${env} - Maximum open postgres connections" default:"10"`
	ConnLifetime    time.Duration `env:"DATABASE_CONN_LIFETIME" help:"${env} - Maximum postgres connection lifetime" default:"30m"`
	DialTimeout     time.Duration `env:"DATABASE_DIAL_TIMEOUT" help:"${env} - Timeout for the first database connection" default:"10s"`
	BigQueryProject string        `env:"BIGQUERY_PROJECT" help:"${env} - GCP project holding the BigQuery dataset"`
	BigQueryDataset string        `env:"BIGQUERY_DATASET" help:"${env} - BigQuery dataset with the expenses table" default:"zenspend"`
}

// Notion configures the Notion sync. Sync is disabled without a token.
type Notion struct {
	NotionToken      string `env:"NOTION_TOKEN" help:"${env} - Notion integration token. If none is provided, Notion sync is disabled"`
	NotionDatabaseID string `env:"NOTION_DATABASE_ID" help:"${env} - Notion database receiving expenses"`
	NotionDryRun     bool   `env:"NOTION_DRY_RUN" help:"${env} - Log Notion writes without sending them" default:"false"`
}

// Export configures spreadsheet exports. Exports are disabled without a bucket.
type Export struct {
	ExportBucket string `env:"GCS_BUCKET" help:"${env} - GCS bucket for XLSX exports. If none is provided, exports are disabled"`
}

// Assistant selects the responder phrasing chat confirmations.
type Assistant struct {
	Provider      string `env:"ASSISTANT_PROVIDER" help:"${env} - Reply generator" enum:"template,gemini,openai" default:"template"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY" help:"${env} - API key for Gemini"`
	GeminiModel   string `env:"GEMINI_MODEL" help:"${env} - Gemini model name" default:"gemini-2.5-flash"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY" help:"${env} - API key for OpenAI"`
	OpenAIModel   string `env:"OPENAI_MODEL" help:"${env} - OpenAI chat model" default:"gpt-3.5-turbo"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" help:"${env} - Override for the OpenAI API endpoint"`
}

// Server configures the HTTP API process.
type Server struct {
	ListenAddress string `env:"LISTEN_ADDRESS" help:"${env} - Address to listen on for the API and telemetry" default:":8080"`
	MetricsPath   string `env:"METRICS_PATH" help:"${env} - Path under which to expose metrics" default:"/metrics"`
	Workers       int    `env:"JOB_WORKERS" help:"${env} - Background job workers" default:"5"`
	QueueSize     int    `env:"JOB_QUEUE_SIZE" help:"${env} - Jobs buffered before publishing blocks" default:"100"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" help:"${env} - Comma-separated origins allowed to call the API, * for any" default:"*"`
}

// Core is the settings every binary needs.
type Core struct {
	Logging    `embed:""`
	Extraction `embed:""`
	Storage    `embed:""`
}
