package sqlstore

import "fmt"

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name        string
	placeholder func(n int) string
	schema      string
	noLimit     string
}

// Postgres is the PostgreSQL dialect.
var Postgres = Dialect{
	Name:        DriverPostgres,
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	noLimit:     "ALL",
	schema: `CREATE TABLE IF NOT EXISTS expenses (
	id          TEXT PRIMARY KEY,
	amount      NUMERIC NOT NULL CHECK (amount > 0),
	category    TEXT NOT NULL,
	date        DATE NOT NULL,
	description TEXT,
	source      TEXT NOT NULL,
	input       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
)`,
}

// SQLite is the SQLite dialect. Amounts are stored as text to keep them
// exact.
var SQLite = Dialect{
	Name:        DriverSQLite,
	placeholder: func(int) string { return "?" },
	noLimit:     "-1",
	schema: `CREATE TABLE IF NOT EXISTS expenses (
	id          TEXT PRIMARY KEY,
	amount      TEXT NOT NULL,
	category    TEXT NOT NULL,
	date        TEXT NOT NULL,
	description TEXT,
	source      TEXT NOT NULL,
	input       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
)`,
}
