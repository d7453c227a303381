// Package pgtest opens a migrated scratch database for repository tests.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/fekuna/pantry-service/migrations"
	"github.com/fekuna/pantry-service/pkg/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// Open connects to POSTGRES_DSN, applies the schema and empties every table.
// The test is skipped when no database is configured or reachable.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	db, err := postgres.Open(dsn, nil)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(db))
	_, err = db.ExecContext(context.Background(), `TRUNCATE stock_entries, sync_transactions, items`)
	require.NoError(t, err)
	return db
}
