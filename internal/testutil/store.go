// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/agri-notify/internal/migration"
	"github.com/stanstork/agri-notify/internal/repository"
)

// NewTestDB returns a migrated in-memory SQLite database closed at test cleanup.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repository.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.RunMigrations(db.DB, "sqlite", zerolog.Nop()))
	return db
}
