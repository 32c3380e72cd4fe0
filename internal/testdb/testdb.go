// Package testdb opens migrated in-memory databases for tests.
package testdb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kanban/internal/db"
)

// New returns a fresh migrated sqlite database private to t. The pool is
// capped at one connection because every connection to ":memory:" sees its
// own empty database.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(db.Config{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}
