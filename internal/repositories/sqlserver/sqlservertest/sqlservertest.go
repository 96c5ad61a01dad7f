// Package sqlservertest opens a migrated in-memory store for tests
package sqlservertest

import (
	"testing"

	"tprmgrc/internal/repositories/sqlserver"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a fresh store backed by a private in-memory SQLite database.
// The pool is pinned to one connection so every query sees the same database.
func New(t testing.TB) *sqlserver.Internal {
	t.Helper()

	s, err := sqlserver.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := s.DB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, s.AutoMigrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}
