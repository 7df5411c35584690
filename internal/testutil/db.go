// Package testutil contains helpers shared by tests across packages
package testutil

import (
	"testing"

	"bitwise74/seed-swap/db"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database that lives as long as
// the test
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)

	// Every new connection to :memory: is a new empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}
