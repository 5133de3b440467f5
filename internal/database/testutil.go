package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB returns a migrated in-memory database closed with the test
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}
