package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"000001_init.up.sql": &fstest.MapFile{
			Data: []byte("CREATE TABLE accounts (id TEXT PRIMARY KEY, name TEXT NOT NULL);"),
		},
		"000001_init.down.sql": &fstest.MapFile{
			Data: []byte("DROP TABLE accounts;"),
		},
		"000002_add_index.up.sql": &fstest.MapFile{
			Data: []byte("CREATE INDEX idx_accounts_name ON accounts(name);"),
		},
		"000002_add_index.down.sql": &fstest.MapFile{
			Data: []byte("DROP INDEX idx_accounts_name;"),
		},
	}
}

func testDSN(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "target.db")
}

// =============================================================================
// Pending Migration Tests
// =============================================================================

func TestPendingMigrations_FreshDatabase(t *testing.T) {
	checker := NewSQLiteChecker(testMigrations(), ".", nil)

	pending, err := checker.PendingMigrations(context.Background(), testDSN(t))
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestPendingMigrations_FullyMigratedDatabase(t *testing.T) {
	checker := NewSQLiteChecker(testMigrations(), ".", nil)
	dsn := testDSN(t)

	require.NoError(t, checker.Apply(context.Background(), dsn))

	pending, err := checker.PendingMigrations(context.Background(), dsn)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestPendingMigrations_PartiallyMigratedDatabase(t *testing.T) {
	// Apply only the first migration, then check against a source that has two.
	first := fstest.MapFS{
		"000001_init.up.sql":   testMigrations()["000001_init.up.sql"],
		"000001_init.down.sql": testMigrations()["000001_init.down.sql"],
	}
	dsn := testDSN(t)
	require.NoError(t, NewSQLiteChecker(first, ".", nil).Apply(context.Background(), dsn))

	checker := NewSQLiteChecker(testMigrations(), ".", nil)
	pending, err := checker.PendingMigrations(context.Background(), dsn)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestPendingMigrations_DirtySchemaIsAnError(t *testing.T) {
	dsn := testDSN(t)

	// Simulate a half-applied migration by marking the version table dirty.
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE schema_migrations (version uint64, dirty bool)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO schema_migrations (version, dirty) VALUES (1, true)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	checker := NewSQLiteChecker(testMigrations(), ".", nil)
	_, err = checker.PendingMigrations(context.Background(), dsn)
	assert.ErrorContains(t, err, "dirty")
}

func TestPendingMigrations_EmptyDSNRejected(t *testing.T) {
	checker := NewSQLiteChecker(testMigrations(), ".", nil)

	_, err := checker.PendingMigrations(context.Background(), "")
	assert.Error(t, err)
}
