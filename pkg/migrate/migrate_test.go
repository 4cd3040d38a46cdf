package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/artmarket/artmarket-backend/pkg/config"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateEmbedded())
	require.NoError(t, ValidateDir("migrations"))
}

func TestMigrationsCreateCartTables(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:goose_up?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	require.NoError(t, Run(ctx, sqlDB, config.DBDriverSQLite, "up"))

	assert.True(t, conn.Migrator().HasTable("storage_entries"))
	assert.True(t, conn.Migrator().HasTable("checkout_receipts"))

	version, err := Version(ctx, sqlDB, config.DBDriverSQLite)
	require.NoError(t, err)
	assert.EqualValues(t, 20260301120500, version)

	require.NoError(t, MigrateToVersion(ctx, sqlDB, config.DBDriverSQLite, "20260301120000"))
	assert.True(t, conn.Migrator().HasTable("storage_entries"))
	assert.False(t, conn.Migrator().HasTable("checkout_receipts"))

	require.Error(t, MigrateToVersion(ctx, sqlDB, config.DBDriverSQLite, "latest"))
}

func TestCheckoutReceiptMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_checkout_receipts.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS checkout_receipts",
		"CREATE UNIQUE INDEX IF NOT EXISTS checkout_receipts_payment_reference_key",
		"CHECK (item_count >= 0)",
		"DROP TABLE IF EXISTS checkout_receipts",
	} {
		assert.True(t, strings.Contains(content, sub), "missing expected statement %q", sub)
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_missing_down.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644))
	assert.Error(t, ValidateDir(dir))

	assert.Error(t, ValidateDir(""))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Receipt Notes!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_receipt_notes.sql"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", Dialect(config.DBDriverSQLite))
	assert.Equal(t, "postgres", Dialect(config.DBDriverPostgres))
}
