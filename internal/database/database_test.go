package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/advising-auth/internal/config"
)

func TestMigrate_SQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "accounts.db")}

	db, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	results, err := Migrate(ctx, db, cfg.Driver)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = Migrate(ctx, db, cfg.Driver)
	require.NoError(t, err)
	assert.Empty(t, results)

	count, err := db.NewSelect().Model((*Account)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMigrate_UnknownDriver(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, "file:"+filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = Migrate(ctx, db, "mysql")
	assert.Error(t, err)
}
