package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "/tmp/x.db", SeedFile: "seed.toml"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "/tmp/x.db", cfg.SQLiteDBPath)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestCreateMemoryBackendFromSeed(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:     MemoryBackend,
		SeedFile: filepath.Join("..", "records", "memory", "testdata", "seed.toml"),
	})
	require.NoError(t, err)
	require.NoError(t, res.Ready(ctx))
	defer res.Cleanup()

	obligations, err := res.Store.ListObligations(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, obligations)
}

func TestCreateMemoryBackendMissingSeed(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:     MemoryBackend,
		SeedFile: filepath.Join(t.TempDir(), "absent.toml"),
	})
	require.NoError(t, err)

	obligations, err := res.Store.ListObligations(ctx)
	require.NoError(t, err)
	assert.Empty(t, obligations)
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "cashflow.db"),
	})
	require.NoError(t, err)
	defer res.Cleanup()

	require.NoError(t, res.Ready(ctx))
	settings, err := res.Store.GetCheckpointSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, settings.Count)
}

func TestCreateBackendInvalidType(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "sheets"})
	assert.Error(t, err)

	_, err = NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.Error(t, err)
}
