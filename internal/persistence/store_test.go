package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// exerciseStore runs the shared contract every backend must satisfy.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "helpdeskRole", "Admin"))
	val, ok, err := store.Get(ctx, "helpdeskRole")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Admin", val)

	require.NoError(t, store.Set(ctx, "helpdeskRole", "User"))
	val, _, err = store.Get(ctx, "helpdeskRole")
	require.NoError(t, err)
	require.Equal(t, "User", val, "last write wins")

	require.NoError(t, store.Remove(ctx, "helpdeskRole"))
	_, ok, err = store.Get(ctx, "helpdeskRole")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Remove(ctx, "never-set"))
	require.NoError(t, Ping(ctx, store))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	exerciseStore(t, store)
	require.Equal(t, 4, store.Writes())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	store, err := OpenFile(path)
	require.NoError(t, err)
	exerciseStore(t, store)

	require.NoError(t, store.Set(context.Background(), "helpdeskSortBy", "sla_asc"))
	reopened, err := OpenFile(path)
	require.NoError(t, err)
	val, ok, err := reopened.Get(context.Background(), "helpdeskSortBy")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sla_asc", val)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := OpenFile(path)
	require.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helpdesk.db")
	store, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	exerciseStore(t, store)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("HELPDESK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HELPDESK_TEST_REDIS_ADDR not set")
	}
	store := NewRedis(config.RedisConfig{Addr: addr, KeyPrefix: "helpdesk-test:"}, zap.NewNop())
	t.Cleanup(func() { store.Close() })
	exerciseStore(t, store)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("HELPDESK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HELPDESK_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	cfg := config.StoreConfig{
		Backend:  config.StoreBackendPostgres,
		Postgres: config.PostgresConfig{DSN: dsn, RunMigrations: true},
	}
	store, err := Open(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	exerciseStore(t, store)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	store, err := Open(ctx, config.StoreConfig{Backend: config.StoreBackendMemory}, logger)
	require.NoError(t, err)
	require.IsType(t, &Memory{}, store)

	store, err = Open(ctx, config.StoreConfig{Backend: config.StoreBackendFile, Path: filepath.Join(t.TempDir(), "s.json")}, logger)
	require.NoError(t, err)
	require.IsType(t, &File{}, store)

	_, err = Open(ctx, config.StoreConfig{Backend: config.StoreBackendPostgres}, logger)
	require.Error(t, err)

	_, err = Open(ctx, config.StoreConfig{Backend: "etcd"}, logger)
	require.Error(t, err)
}
