package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/quotachat/quotachat/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLibsqlDSN(t *testing.T) {
	t.Run("URLUsesRawValue", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io",
			AuthToken: "token123",
		}

		dsn, err := libsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123", dsn)
	})

	t.Run("URLWithExistingQuery", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io?foo=bar",
			AuthToken: "token123",
		}

		dsn, err := libsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123&foo=bar", dsn)
	})

	t.Run("PathWithFilePrefix", func(t *testing.T) {
		cfg := config.StoreConfig{Path: "file:./quotachat.db"}

		dsn, err := libsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "file:./quotachat.db", dsn)
	})

	t.Run("PathMissing", func(t *testing.T) {
		cfg := config.StoreConfig{}

		_, err := libsqlDSN(cfg)
		require.Error(t, err)
	})

	t.Run("MemoryPath", func(t *testing.T) {
		cfg := config.StoreConfig{Path: ":memory:"}

		dsn, err := libsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})

	t.Run("PlainPathCreatesDir", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "quotachat.db")

		dsn, err := libsqlDSN(config.StoreConfig{Path: path})
		require.NoError(t, err)
		require.Equal(t, "file:"+filepath.Clean(path), dsn)

		info, err := os.Stat(filepath.Dir(path))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	})
}

func TestWithAuthTokenKeepsExisting(t *testing.T) {
	dsn, err := withAuthToken("libsql://example.turso.io?authToken=abc", "other")
	require.NoError(t, err)
	require.Equal(t, "libsql://example.turso.io?authToken=abc", dsn)

	dsn, err = withAuthToken("libsql://example.turso.io", "")
	require.NoError(t, err)
	require.Equal(t, "libsql://example.turso.io", dsn)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "postgres", Path: ":memory:"})
	require.ErrorContains(t, err, "unsupported store driver")
}
