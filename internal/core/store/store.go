package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/quotachat/quotachat/internal/config"
)

const (
	driverLibsql = "libsql"
	memoryDSN    = ":memory:"

	busyTimeoutMs = 5000
)

// Store holds chat conversations and their messages.
type Store struct {
	DB     *sql.DB
	driver string
}

// Open connects to the configured database and checks it answers. Only the
// libsql driver is supported; it covers local files, :memory: and remote
// Turso URLs.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	drv := strings.TrimSpace(cfg.Driver)
	if drv == "" {
		drv = driverLibsql
	}
	if drv != driverLibsql {
		return nil, fmt.Errorf("unsupported store driver: %s", drv)
	}

	dsn, err := libsqlDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverLibsql, dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store: %w", err)
	}
	if err := prepare(ctx, db, dsn); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{DB: db, driver: drv}, nil
}

// prepare pings the database and tunes local ones. Every connection to
// :memory: gets its own empty database, and a file shared by the REPL and
// the server needs a single writer with WAL, so both use one connection.
func prepare(ctx context.Context, db *sql.DB, dsn string) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping libsql store: %w", err)
	}

	switch {
	case dsn == memoryDSN:
		db.SetMaxOpenConns(1)
	case strings.HasPrefix(dsn, "file:"):
		db.SetMaxOpenConns(1)
		var mode string
		if err := db.QueryRowContext(ctx, "PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
			return fmt.Errorf("enable wal: %w", err)
		}
		var timeout int
		if err := db.QueryRowContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMs)).Scan(&timeout); err != nil {
			return fmt.Errorf("set busy timeout: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	return s.DB.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver names the database driver in use.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// libsqlDSN turns store settings into a connection string. A URL wins over
// a path; plain paths become file: DSNs and get their directory created.
func libsqlDSN(cfg config.StoreConfig) (string, error) {
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		return withAuthToken(raw, strings.TrimSpace(cfg.AuthToken))
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return "", errors.New("store path or url is required")
	case path == memoryDSN, strings.HasPrefix(path, "libsql:"):
		return path, nil
	case strings.HasPrefix(path, "file:"):
		local, err := filePathOf(path)
		if err != nil {
			return "", err
		}
		return path, mkdirFor(local)
	default:
		return "file:" + filepath.Clean(path), mkdirFor(path)
	}
}

// withAuthToken adds authToken to a remote URL unless it already has one.
func withAuthToken(raw, token string) (string, error) {
	if token == "" {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	q := u.Query()
	if q.Get("authToken") != "" {
		return raw, nil
	}
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func filePathOf(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store path: %w", err)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	return strings.TrimPrefix(p, "//"), nil
}

func mkdirFor(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if path == "" || dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
