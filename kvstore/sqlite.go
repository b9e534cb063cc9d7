package kvstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key     TEXT PRIMARY KEY NOT NULL,
	value   TEXT NOT NULL,
	updated INTEGER NOT NULL
);`

// SQLite persists state in a single database file so reading position
// survives program restarts.
type SQLite struct {
	pool *sqlitex.Pool
	path string
	log  *zap.Logger
}

// OpenSQLite opens (creating if necessary) database at path.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLite, error) {
	return openSQLite(ctx, path, schema, log)
}

func openSQLite(ctx context.Context, path, script string, log *zap.Logger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("unable to create store directory: %w", err)
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		Flags:    sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenWAL,
		PoolSize: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open store (%s): %w", path, err)
	}
	s := &SQLite{pool: pool, path: path, log: log.Named("store")}

	if err := s.prepare(ctx, script); err != nil {
		// pool waits for every connection to be returned before closing
		pool.Close()
		return nil, err
	}
	s.log.Debug("Store opened", zap.String("path", path))
	return s, nil
}

func (s *SQLite) prepare(ctx context.Context, script string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("unable to get store connection: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, script, nil); err != nil {
		return fmt.Errorf("unable to prepare store schema: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) (value string, found bool, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", false, err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `SELECT value FROM kv WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value, found = stmt.ColumnText(0), true
				return nil
			},
		})
	if err != nil {
		return "", false, fmt.Errorf("unable to read key %q: %w", key, err)
	}
	return value, found, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO kv (key, value, updated) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated = excluded.updated`,
		&sqlitex.ExecOptions{Args: []any{key, value, time.Now().UnixMilli()}})
	if err != nil {
		return fmt.Errorf("unable to write key %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, keys ...string) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	defer sqlitex.Save(conn)(&err)
	for _, k := range keys {
		if err = sqlitex.Execute(conn, `DELETE FROM kv WHERE key = ?`, &sqlitex.ExecOptions{Args: []any{k}}); err != nil {
			return fmt.Errorf("unable to delete key %q: %w", k, err)
		}
	}
	return nil
}

// Path returns database file name.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Close() error {
	return s.pool.Close()
}
