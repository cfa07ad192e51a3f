package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eleven-am/hlsladder/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes.
const schemaVersion = 1

var ErrSchemaMismatch = errors.New("schema version mismatch")

// SQLite stores manifests in a single table keyed by (video_id, role, name).
type SQLite struct {
	db   *sql.DB
	path string
}

func OpenSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite storage needs a database path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLite{db: db, path: dbPath}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLite) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *SQLite) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *SQLite) ReadManifest(ctx context.Context, key domain.ManifestKey) ([]byte, error) {
	name, err := relativePath(key)
	if err != nil {
		return nil, err
	}

	var body string
	err = s.db.QueryRowContext(ctx,
		"SELECT body FROM manifests WHERE video_id = ? AND role = ? AND name = ?",
		key.VideoID, string(key.Role), name,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrManifestNotFound, key.VideoID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query manifest: %w", err)
	}
	return []byte(body), nil
}

func (s *SQLite) WriteManifest(ctx context.Context, key domain.ManifestKey, data []byte) error {
	name, err := relativePath(key)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO manifests (video_id, role, name, body, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(video_id, role, name) DO UPDATE SET
            body = excluded.body,
            updated_at = excluded.updated_at`,
		key.VideoID, string(key.Role), name, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert manifest: %w", err)
	}
	return nil
}

func (s *SQLite) ManifestExists(ctx context.Context, key domain.ManifestKey) (bool, error) {
	name, err := relativePath(key)
	if err != nil {
		return false, err
	}

	var count int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM manifests WHERE video_id = ? AND role = ? AND name = ?",
		key.VideoID, string(key.Role), name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count manifests: %w", err)
	}
	return count > 0, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
