/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package thumbs maintains a per-folder SQLite cache of filmstrip thumbnails.
// The cache lives under <folder>/.croppy/cache.sqlite and is derived data: it
// can be deleted at any time and will be rebuilt from the images.
package thumbs

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"github.com/disintegration/imaging"

	"croppy/internal/library"
	applog "croppy/internal/log"
	"croppy/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	CacheFileName = "cache.sqlite"

	// ThumbSize is the bounding box (longest side) of stored thumbnails.
	ThumbSize = 128

	// schemaVersion tracks the local SQLite schema for the thumbnail cache.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// CachePath returns the full path to the folder's thumbnail cache database.
func CachePath(folder string) string {
	return filepath.Join(folder, library.WorkDirName, CacheFileName)
}

// Store is an open thumbnail cache for one folder. Not safe for concurrent
// writers beyond what the single sqlite connection serializes.
type Store struct {
	db         *sql.DB
	folder     string
	maxEntries int
}

// Open ensures the per-folder cache exists at .croppy/cache.sqlite, opens the
// database, enables WAL mode, and ensures the meta/version/thumbs tables
// exist. maxEntries <= 0 disables LRU eviction.
func Open(folder string, maxEntries int) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("thumbs"), "cache_open").With(
		slog.String("folder", folder),
	)
	if strings.TrimSpace(folder) == "" {
		return nil, errors.New("folder is required")
	}
	if err := os.MkdirAll(filepath.Join(folder, library.WorkDirName), 0o755); err != nil {
		l.Error("create work dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	db, err := openDB(folder)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := prepare(ctx, db, folder); err != nil {
		// The cache is derived data; a corrupt file is discarded and recreated.
		_ = db.Close()
		l.Warn("cache unusable, recreating", slog.Any("err", err))
		removeCacheFiles(folder)
		db, err = openDB(folder)
		if err != nil {
			return nil, err
		}
		if err := prepare(ctx, db, folder); err != nil {
			_ = db.Close()
			l.Error("cache recreate failed", slog.Any("err", err))
			return nil, err
		}
	}

	l.Info("cache ready", slog.String("path", CachePath(folder)))
	return &Store{db: db, folder: folder, maxEntries: maxEntries}, nil
}

func openDB(folder string) (*sql.DB, error) {
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	uriPath := filepath.ToSlash(CachePath(folder))
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Set reasonable connection pool limits for embedded usage.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// prepare brings a freshly opened database into a usable state.
func prepare(ctx context.Context, db *sql.DB, folder string) error {
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	var chk string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check;").Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		return fmt.Errorf("quick_check failed: %q %v", chk, err)
	}
	if err := ensureMetaAndVersion(ctx, db, folder); err != nil {
		return err
	}
	if err := ensureThumbsSchema(ctx, db); err != nil {
		return err
	}
	return runMigrations(ctx, db)
}

func removeCacheFiles(folder string) {
	path := CachePath(folder)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB, folder string) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES('folder', ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, folder); err != nil {
		return fmt.Errorf("seed meta: %w", err)
	}
	return nil
}

func ensureThumbsSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// last_access is unix nanoseconds so LRU ordering is a plain
		// integer comparison.
		`CREATE TABLE IF NOT EXISTS thumbs (
			path        TEXT    PRIMARY KEY,
			mtime       INTEGER NOT NULL,
			w           INTEGER NOT NULL DEFAULT 0,
			h           INTEGER NOT NULL DEFAULT 0,
			png_blob    BLOB    NOT NULL,
			size        INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL,
			last_access INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure thumbs schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade; a newer app created this cache
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// v1 caches predate the last_access index
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access);`); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
		default:
			// Unknown future step; break
		}
		cur = next
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Folder returns the browsed folder this cache belongs to.
func (s *Store) Folder() string { return s.folder }

// Get returns the cached PNG bytes for path if present and not stale, and
// updates last_access. A miss or a stale row (mtime changed) returns nil, nil;
// stale rows are dropped.
func (s *Store) Get(ctx context.Context, path string, mtime int64) ([]byte, error) {
	var blob []byte
	var storedMtime int64
	err := s.db.QueryRowContext(ctx, `SELECT png_blob, mtime FROM thumbs WHERE path=?`, path).Scan(&blob, &storedMtime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumb: %w", err)
	}
	if storedMtime != mtime {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM thumbs WHERE path=?`, path)
		return nil, nil
	}
	// touch
	_, _ = s.db.ExecContext(ctx, `UPDATE thumbs SET last_access=? WHERE path=?`, time.Now().UnixNano(), path)
	return blob, nil
}

// Put upserts a thumbnail and enforces the entry cap via LRU eviction.
func (s *Store) Put(ctx context.Context, path string, mtime int64, w, h int, png []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `INSERT INTO thumbs(path,mtime,w,h,png_blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET mtime=excluded.mtime, w=excluded.w, h=excluded.h, png_blob=excluded.png_blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		path, mtime, w, h, png, len(png), now, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("upsert thumb: %w", err)
	}
	if s.maxEntries > 0 {
		return s.evictToFit(ctx)
	}
	return nil
}

// Len reports the number of cached thumbnails.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thumbs`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// evictToFit deletes least-recently-used rows until the entry count fits.
func (s *Store) evictToFit(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thumbs`).Scan(&n); err != nil {
		return fmt.Errorf("count thumbs: %w", err)
	}
	if n <= s.maxEntries {
		return nil
	}
	// Victims ordered oldest first, never-accessed rows before dated ones.
	_, err := s.db.ExecContext(ctx, `DELETE FROM thumbs WHERE path IN (
		SELECT path FROM thumbs ORDER BY
			CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC
		LIMIT ?)`, n-s.maxEntries)
	if err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// EncodeThumb scales img to fit the thumbnail bounding box and encodes it as
// PNG. It returns the encoded bytes and the thumbnail dimensions.
func EncodeThumb(img image.Image) ([]byte, int, int, error) {
	fit := imaging.Fit(img, ThumbSize, ThumbSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fit, imaging.PNG); err != nil {
		return nil, 0, 0, fmt.Errorf("encode thumb: %w", err)
	}
	b := fit.Bounds()
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}
