// Package storage persists the bookmark tree, the placement history and
// the last outcome report in a SQLite database. Every read hits the
// database at call time; the organizer mutates the tree between steps
// and must never see stale data.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"shelfmark/internal/model"
)

const currentSchemaVersion = 1

// ErrNotFound is returned when a mutation targets an id that no longer
// exists in the store.
var ErrNotFound = errors.New("storage: no such item")

// DB is a SQLite-backed bookmark store.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &DB{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *DB) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *DB) Close() error {
	return s.db.Close()
}

func (s *DB) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	return nil
}

func (s *DB) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS folders (
			id TEXT PRIMARY KEY NOT NULL,
			title TEXT NOT NULL,
			parent_id TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_folders_parent_id ON folders(parent_id);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id TEXT PRIMARY KEY NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			folder_id TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_bookmarks_folder_id ON bookmarks(folder_id);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_url ON bookmarks(url);

		CREATE TABLE IF NOT EXISTS history (
			item_id TEXT PRIMARY KEY NOT NULL,
			moved_at TEXT NOT NULL,
			category TEXT
		);

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY NOT NULL,
			value TEXT NOT NULL
		);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Folders returns every folder in the store, ordered by title.
func (s *DB) Folders(ctx context.Context) ([]model.Folder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, parent_id
		FROM folders
		ORDER BY title, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []model.Folder
	for rows.Next() {
		var f model.Folder
		var parentID sql.NullString

		if err := rows.Scan(&f.ID, &f.Title, &parentID); err != nil {
			return nil, err
		}
		if parentID.Valid {
			f.ParentID = &parentID.String
		}
		folders = append(folders, f)
	}

	return folders, rows.Err()
}

// Bookmarks returns every bookmark in the store, ordered by creation
// time with the id as tiebreak. The order is stable across calls so
// duplicate removal always keeps the same survivor.
func (s *DB) Bookmarks(ctx context.Context) ([]model.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, folder_id, created_at
		FROM bookmarks
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookmarks []model.Bookmark
	for rows.Next() {
		var b model.Bookmark
		var folderID sql.NullString
		var createdAt string

		if err := rows.Scan(&b.ID, &b.Title, &b.URL, &folderID, &createdAt); err != nil {
			return nil, err
		}
		if folderID.Valid {
			b.FolderID = &folderID.String
		}
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		bookmarks = append(bookmarks, b)
	}

	return bookmarks, rows.Err()
}

// CreateFolder inserts a folder.
func (s *DB) CreateFolder(ctx context.Context, f model.Folder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO folders (id, title, parent_id) VALUES (?, ?, ?)
	`, f.ID, f.Title, f.ParentID)
	return err
}

// RenameFolder updates a folder's title.
func (s *DB) RenameFolder(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE folders SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// DeleteFolder removes a folder. Children are not cascaded; the caller
// is responsible for only deleting empty folders.
func (s *DB) DeleteFolder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// CreateBookmark inserts a bookmark.
func (s *DB) CreateBookmark(ctx context.Context, b model.Bookmark) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (id, title, url, folder_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.Title, b.URL, b.FolderID, b.CreatedAt.Format(time.RFC3339))
	return err
}

// MoveBookmark relocates a bookmark to another folder. Moving an id
// that was deleted concurrently returns ErrNotFound.
func (s *DB) MoveBookmark(ctx context.Context, id string, folderID *string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE bookmarks SET folder_id = ? WHERE id = ?`, folderID, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// DeleteBookmark removes a bookmark.
func (s *DB) DeleteBookmark(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// HistoryEntry looks up the placement record for an item.
func (s *DB) HistoryEntry(ctx context.Context, itemID string) (movedAt time.Time, category string, ok bool, err error) {
	var movedAtStr string
	var cat sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT moved_at, category FROM history WHERE item_id = ?
	`, itemID).Scan(&movedAtStr, &cat)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, "", false, nil
	}
	if err != nil {
		return time.Time{}, "", false, err
	}
	movedAt, _ = time.Parse(time.RFC3339, movedAtStr)
	return movedAt, cat.String, true, nil
}

// PutHistory records (or overwrites) the placement of an item.
func (s *DB) PutHistory(ctx context.Context, itemID, category string, movedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO history (item_id, moved_at, category)
		VALUES (?, ?, ?)
	`, itemID, movedAt.Format(time.RFC3339), category)
	return err
}

// HistoryIDs returns the set of item ids with a placement record.
func (s *DB) HistoryIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item_id FROM history`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// ClearHistory removes all placement records.
func (s *DB) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	return err
}

// SaveLastReport stores the serialized outcome report of the most
// recent run.
func (s *DB) SaveLastReport(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO meta (key, value) VALUES ('last_report', ?)
	`, string(data))
	return err
}

// LastReport returns the serialized report of the most recent run, or
// nil if no run has completed yet.
func (s *DB) LastReport(ctx context.Context) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'last_report'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// DefaultPath returns the default database path: ~/.config/shelfmark/shelfmark.db
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "shelfmark", "shelfmark.db"), nil
}
