// Package store keeps the song database: every managed song with its content
// hash, plus playlist membership.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a song is not in the database.
var ErrNotFound = errors.New("song not found")

// Song is a database record.
type Song struct {
	Path    string // slash-separated, relative to the library root
	Hash    string // hex blake3 digest
	Size    int64
	AddedAt time.Time
}

// Store is the SQLite song database.
type Store struct {
	db   *sql.DB
	path string
}

// migrations are applied in order; user_version records how many ran.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS songs (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		added_at INTEGER NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS playlist_songs (
		playlist TEXT NOT NULL,
		position INTEGER NOT NULL,
		path TEXT NOT NULL REFERENCES songs(path) ON UPDATE CASCADE ON DELETE CASCADE,
		PRIMARY KEY (playlist, position)
	);
	CREATE INDEX IF NOT EXISTS idx_playlist_songs_path ON playlist_songs(path);
	`,
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the pragmas and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", i+1, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Songs returns all songs under prefix (everything when empty), ordered by path.
func (s *Store) Songs(ctx context.Context, prefix string) ([]Song, error) {
	query := `SELECT path, hash, size, added_at FROM songs`
	var args []any
	if prefix != "" {
		// '0' sorts right after '/', bounding every path under prefix/.
		query += ` WHERE path = ? OR (path > ? AND path < ?)`
		args = append(args, prefix, prefix+"/", prefix+"0")
	}
	query += ` ORDER BY path`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSong(row scanner) (Song, error) {
	var (
		song    Song
		addedAt int64
	)
	if err := row.Scan(&song.Path, &song.Hash, &song.Size, &addedAt); err != nil {
		return Song{}, err
	}
	song.AddedAt = time.Unix(addedAt, 0)
	return song, nil
}

// Song returns the record for path.
func (s *Store) Song(ctx context.Context, path string) (Song, error) {
	row := s.db.QueryRowContext(ctx, `SELECT path, hash, size, added_at FROM songs WHERE path = ?`, path)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Song{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return song, err
}

// Upsert inserts song or updates its hash and size. AddedAt is kept for
// existing rows and defaults to now for new ones.
func (s *Store) Upsert(ctx context.Context, song Song) error {
	if song.AddedAt.IsZero() {
		song.AddedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (path, hash, size, added_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, size = excluded.size
	`, song.Path, song.Hash, song.Size, song.AddedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", song.Path, err)
	}
	return nil
}

// Delete removes the song and its playlist entries.
func (s *Store) Delete(ctx context.Context, path string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM songs WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return nil
}

// Move renames a song, carrying its playlist entries along.
func (s *Store) Move(ctx context.Context, from, to string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs WHERE path = ?`, to).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("cannot move %s: %s is already in the database", from, to)
	}

	res, err := tx.ExecContext(ctx, `UPDATE songs SET path = ? WHERE path = ?`, to, from)
	if err != nil {
		return fmt.Errorf("failed to move %s: %w", from, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	}
	// ON UPDATE CASCADE covers playlist_songs; rewrite explicitly for databases
	// created without foreign keys enabled.
	if _, err := tx.ExecContext(ctx, `UPDATE playlist_songs SET path = ? WHERE path = ?`, to, from); err != nil {
		return fmt.Errorf("failed to move playlist entries of %s: %w", from, err)
	}
	return tx.Commit()
}

// Playlists returns every playlist with its songs in position order.
func (s *Store) Playlists(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT playlist, path FROM playlist_songs ORDER BY playlist, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := make(map[string][]string)
	for rows.Next() {
		var name, path string
		if err := rows.Scan(&name, &path); err != nil {
			return nil, err
		}
		playlists[name] = append(playlists[name], path)
	}
	return playlists, rows.Err()
}

// AddToPlaylist appends songs to the end of playlist.
func (s *Store) AddToPlaylist(ctx context.Context, playlist string, paths ...string) error {
	playlist = strings.TrimSpace(playlist)
	if playlist == "" {
		return errors.New("playlist name is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM playlist_songs WHERE playlist = ?`, playlist,
	).Scan(&next)
	if err != nil {
		return err
	}

	for i, p := range paths {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO playlist_songs (playlist, position, path) VALUES (?, ?, ?)`, playlist, next+i, p,
		); err != nil {
			return fmt.Errorf("failed to add %s to %s: %w", p, playlist, err)
		}
	}
	return tx.Commit()
}
