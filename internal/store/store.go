// Package store keeps a local sqlite snapshot of the catalog listing, written
// by the sync command and read back for offline listing and search.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snapetech/funimationlater/internal/catalog"
)

const schema = `
CREATE TABLE IF NOT EXISTS shows (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	thumbnail TEXT NOT NULL DEFAULT '',
	target    TEXT NOT NULL DEFAULT '',
	path      TEXT NOT NULL DEFAULT '',
	params    TEXT NOT NULL DEFAULT '',
	synced_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS shows_title ON shows(title COLLATE NOCASE);
`

// Record is one stored show: its identity plus the pointer to its details.
type Record struct {
	ID        string
	Title     string
	Thumbnail string
	Pointer   catalog.Pointer
	SyncedAt  time.Time
}

// FromShow converts a listed show into a Record stamped with now.
func FromShow(s catalog.Show, now time.Time) Record {
	p, _ := s.Pointer()
	return Record{
		ID:        s.ID,
		Title:     s.Title,
		Thumbnail: s.Thumbnail,
		Pointer:   catalog.Pointer{Target: p.Target, Path: p.Path, Params: p.Params},
		SyncedAt:  now,
	}
}

// Show rebuilds the catalog Show so its details can be fetched through tr.
func (r Record) Show(tr catalog.Transport, platform string) catalog.Show {
	return catalog.RestoreShow(tr, r.ID, r.Title, r.Thumbnail, r.Pointer, platform)
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Upsert writes recs in one transaction. Records without an ID are skipped;
// the number written is returned.
func (s *Store) Upsert(ctx context.Context, recs []Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO shows (id, title, thumbnail, target, path, params, synced_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	thumbnail = excluded.thumbnail,
	target = excluded.target,
	path = excluded.path,
	params = excluded.params,
	synced_at = excluded.synced_at`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	n := 0
	for _, r := range recs {
		if r.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Title, r.Thumbnail,
			r.Pointer.Target, r.Pointer.Path, r.Pointer.Params, r.SyncedAt.Unix()); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", r.ID, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// List returns every stored show ordered by title.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	return s.query(ctx, `SELECT id, title, thumbnail, target, path, params, synced_at
FROM shows ORDER BY title COLLATE NOCASE, id`)
}

// Search returns stored shows whose title contains q, case-insensitively.
func (s *Store) Search(ctx context.Context, q string) ([]Record, error) {
	like := "%" + escapeLike(q) + "%"
	return s.query(ctx, `SELECT id, title, thumbnail, target, path, params, synced_at
FROM shows WHERE title LIKE ? ESCAPE '\' ORDER BY title COLLATE NOCASE, id`, like)
}

// Count returns the number of stored shows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shows").Scan(&n)
	return n, err
}

// PruneBefore deletes shows not seen by a sync since t.
func (s *Store) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM shows WHERE synced_at < ?", t.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var r Record
		var synced int64
		if err := rows.Scan(&r.ID, &r.Title, &r.Thumbnail,
			&r.Pointer.Target, &r.Pointer.Path, &r.Pointer.Params, &synced); err != nil {
			return nil, err
		}
		r.SyncedAt = time.Unix(synced, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
