package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lthms/symtree/internal/catalog"
)

// fixed width so that text ordering is chronological
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNoSnapshot is returned when no snapshot matches a lookup.
var ErrNoSnapshot = errors.New("no snapshot")

// Snapshot describes one cached catalog listing.
type Snapshot struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Count     int       `json:"count"`
}

// Store keeps catalog snapshots in SQLite so forests can be rebuilt offline.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the snapshot database at the given path.
func Open(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate snapshot db: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records cats as a new snapshot of source, preserving their order.
func (s *Store) Save(ctx context.Context, source string, cats []catalog.Catalog) (Snapshot, error) {
	snap := Snapshot{
		ID:        uuid.NewString(),
		Source:    source,
		FetchedAt: s.now().UTC(),
		Count:     len(cats),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, source, fetched_at, count) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.Source, snap.FetchedAt.Format(timeLayout), snap.Count,
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_catalogs (snapshot_id, position, name, parent_name, type, body) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("prepare catalog insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range cats {
		body, err := json.Marshal(c)
		if err != nil {
			return Snapshot{}, fmt.Errorf("marshal catalog %q: %w", c.Name(), err)
		}
		if _, err := stmt.ExecContext(ctx, snap.ID, i, c.Name(), c.Parent(), c.Spec.Type, string(body)); err != nil {
			return Snapshot{}, fmt.Errorf("insert catalog %q: %w", c.Name(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("commit: %w", err)
	}
	return snap, nil
}

// Latest returns the newest snapshot of source. An empty source matches any.
func (s *Store) Latest(ctx context.Context, source string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, fetched_at, count FROM snapshots
		 WHERE ? = '' OR source = ?
		 ORDER BY fetched_at DESC, rowid DESC LIMIT 1`,
		source, source,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	return snap, err
}

// List returns up to limit snapshots, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, fetched_at, count FROM snapshots
		 ORDER BY fetched_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// Load returns the catalogs of a snapshot in their original order.
func (s *Store) Load(ctx context.Context, id string) ([]catalog.Catalog, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM snapshots WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup snapshot: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM snapshot_catalogs WHERE snapshot_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query catalogs: %w", err)
	}
	defer rows.Close()

	var out []catalog.Catalog
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan catalog: %w", err)
		}
		var c catalog.Catalog
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalogs: %w", err)
	}
	return out, nil
}

// Prune deletes all but the newest keep snapshots and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stale := `SELECT id FROM snapshots ORDER BY fetched_at DESC, rowid DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshot_catalogs WHERE snapshot_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("delete catalogs: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var snap Snapshot
	var fetchedAt string
	if err := row.Scan(&snap.ID, &snap.Source, &fetchedAt, &snap.Count); err != nil {
		return Snapshot{}, err
	}
	t, err := time.Parse(timeLayout, fetchedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse fetched_at %q: %w", fetchedAt, err)
	}
	snap.FetchedAt = t
	return snap, nil
}
