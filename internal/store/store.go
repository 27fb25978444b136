// Package store keeps a SQLite index of generated regions: where each
// region file lives and the digest of its contents.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/OCharnyshevich/worldgen/pkg/world/region"
)

// ErrNotFound is returned by Lookup when no region matches.
var ErrNotFound = errors.New("region not indexed")

// Entry is one indexed region.
type Entry struct {
	Seed        int64
	Pos         region.Pos
	Dim         int
	Path        string
	Digest      uint64
	Compression string
	RunID       string
	GeneratedAt time.Time
}

// Run is one invocation of a generator.
type Run struct {
	ID        string
	Seed      int64
	StartedAt time.Time
	Config    string
}

// Index is a region index backed by a single SQLite file.
type Index struct {
	db *sql.DB
}

// Open creates or opens the index at path.
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			config TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS regions (
			seed INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			dim INTEGER NOT NULL,
			path TEXT NOT NULL,
			digest INTEGER NOT NULL,
			compression TEXT NOT NULL,
			run_id TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			PRIMARY KEY (seed, x, y, z, dim)
		);`,
		`CREATE INDEX IF NOT EXISTS regions_run ON regions(run_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// StartRun records the start of a generator run.
func (ix *Index) StartRun(ctx context.Context, r Run) error {
	_, err := ix.db.ExecContext(ctx,
		`INSERT INTO runs(id, seed, started_at, config) VALUES(?,?,?,?)`,
		r.ID, r.Seed, r.StartedAt.UTC().Format(time.RFC3339Nano), r.Config)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// Record inserts e, replacing any earlier entry for the same seed,
// position and size.
func (ix *Index) Record(ctx context.Context, e Entry) error {
	_, err := ix.db.ExecContext(ctx,
		`INSERT INTO regions(seed, x, y, z, dim, path, digest, compression, run_id, generated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(seed, x, y, z, dim) DO UPDATE SET
			path=excluded.path,
			digest=excluded.digest,
			compression=excluded.compression,
			run_id=excluded.run_id,
			generated_at=excluded.generated_at`,
		e.Seed, e.Pos.X, e.Pos.Y, e.Pos.Z, e.Dim, e.Path, int64(e.Digest),
		e.Compression, e.RunID, e.GeneratedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Pos, err)
	}
	return nil
}

const entryColumns = `seed, x, y, z, dim, path, digest, compression, run_id, generated_at`

// Lookup returns the entry for a region, or ErrNotFound.
func (ix *Index) Lookup(ctx context.Context, seed int64, pos region.Pos, dim int) (Entry, error) {
	row := ix.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM regions WHERE seed=? AND x=? AND y=? AND z=? AND dim=?`,
		seed, pos.X, pos.Y, pos.Z, dim)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: seed %d %s dim %d", ErrNotFound, seed, pos, dim)
	}
	return e, err
}

// List returns every entry for seed ordered by position.
func (ix *Index) List(ctx context.Context, seed int64) ([]Entry, error) {
	rows, err := ix.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM regions WHERE seed=? ORDER BY x, y, z, dim`, seed)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Runs returns every recorded run, oldest first.
func (ix *Index) Runs(ctx context.Context) ([]Run, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT id, seed, started_at, config FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &r.Seed, &started, &r.Config); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %s start time: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var digest int64
	var generated string
	err := s.Scan(&e.Seed, &e.Pos.X, &e.Pos.Y, &e.Pos.Z, &e.Dim, &e.Path, &digest,
		&e.Compression, &e.RunID, &generated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan region: %w", err)
	}
	e.Digest = uint64(digest)
	if e.GeneratedAt, err = time.Parse(time.RFC3339Nano, generated); err != nil {
		return Entry{}, fmt.Errorf("region %s generation time: %w", e.Pos, err)
	}
	return e, nil
}

// Close closes the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}
