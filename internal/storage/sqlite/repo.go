// Package sqlite implements storage.Store on a SQLite file using database/sql
// and the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"itvetl/internal/domain"
	"itvetl/internal/storage"
)

// Config holds the SQLite connection settings.
type Config struct {
	// DSN is a file path or a "file:" URI, for example "itv.db" or
	// "file:itv.db?_pragma=busy_timeout(5000)".
	DSN string
}

var dropStatements = []string{
	"DROP TABLE IF EXISTS station",
	"DROP TABLE IF EXISTS locality",
	"DROP TABLE IF EXISTS province",
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS province (
	code INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS locality (
	code INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	province_code INTEGER NOT NULL REFERENCES province(code)
)`,
	`CREATE TABLE IF NOT EXISTS station (
	code INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	address TEXT,
	postal_code TEXT,
	longitude REAL,
	latitude REAL,
	description TEXT,
	schedule TEXT,
	contact TEXT,
	url TEXT,
	locality_code INTEGER REFERENCES locality(code),
	UNIQUE (name, type)
)`,
}

// Repository is a SQLite-backed storage.Store.
type Repository struct {
	db   *sql.DB
	cfg  Config
	path string
}

// NewRepository opens the database named by cfg.DSN and returns a Repository
// plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := open(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	r := newFromDB(db, cfg)
	return r, func() { _ = r.db.Close() }, nil
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection keeps in-memory databases visible to every statement.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")
	return db, nil
}

func newFromDB(db *sql.DB, cfg Config) *Repository {
	return &Repository{db: db, cfg: cfg, path: filePath(cfg.DSN)}
}

// filePath extracts the database file from dsn, or "" for in-memory
// databases.
func filePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	query := ""
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p, query = p[:i], p[i+1:]
	}
	if p == "" || p == ":memory:" || strings.Contains(query, "mode=memory") {
		return ""
	}
	return p
}

// Location implements storage.Store.
func (r *Repository) Location() string {
	if r.path != "" {
		return r.path
	}
	return r.cfg.DSN
}

// Rebuild deletes the database file together with its -wal, -shm and
// -journal sidecars and reopens it. In-memory databases have their tables
// dropped instead.
func (r *Repository) Rebuild(ctx context.Context) error {
	if r.path == "" {
		for _, stmt := range dropStatements {
			if _, err := r.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("sqlite: drop: %w", err)
			}
		}
	} else {
		if err := r.db.Close(); err != nil {
			return fmt.Errorf("sqlite: close before rebuild: %w", err)
		}
		for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
			if err := os.Remove(r.path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("sqlite: remove %s: %w", r.path+suffix, err)
			}
		}
		db, err := open(ctx, r.cfg.DSN)
		if err != nil {
			return err
		}
		r.db = db
	}
	return r.createSchema(ctx)
}

func (r *Repository) createSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: create schema: %w", err)
		}
	}
	return nil
}

// Begin implements storage.Store.
func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	return &loadTx{tx: tx}, nil
}

type loadTx struct {
	tx *sql.Tx
}

func (t *loadTx) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *loadTx) InsertProvince(ctx context.Context, name string) (int64, error) {
	id, err := t.insert(ctx, "INSERT INTO province (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert province: %w", err)
	}
	return id, nil
}

func (t *loadTx) InsertLocality(ctx context.Context, name string, province int64) (int64, error) {
	id, err := t.insert(ctx, "INSERT INTO locality (name, province_code) VALUES (?, ?)", name, province)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert locality: %w", err)
	}
	return id, nil
}

const insertStation = `INSERT INTO station
	(name, type, address, postal_code, longitude, latitude, description, schedule, contact, url, locality_code)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (t *loadTx) InsertStation(ctx context.Context, st domain.Station, locality *int64) (int64, error) {
	id, err := t.insert(ctx, insertStation,
		st.Name, string(st.Type), nullable(st.Address), nullable(st.PostalCode),
		nullable(st.Longitude), nullable(st.Latitude), st.Description, st.Schedule,
		nullable(st.Contact), nullable(st.URL), nullable(locality))
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert station: %w", err)
	}
	return id, nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func (t *loadTx) Commit(context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (t *loadTx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("sqlite: rollback: %w", err)
	}
	return nil
}
