// Package postgres implements storage.Store on Postgres using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"itvetl/internal/domain"
	"itvetl/internal/storage"
)

// Config holds Postgres connection settings.
type Config struct {
	DSN string // connection string for pgxpool
}

const dropTables = `DROP TABLE IF EXISTS station, locality, province CASCADE`

var schema = []string{
	`CREATE TABLE IF NOT EXISTS province (
	code BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS locality (
	code BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL,
	province_code BIGINT NOT NULL REFERENCES province(code)
)`,
	`CREATE TABLE IF NOT EXISTS station (
	code BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	address TEXT,
	postal_code CHAR(5),
	longitude DOUBLE PRECISION,
	latitude DOUBLE PRECISION,
	description TEXT,
	schedule TEXT,
	contact TEXT,
	url TEXT,
	locality_code BIGINT REFERENCES locality(code),
	UNIQUE (name, type)
)`,
}

// Repository is a Postgres-backed storage.Store.
type Repository struct {
	pool     *pgxpool.Pool
	location string
}

// NewRepository constructs a Repository and returns a Close function for
// cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	location, err := Location(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{pool: pool, location: location}, pool.Close, nil
}

// Location reduces dsn to host:port/database so that differently spelled
// DSNs for one database share a load lock.
func Location(dsn string) (string, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return "", fmt.Errorf("postgres: parse DSN: %w", err)
	}
	return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database), nil
}

// Location implements storage.Store.
func (r *Repository) Location() string { return r.location }

// Rebuild drops the three tables and recreates them.
func (r *Repository) Rebuild(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, dropTables); err != nil {
		return fmt.Errorf("postgres: drop: %w", err)
	}
	for _, stmt := range schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: create schema: %w", err)
		}
	}
	return nil
}

// Begin implements storage.Store.
func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin tx: %w", err)
	}
	return &loadTx{tx: tx}, nil
}

type loadTx struct {
	tx pgx.Tx
}

func (t *loadTx) returning(ctx context.Context, query string, args ...any) (int64, error) {
	var code int64
	err := t.tx.QueryRow(ctx, query, args...).Scan(&code)
	return code, err
}

func (t *loadTx) InsertProvince(ctx context.Context, name string) (int64, error) {
	code, err := t.returning(ctx, "INSERT INTO province (name) VALUES ($1) RETURNING code", name)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert province: %w", err)
	}
	return code, nil
}

func (t *loadTx) InsertLocality(ctx context.Context, name string, province int64) (int64, error) {
	code, err := t.returning(ctx,
		"INSERT INTO locality (name, province_code) VALUES ($1, $2) RETURNING code", name, province)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert locality: %w", err)
	}
	return code, nil
}

const insertStation = `INSERT INTO station
	(name, type, address, postal_code, longitude, latitude, description, schedule, contact, url, locality_code)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING code`

func (t *loadTx) InsertStation(ctx context.Context, st domain.Station, locality *int64) (int64, error) {
	code, err := t.returning(ctx, insertStation,
		st.Name, string(st.Type), st.Address, st.PostalCode, st.Longitude, st.Latitude,
		st.Description, st.Schedule, st.Contact, st.URL, locality)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert station: %w", err)
	}
	return code, nil
}

func (t *loadTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (t *loadTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("postgres: rollback: %w", err)
	}
	return nil
}
