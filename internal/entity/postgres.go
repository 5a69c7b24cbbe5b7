package entity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the SQL DDL for the game_entities table. Execute it via
// [PostgresSource.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS game_entities (
    kind       TEXT NOT NULL,
    name       TEXT NOT NULL,
    data       JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (kind, name)
);
`

// DB is the database interface used by [PostgresSource]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSource is a [Source] backed by PostgreSQL. Each entity is one row
// holding its JSON form.
type PostgresSource struct {
	db DB
}

var _ Source = (*PostgresSource)(nil)

// NewPostgresSource returns a source reading from db. The caller is
// responsible for calling [PostgresSource.Migrate] first.
func NewPostgresSource(db DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// OpenPostgres connects a pool to dsn, migrates the schema and returns the
// source together with the pool so the caller can close it.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSource, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("entity: postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("entity: postgres: ping: %w", err)
	}
	src := NewPostgresSource(pool)
	if err := src.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return src, pool, nil
}

// Migrate executes the [Schema] DDL.
func (p *PostgresSource) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("entity: postgres: migrate: %w", err)
	}
	return nil
}

// Load reads every row and returns the sealed snapshot. An empty table
// yields [ErrNoSnapshot].
func (p *PostgresSource) Load(ctx context.Context) (*Snapshot, error) {
	const query = `SELECT kind, data FROM game_entities ORDER BY kind, name`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("entity: postgres: load: %w", err)
	}
	defer rows.Close()

	var snap Snapshot
	n := 0
	for rows.Next() {
		var kind string
		var data []byte
		if err := rows.Scan(&kind, &data); err != nil {
			return nil, fmt.Errorf("entity: postgres: scan: %w", err)
		}
		if err := snap.appendJSON(Kind(kind), data); err != nil {
			return nil, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("entity: postgres: rows: %w", err)
	}
	if n == 0 {
		return nil, ErrNoSnapshot
	}
	if err := snap.Seal(); err != nil {
		return nil, fmt.Errorf("entity: postgres: validate: %w", err)
	}
	return &snap, nil
}

// Save upserts every entity of snap and removes rows that are no longer part
// of it.
func (p *PostgresSource) Save(ctx context.Context, snap *Snapshot) error {
	if err := Validate(snap); err != nil {
		return err
	}

	const upsert = `
		INSERT INTO game_entities (kind, name, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

	keep := make([]string, 0, snap.Len())
	for _, e := range snap.All() {
		kind, _ := KindOf(e.Category())
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("entity: postgres: marshal %s: %w", kind, err)
		}
		name := e.Describe().Title
		if _, err := p.db.Exec(ctx, upsert, string(kind), name, data); err != nil {
			return fmt.Errorf("entity: postgres: save %s %q: %w", kind, name, err)
		}
		keep = append(keep, string(kind)+":"+name)
	}

	const prune = `DELETE FROM game_entities WHERE NOT (kind || ':' || name = ANY($1))`
	if _, err := p.db.Exec(ctx, prune, keep); err != nil {
		return fmt.Errorf("entity: postgres: prune: %w", err)
	}
	return nil
}

func (s *Snapshot) appendJSON(kind Kind, data []byte) error {
	var err error
	switch kind {
	case KindAdventurer:
		var a Adventurer
		if err = json.Unmarshal(data, &a); err == nil {
			s.Adventurers = append(s.Adventurers, &a)
		}
	case KindDragon:
		var d Dragon
		if err = json.Unmarshal(data, &d); err == nil {
			s.Dragons = append(s.Dragons, &d)
		}
	case KindWyrmprint:
		var w Wyrmprint
		if err = json.Unmarshal(data, &w); err == nil {
			s.Wyrmprints = append(s.Wyrmprints, &w)
		}
	case KindWeapon:
		var w Weapon
		if err = json.Unmarshal(data, &w); err == nil {
			s.Weapons = append(s.Weapons, &w)
		}
	default:
		return fmt.Errorf("entity: unknown kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("entity: unmarshal %s: %w", kind, err)
	}
	return nil
}
