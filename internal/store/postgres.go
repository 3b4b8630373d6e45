package store

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Postgres struct {
	sqlStore
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{sqlStore{db: db, ph: dollar}}, nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS point_sets (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		points JSONB NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS statistics (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		run_id TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		distance DOUBLE PRECISION NOT NULL,
		runtime_sec DOUBLE PRECISION NOT NULL,
		tour JSONB NOT NULL,
		point_count INTEGER NOT NULL,
		cancelled BOOLEAN NOT NULL,
		iterations BIGINT NOT NULL,
		system_info JSONB NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS statistics_algorithm_seq_idx ON statistics (algorithm, seq)`,
}

// Migrate creates the tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	return p.exec(ctx, postgresSchema)
}
