package store

import (
	"context"
	"errors"
	"strings"

	"tourlab/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Point sets
	SavePointSet(ctx context.Context, in model.PointSetIn) (model.PointSet, error)
	GetPointSet(ctx context.Context, id string) (model.PointSet, error)
	ListPointSets(ctx context.Context, cursor string, limit int) ([]model.PointSet, string, error)

	// Statistics, one per finished run
	SaveStatistic(ctx context.Context, st model.Statistic) (model.Statistic, error)
	ListStatistics(ctx context.Context, algorithm, cursor string, limit int) ([]model.Statistic, string, error)

	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrNotFound      = errors.New("not found")
	// ErrInvalidCursor marks a list cursor this store never handed out.
	ErrInvalidCursor = errors.New("invalid cursor")
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

// Open picks a backend: Postgres when databaseURL is set, SQLite when
// sqlitePath is set, memory otherwise.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	switch {
	case strings.TrimSpace(databaseURL) != "":
		p, err := NewPostgres(databaseURL)
		if err != nil {
			return nil, err
		}
		if err := p.Migrate(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	case strings.TrimSpace(sqlitePath) != "":
		return OpenSQLite(sqlitePath)
	default:
		return NewMemory(), nil
	}
}
