package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tourlab/internal/model"
)

// sqlStore holds the queries shared by the Postgres and SQLite backends.
// Rows are paged by their seq column; cursors are the last seq seen.
type sqlStore struct {
	db *sql.DB
	// ph renders the n-th (1-based) bind placeholder.
	ph func(n int) string
}

func dollar(n int) string { return "$" + strconv.Itoa(n) }

func question(int) string { return "?" }

func (s *sqlStore) SavePointSet(ctx context.Context, in model.PointSetIn) (model.PointSet, error) {
	ps := model.PointSet{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Points:    slices.Clone(in.Points),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	pts, err := json.Marshal(ps.Points)
	if err != nil {
		return model.PointSet{}, err
	}
	q := fmt.Sprintf(`INSERT INTO point_sets (id, name, points, created_at) VALUES (%s,%s,%s,%s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4))
	if _, err := s.db.ExecContext(ctx, q, ps.ID, ps.Name, string(pts), ps.CreatedAt.UnixMilli()); err != nil {
		return model.PointSet{}, fmt.Errorf("insert point set: %w", err)
	}
	return ps, nil
}

func (s *sqlStore) GetPointSet(ctx context.Context, id string) (model.PointSet, error) {
	q := fmt.Sprintf(`SELECT seq, id, name, points, created_at FROM point_sets WHERE id=%s`, s.ph(1))
	ps, _, err := scanPointSet(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PointSet{}, ErrNotFound
	}
	return ps, err
}

func (s *sqlStore) ListPointSets(ctx context.Context, cursor string, limit int) ([]model.PointSet, string, error) {
	after, err := parseCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	limit = clampLimit(limit)
	q := fmt.Sprintf(`SELECT seq, id, name, points, created_at FROM point_sets WHERE seq > %s ORDER BY seq LIMIT %s`, s.ph(1), s.ph(2))
	rows, err := s.db.QueryContext(ctx, q, after, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.PointSet{}
	next := ""
	var last int64
	for rows.Next() {
		if len(out) == limit {
			next = strconv.FormatInt(last, 10)
			break
		}
		ps, seq, err := scanPointSet(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, ps)
		last = seq
	}
	return out, next, rows.Err()
}

func (s *sqlStore) SaveStatistic(ctx context.Context, st model.Statistic) (model.Statistic, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	st.CreatedAt = st.CreatedAt.Truncate(time.Millisecond)
	tour, err := json.Marshal(st.Tour)
	if err != nil {
		return model.Statistic{}, err
	}
	sys, err := json.Marshal(st.System)
	if err != nil {
		return model.Statistic{}, err
	}
	q := fmt.Sprintf(`INSERT INTO statistics (id, run_id, algorithm, distance, runtime_sec, tour, point_count, cancelled, iterations, system_info, created_at) VALUES (%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9), s.ph(10), s.ph(11))
	_, err = s.db.ExecContext(ctx, q, st.ID, st.RunID, st.Algorithm, st.Distance, st.RuntimeSec,
		string(tour), st.PointCount, st.Cancelled, st.Iterations, string(sys), st.CreatedAt.UnixMilli())
	if err != nil {
		return model.Statistic{}, fmt.Errorf("insert statistic: %w", err)
	}
	return st, nil
}

func (s *sqlStore) ListStatistics(ctx context.Context, algorithm, cursor string, limit int) ([]model.Statistic, string, error) {
	after, err := parseCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	limit = clampLimit(limit)
	cols := `seq, id, run_id, algorithm, distance, runtime_sec, tour, point_count, cancelled, iterations, system_info, created_at`
	var rows *sql.Rows
	if algorithm != "" {
		q := fmt.Sprintf(`SELECT %s FROM statistics WHERE algorithm=%s AND seq > %s ORDER BY seq LIMIT %s`, cols, s.ph(1), s.ph(2), s.ph(3))
		rows, err = s.db.QueryContext(ctx, q, algorithm, after, limit+1)
	} else {
		q := fmt.Sprintf(`SELECT %s FROM statistics WHERE seq > %s ORDER BY seq LIMIT %s`, cols, s.ph(1), s.ph(2))
		rows, err = s.db.QueryContext(ctx, q, after, limit+1)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Statistic{}
	next := ""
	var last int64
	for rows.Next() {
		if len(out) == limit {
			next = strconv.FormatInt(last, 10)
			break
		}
		var (
			st        model.Statistic
			seq       int64
			tour, sys []byte
			created   int64
		)
		if err := rows.Scan(&seq, &st.ID, &st.RunID, &st.Algorithm, &st.Distance, &st.RuntimeSec,
			&tour, &st.PointCount, &st.Cancelled, &st.Iterations, &sys, &created); err != nil {
			return nil, "", err
		}
		if err := json.Unmarshal(tour, &st.Tour); err != nil {
			return nil, "", fmt.Errorf("decode tour: %w", err)
		}
		if err := json.Unmarshal(sys, &st.System); err != nil {
			return nil, "", fmt.Errorf("decode system: %w", err)
		}
		st.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, st)
		last = seq
	}
	return out, next, rows.Err()
}

func (s *sqlStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqlStore) Close() error { return s.db.Close() }

func (s *sqlStore) exec(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPointSet(r rowScanner) (model.PointSet, int64, error) {
	var (
		ps      model.PointSet
		seq     int64
		pts     []byte
		created int64
	)
	if err := r.Scan(&seq, &ps.ID, &ps.Name, &pts, &created); err != nil {
		return model.PointSet{}, 0, err
	}
	if err := json.Unmarshal(pts, &ps.Points); err != nil {
		return model.PointSet{}, 0, fmt.Errorf("decode points: %w", err)
	}
	ps.CreatedAt = time.UnixMilli(created).UTC()
	return ps, seq, nil
}

func parseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	return n, nil
}
