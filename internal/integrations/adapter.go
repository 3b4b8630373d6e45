package integrations

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"tourlab/internal/opt"
)

// PointSource defines the minimal interface for anything that supplies the
// points of a tour search.
type PointSource interface {
	Name() string
	Load(ctx context.Context) ([]opt.Point, error)
}

// PointSink stores a point sequence, typically a finished tour.
type PointSink interface {
	Save(ctx context.Context, pts []opt.Point) error
}

// RandomSource scatters N distinct points over a Width x Height field with
// integer coordinates. Seed 0 seeds from the clock.
type RandomSource struct {
	N      int
	Seed   int64
	Width  int
	Height int
}

func (s RandomSource) Name() string { return "random" }

func (s RandomSource) Load(ctx context.Context) ([]opt.Point, error) {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = 800
	}
	if h <= 0 {
		h = 600
	}
	if s.N < 0 || s.N > w*h {
		return nil, errors.New("random: point count does not fit the field")
	}
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	seen := make(map[opt.Point]struct{}, s.N)
	pts := make([]opt.Point, 0, s.N)
	for len(pts) < s.N {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := opt.Point{X: float64(rng.Intn(w)), Y: float64(rng.Intn(h))}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		pts = append(pts, p)
	}
	return pts, nil
}
