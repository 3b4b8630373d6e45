package opt

import (
	"context"
	"fmt"
)

// MaxExhaustivePoints is the largest input whose factorial fits in an int.
const MaxExhaustivePoints = 20

// BruteForce examines every ordering of the points and keeps the shortest.
// It only reports strict improvements, so its result stream is strictly
// decreasing in distance.
type BruteForce struct {
	// FixStart pins the first point, skipping orderings that are rotations
	// of one another. Progress is then measured against (n-1)!.
	FixStart bool
	// MaxPoints lowers the accepted input size below MaxExhaustivePoints.
	MaxPoints int
}

func (b *BruteForce) Name() string { return "Brute Force" }

func (b *BruteForce) Validate(points []Point) error {
	limit := b.MaxPoints
	if limit <= 0 || limit > MaxExhaustivePoints {
		limit = MaxExhaustivePoints
	}
	if len(points) > limit {
		return fmt.Errorf("%w: brute force accepts at most %d points, got %d", ErrTooManyPoints, limit, len(points))
	}
	return nil
}

func (b *BruteForce) Search(ctx context.Context, points []Point, sink *Sink) error {
	bestDist := Distance(points)
	sink.Baseline(points, bestDist)

	var head *Point
	rest := points
	if b.FixStart {
		head, rest = &points[0], points[1:]
	}
	total := float64(Factorial(len(rest)))

	examined := 0
	for perm := range Permute(rest, len(rest)) {
		if sink.Cancelled() {
			return ctx.Err()
		}
		cand := perm
		if head != nil {
			cand = append([]Point{*head}, perm...)
		}
		if d := Distance(cand); d < bestDist {
			bestDist = d
			sink.Metrics.Improvements++
			sink.Result(cand, d)
		}
		examined++
		sink.Metrics.Iterations = examined
		sink.Progress(int(float64(examined) * 100 / total))
	}
	return nil
}
