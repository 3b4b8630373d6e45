package opt

import (
	"math"
	"slices"
	"testing"
)

func square() []Point {
	return []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
}

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestDistanceDegenerate(t *testing.T) {
	if d := Distance(nil); d != 0 {
		t.Fatalf("empty tour: %v", d)
	}
	if d := Distance([]Point{{3, 4}}); d != 0 {
		t.Fatalf("single point: %v", d)
	}
	// two points: there and back
	if d := Distance([]Point{{0, 0}, {3, 4}}); !near(d, 10, 1e-12) {
		t.Fatalf("two points: %v", d)
	}
}

func TestDistanceMatchesEdgeSum(t *testing.T) {
	tour := []Point{{0, 0}, {4, 0}, {4, 3}, {1, 5}, {-2, 2}}
	want := 0.0
	for i := 1; i < len(tour); i++ {
		want += math.Hypot(tour[i].X-tour[i-1].X, tour[i].Y-tour[i-1].Y)
	}
	want += math.Hypot(tour[0].X-tour[4].X, tour[0].Y-tour[4].Y)

	if d := Distance(tour); !near(d, want, 1e-12) {
		t.Fatalf("Distance = %v, want %v", d, want)
	}
	if d := EdgeDistance(Edges(tour)); !near(d, want, 1e-12) {
		t.Fatalf("EdgeDistance = %v, want %v", d, want)
	}
}

func TestDistanceRotationAndReversal(t *testing.T) {
	tour := []Point{{0, 0}, {4, 0}, {4, 3}, {1, 5}, {-2, 2}, {-1, -3}}
	base := Distance(tour)
	for r := 1; r < len(tour); r++ {
		rot := append(slices.Clone(tour[r:]), tour[:r]...)
		if d := Distance(rot); !near(d, base, 1e-9) {
			t.Fatalf("rotation %d: %v, want %v", r, d, base)
		}
	}
	rev := slices.Clone(tour)
	slices.Reverse(rev)
	if d := Distance(rev); !near(d, base, 1e-9) {
		t.Fatalf("reversal: %v, want %v", d, base)
	}
}

func TestEdges(t *testing.T) {
	if e := Edges([]Point{{1, 1}}); e != nil {
		t.Fatalf("single point edges: %v", e)
	}

	edges := Edges(square())
	if len(edges) != 4 {
		t.Fatalf("got %d edges", len(edges))
	}
	if want := (Edge{Start: Point{0, 1}, End: Point{0, 0}}); edges[3] != want {
		t.Fatalf("closing edge %v, want %v", edges[3], want)
	}
	if d := EdgeDistance(edges); !near(d, 4, 1e-12) {
		t.Fatalf("EdgeDistance = %v", d)
	}
}
