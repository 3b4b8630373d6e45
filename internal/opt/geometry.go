package opt

import "math"

// Point is a city on the plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Edge connects two consecutive cities of a tour.
type Edge struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// Len returns the length of the edge.
func (e Edge) Len() float64 { return e.Start.Dist(e.End) }

// Distance returns the cyclic length of tour. The closing edge back to the
// first point is only counted for tours of two or more points.
func Distance(tour []Point) float64 {
	if len(tour) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(tour); i++ {
		total += tour[i-1].Dist(tour[i])
	}
	return total + tour[len(tour)-1].Dist(tour[0])
}

// Edges turns a tour into its edge list, closing edge included.
func Edges(tour []Point) []Edge {
	if len(tour) < 2 {
		return nil
	}
	out := make([]Edge, 0, len(tour))
	for i := 1; i < len(tour); i++ {
		out = append(out, Edge{Start: tour[i-1], End: tour[i]})
	}
	return append(out, Edge{Start: tour[len(tour)-1], End: tour[0]})
}

// EdgeDistance sums the lengths of a pre-built edge list.
func EdgeDistance(edges []Edge) float64 {
	total := 0.0
	for _, e := range edges {
		total += e.Len()
	}
	return total
}

// clonePoints returns an independent copy of pts.
func clonePoints(pts []Point) []Point {
	return append([]Point(nil), pts...)
}
