package api

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"tourlab/internal/model"
	"tourlab/internal/opt"
)

var errInvalidRequest = errors.New("invalid request")

func validateRunRequest(req *model.RunRequest) error {
	if req.Algorithm == "" {
		req.Algorithm = opt.KeySimulatedAnnealing
	}
	if !slices.Contains(opt.Names(), req.Algorithm) {
		return fmt.Errorf("%w: %q (allowed: %v)", opt.ErrUnknownAlgorithm, req.Algorithm, opt.Names())
	}
	if req.PointSetID != "" && len(req.Points) > 0 {
		return fmt.Errorf("%w: give either points or pointSetId", errInvalidRequest)
	}
	if req.Annealing != nil {
		if err := req.Annealing.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// validatePoints rejects inputs no tour can be built from: fewer than two
// points, more than maxPoints, non-finite coordinates and duplicates.
func validatePoints(pts []opt.Point, maxPoints int) error {
	if len(pts) < 2 {
		return opt.ErrTooFewPoints
	}
	if len(pts) > maxPoints {
		return fmt.Errorf("%w: %d points exceeds the limit of %d", opt.ErrTooManyPoints, len(pts), maxPoints)
	}
	seen := make(map[opt.Point]int, len(pts))
	for i, p := range pts {
		if !finite(p.X) || !finite(p.Y) {
			return fmt.Errorf("%w: point %d is not finite", errInvalidRequest, i)
		}
		if j, dup := seen[p]; dup {
			return fmt.Errorf("%w: point %d duplicates point %d", errInvalidRequest, i, j)
		}
		seen[p] = i
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
