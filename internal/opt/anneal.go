package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"time"
)

// AnnealConfig tunes the simulated annealing schedule.
type AnnealConfig struct {
	InitialTemperature float64 `json:"initialTemperature" yaml:"initial_temperature"`
	MinTemperature     float64 `json:"minTemperature" yaml:"min_temperature"`
	// Alpha is the cooling factor applied once per temperature plateau.
	Alpha float64 `json:"alpha" yaml:"alpha"`
	// SameTemperatureIterations is the plateau length. Zero scales it to the
	// number of points.
	SameTemperatureIterations int   `json:"sameTemperatureIterations" yaml:"same_temperature_iterations"`
	MaxIterations             int   `json:"maxIterations" yaml:"max_iterations"`
	Seed                      int64 `json:"seed,omitempty" yaml:"seed"`
}

func DefaultAnnealConfig() AnnealConfig {
	return AnnealConfig{
		InitialTemperature:        50,
		MinTemperature:            1e-8,
		Alpha:                     0.9,
		SameTemperatureIterations: 10,
		MaxIterations:             1000,
	}
}

func (c AnnealConfig) Validate() error {
	switch {
	case c.InitialTemperature <= 0:
		return fmt.Errorf("%w: initial temperature must be > 0", ErrInvalidConfig)
	case c.MinTemperature <= 0 || c.MinTemperature >= c.InitialTemperature:
		return fmt.Errorf("%w: min temperature must be in (0, initial temperature)", ErrInvalidConfig)
	case c.Alpha <= 0 || c.Alpha >= 1:
		return fmt.Errorf("%w: alpha must be in (0,1)", ErrInvalidConfig)
	case c.SameTemperatureIterations < 0:
		return fmt.Errorf("%w: same temperature iterations must be >= 0", ErrInvalidConfig)
	case c.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations must be > 0", ErrInvalidConfig)
	}
	return nil
}

// Annealing is a simulated annealing search over 2-opt moves. Every accepted
// candidate is reported, including accepted worsenings.
type Annealing struct {
	cfg AnnealConfig
}

func NewAnnealing(cfg AnnealConfig) (*Annealing, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Annealing{cfg: cfg}, nil
}

func (s *Annealing) Name() string { return "Simulated Annealing" }

func (s *Annealing) Config() AnnealConfig { return s.cfg }

func (s *Annealing) Validate([]Point) error { return nil }

func (s *Annealing) Search(ctx context.Context, points []Point, sink *Sink) error {
	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	curr := clonePoints(points)
	fitness := Distance(curr)
	sink.Result(curr, fitness)

	plateau := s.cfg.SameTemperatureIterations
	if plateau <= 0 {
		plateau = len(curr)
	}
	temp := s.cfg.InitialTemperature
	for iter := 0; temp > s.cfg.MinTemperature && iter < s.cfg.MaxIterations; {
		if sink.Cancelled() {
			return ctx.Err()
		}
		cand := twoOptMove(curr, rng)
		candFitness := Distance(cand)
		if accept(fitness, candFitness, temp, rng) {
			switch {
			case candFitness < fitness:
				sink.Metrics.Improvements++
			case candFitness > fitness:
				sink.Metrics.AcceptedWorse++
			}
			curr, fitness = cand, candFitness
			sink.Result(curr, fitness)
		}
		if iter%plateau == 0 {
			temp *= s.cfg.Alpha
		}
		iter++
		sink.Metrics.Iterations = iter
		sink.Progress(iter * 100 / s.cfg.MaxIterations)
	}
	return nil
}

// accept is the Metropolis criterion: improvements and ties always pass,
// worsenings pass with probability exp((f-g)/T).
func accept(f, g, temp float64, rng *rand.Rand) bool {
	return g <= f || math.Exp((f-g)/temp) > rng.Float64()
}

// twoOptMove reverses tour[start:end) of a copy for two distinct random
// indices. The input is left untouched.
func twoOptMove(tour []Point, rng *rand.Rand) []Point {
	out := clonePoints(tour)
	n := len(out)
	if n < 2 {
		return out
	}
	a := rng.Intn(n)
	b := rng.Intn(n)
	for a == b {
		b = rng.Intn(n)
	}
	slices.Reverse(out[min(a, b):max(a, b)])
	return out
}
