package opt

import (
	"fmt"
	"time"
)

const (
	KeyBruteForce         = "brute-force"
	KeySimulatedAnnealing = "simulated-annealing"
)

// Options configure an Algorithm built by New. A zero Annealing config
// selects DefaultAnnealConfig.
type Options struct {
	FixStart            bool
	MaxExhaustivePoints int
	Annealing           AnnealConfig
	Tick                time.Duration
	Buffer              int
}

// Names lists the algorithm keys New accepts.
func Names() []string { return []string{KeySimulatedAnnealing, KeyBruteForce} }

// DisplayName returns the name an algorithm key reports, such as
// "Brute Force" for brute-force.
func DisplayName(key string) (string, bool) {
	a, err := New(key, Options{})
	if err != nil {
		return "", false
	}
	return a.Name(), true
}

// New builds a fresh Algorithm for the given key.
func New(name string, o Options) (*Algorithm, error) {
	var s Strategy
	switch name {
	case KeyBruteForce:
		s = &BruteForce{FixStart: o.FixStart, MaxPoints: o.MaxExhaustivePoints}
	case KeySimulatedAnnealing:
		cfg := o.Annealing
		if cfg == (AnnealConfig{}) {
			cfg = DefaultAnnealConfig()
		}
		a, err := NewAnnealing(cfg)
		if err != nil {
			return nil, err
		}
		s = a
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	opts := []Option{WithTick(o.Tick)}
	if o.Buffer > 0 {
		opts = append(opts, WithBuffer(o.Buffer))
	}
	return NewAlgorithm(s, opts...), nil
}
