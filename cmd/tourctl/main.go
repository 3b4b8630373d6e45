// Command tourctl runs one tour search in the terminal and shows its
// progress live.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tourlab/internal/config"
	"tourlab/internal/integrations"
	"tourlab/internal/integrations/csvfile"
	"tourlab/internal/logging"
	"tourlab/internal/opt"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("TOURLAB_CONFIG"), "path to a YAML config file")
		algorithm  = flag.String("algorithm", opt.KeySimulatedAnnealing, "algorithm key: simulated-annealing or brute-force")
		file       = flag.String("file", "", "CSV file of x,y points")
		random     = flag.Int("random", 0, "generate this many random points instead of reading -file")
		seed       = flag.Int64("seed", 0, "seed for -random and annealing (0 means time based)")
		fixStart   = flag.Bool("fix-start", false, "brute force: keep the first point in place")
		out        = flag.String("out", "", "write the final tour as CSV to this path")
	)
	flag.Parse()
	_ = logging.Init("info", "text", os.Stderr)

	if err := run(*configPath, *algorithm, *file, *random, *seed, *fixStart, *out); err != nil {
		logging.Fatal("tourctl", "err", err)
	}
}

func run(configPath, algorithm, file string, random int, seed int64, fixStart bool, out string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return err
	}

	var src integrations.PointSource
	switch {
	case random > 0:
		src = integrations.RandomSource{N: random, Seed: seed}
	case file != "":
		src = csvfile.File{Path: file}
	default:
		return fmt.Errorf("give -file or -random")
	}
	ctx := context.Background()
	pts, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load points from %s: %w", src.Name(), err)
	}

	annealing := cfg.Annealing
	if seed != 0 {
		annealing.Seed = seed
	}
	alg, err := opt.New(algorithm, opt.Options{
		FixStart:            fixStart,
		MaxExhaustivePoints: cfg.MaxExhaustivePoints,
		Annealing:           annealing,
		Tick:                cfg.Tick,
	})
	if err != nil {
		return err
	}
	events, err := alg.Run(ctx, pts)
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(newModel(alg, events, alg.Name(), len(pts))).Run()
	if err != nil {
		alg.Stop()
		for range events {
		}
		return err
	}
	m := final.(model)
	if m.summary == nil {
		return nil
	}
	logging.Info("run finished", "algorithm", m.summary.Algorithm, "distance", m.summary.Distance,
		"runtime", m.summary.Runtime, "cancelled", m.summary.Cancelled, "iterations", m.summary.Metrics.Iterations)
	if m.summary.Err != nil {
		return m.summary.Err
	}
	if out != "" {
		var sink integrations.PointSink = csvfile.File{Path: out}
		if err := sink.Save(ctx, m.summary.Tour); err != nil {
			return err
		}
		logging.Info("tour written", "path", out, "points", len(m.summary.Tour))
	}
	return nil
}
