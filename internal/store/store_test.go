package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"tourlab/internal/model"
	"tourlab/internal/opt"
	"tourlab/internal/sysinfo"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	lite, err := OpenSQLite(filepath.Join(t.TempDir(), "tourlab.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { lite.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": lite,
	}
}

func TestPointSets(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			in := model.PointSetIn{Name: "square", Points: []opt.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}
			ps, err := s.SavePointSet(ctx, in)
			if err != nil {
				t.Fatal(err)
			}
			if ps.ID == "" || ps.CreatedAt.IsZero() {
				t.Fatalf("saved %+v", ps)
			}

			in.Points[0] = opt.Point{X: 9, Y: 9}
			got, err := s.GetPointSet(ctx, ps.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Name != "square" || len(got.Points) != 4 {
				t.Fatalf("got %+v", got)
			}
			if got.Points[0] != (opt.Point{}) {
				t.Fatalf("store must own its copy, got %v", got.Points[0])
			}

			if _, err := s.GetPointSet(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("missing id: %v", err)
			}
		})
	}
}

func TestPointSetPaging(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := range 5 {
				in := model.PointSetIn{Name: fmt.Sprint("set", i), Points: []opt.Point{{float64(i), 0}}}
				if _, err := s.SavePointSet(ctx, in); err != nil {
					t.Fatal(err)
				}
			}
			var names []string
			cursor := ""
			pages := 0
			for {
				items, next, err := s.ListPointSets(ctx, cursor, 2)
				if err != nil {
					t.Fatal(err)
				}
				for _, it := range items {
					names = append(names, it.Name)
				}
				pages++
				if next == "" {
					break
				}
				cursor = next
			}
			if pages != 3 {
				t.Fatalf("pages = %d", pages)
			}
			if want := []string{"set0", "set1", "set2", "set3", "set4"}; !slices.Equal(names, want) {
				t.Fatalf("names %v, want %v", names, want)
			}
		})
	}
}

func stat(algorithm string, dist float64) model.Statistic {
	return model.Statistic{
		RunID:      "run-" + algorithm,
		Algorithm:  algorithm,
		Distance:   dist,
		RuntimeSec: 0.3,
		Tour:       []opt.Point{{0, 0}, {3, 4}},
		PointCount: 2,
		Iterations: 2,
		System:     sysinfo.Info{Platform: "test", CPU: "cpu", Memory: "1 GB", Cores: 1},
	}
}

func TestStatistics(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			saved, err := s.SaveStatistic(ctx, stat("Brute Force", 10))
			if err != nil || saved.ID == "" {
				t.Fatalf("save: %+v %v", saved, err)
			}
			if _, err := s.SaveStatistic(ctx, stat("Simulated Annealing", 11)); err != nil {
				t.Fatal(err)
			}
			cancelled := stat("Brute Force", 12)
			cancelled.Cancelled = true
			if _, err := s.SaveStatistic(ctx, cancelled); err != nil {
				t.Fatal(err)
			}

			all, next, err := s.ListStatistics(ctx, "", "", 10)
			if err != nil {
				t.Fatal(err)
			}
			if next != "" || len(all) != 3 {
				t.Fatalf("next=%q len=%d", next, len(all))
			}
			if all[0].ID != saved.ID || !slices.Equal(all[0].Tour, []opt.Point{{0, 0}, {3, 4}}) {
				t.Fatalf("first %+v", all[0])
			}
			if all[0].System.Platform != "test" || !all[2].Cancelled {
				t.Fatalf("system %+v cancelled %v", all[0].System, all[2].Cancelled)
			}

			bf, next, err := s.ListStatistics(ctx, "Brute Force", "", 1)
			if err != nil || len(bf) != 1 || next == "" {
				t.Fatalf("first page: %d next=%q err=%v", len(bf), next, err)
			}
			bf2, next, err := s.ListStatistics(ctx, "Brute Force", next, 1)
			if err != nil || len(bf2) != 1 || next != "" {
				t.Fatalf("second page: %d next=%q err=%v", len(bf2), next, err)
			}
			if bf2[0].Distance != 12 {
				t.Fatalf("second page distance %v", bf2[0].Distance)
			}
		})
	}
}

func TestBadCursor(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, _, err := s.ListStatistics(ctx, "", "not-a-cursor", 10); !errors.Is(err, ErrInvalidCursor) {
				t.Fatalf("statistics: %v", err)
			}
			_, _, err := s.ListPointSets(ctx, "not-a-cursor", 10)
			if !errors.Is(err, ErrInvalidCursor) || errors.Is(err, ErrNotFound) {
				t.Fatalf("point sets: %v", err)
			}
		})
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	s, err := Open(context.Background(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("got %T, want *Memory", s)
	}

	s, err = Open(context.Background(), "", filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*SQLite); !ok {
		t.Fatalf("got %T, want *SQLite", s)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{0: defaultLimit, 5: 5, maxLimit + 1: maxLimit} {
		if got := clampLimit(in); got != want {
			t.Fatalf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
