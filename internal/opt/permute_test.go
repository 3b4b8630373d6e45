package opt

import (
	"fmt"
	"slices"
	"testing"
)

func TestPermuteOrder(t *testing.T) {
	var got [][]int
	for p := range Permute([]int{1, 2, 3}, 3) {
		got = append(got, p)
	}
	want := [][]int{
		{1, 2, 3}, {1, 3, 2},
		{2, 1, 3}, {2, 3, 1},
		{3, 1, 2}, {3, 2, 1},
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPermuteCompleteAndDistinct(t *testing.T) {
	for n := 0; n <= 6; n++ {
		src := make([]int, n)
		for i := range src {
			src[i] = i * 7
		}
		seen := map[string]bool{}
		for p := range Permute(src, n) {
			sorted := slices.Clone(p)
			slices.Sort(sorted)
			if !slices.Equal(src, sorted) {
				t.Fatalf("not a bijection: %v", p)
			}
			key := fmt.Sprint(p)
			if seen[key] {
				t.Fatalf("duplicate %v", p)
			}
			seen[key] = true
		}
		if len(seen) != Factorial(n) {
			t.Fatalf("n=%d: %d permutations", n, len(seen))
		}
	}
}

func TestPermutePartialAndBounds(t *testing.T) {
	count := 0
	for p := range Permute([]string{"a", "b", "c", "d"}, 2) {
		if len(p) != 2 || p[0] == p[1] {
			t.Fatalf("bad partial permutation %v", p)
		}
		count++
	}
	if count != 12 {
		t.Fatalf("got %d partial permutations, want 12", count)
	}

	for range Permute([]int{1, 2}, 3) {
		t.Fatal("count larger than input must yield nothing")
	}
	for range Permute([]int{1, 2}, -1) {
		t.Fatal("negative count must yield nothing")
	}
}

func TestPermuteYieldsCopies(t *testing.T) {
	var kept [][]int
	for p := range Permute([]int{1, 2, 3}, 3) {
		kept = append(kept, p)
		p[0] = -1
	}
	// mutating a yielded slice must not corrupt later permutations
	if len(kept) != 6 || !slices.Equal(kept[5], []int{-1, 2, 1}) {
		t.Fatalf("kept %v", kept)
	}
}

func TestPermuteEarlyBreak(t *testing.T) {
	count := 0
	for range Permute([]int{1, 2, 3, 4, 5}, 5) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Fatalf("count %d", count)
	}
}

func TestFactorial(t *testing.T) {
	for n, want := range map[int]int{0: 1, 1: 1, 5: 120, 20: 2432902008176640000, -3: -1} {
		if got := Factorial(n); got != want {
			t.Fatalf("Factorial(%d) = %d, want %d", n, got, want)
		}
	}
}
