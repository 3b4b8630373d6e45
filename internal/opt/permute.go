package opt

import (
	"iter"
	"slices"
)

// Permute enumerates every ordering of length count drawn from seq. Each
// remaining element, in input order, is picked as the head and the rest is
// permuted recursively, so the sequence is deterministic for a given input.
// Every yielded slice is a fresh copy the caller may keep.
func Permute[T any](seq []T, count int) iter.Seq[[]T] {
	src := slices.Clone(seq)
	return func(yield func([]T) bool) {
		if count < 0 || count > len(src) {
			return
		}
		used := make([]bool, len(src))
		prefix := make([]T, 0, count)

		var walk func() bool
		walk = func() bool {
			if len(prefix) == count {
				return yield(slices.Clone(prefix))
			}
			for i := range src {
				if used[i] {
					continue
				}
				used[i] = true
				prefix = append(prefix, src[i])
				ok := walk()
				prefix = prefix[:len(prefix)-1]
				used[i] = false
				if !ok {
					return false
				}
			}
			return true
		}
		walk()
	}
}

// Factorial returns n! for n >= 0 and -1 for negative input. It overflows
// int beyond 20!, which is why exhaustive search caps its input size.
func Factorial(n int) int {
	if n < 0 {
		return -1
	}
	result := 1
	for i := 2; i <= n; i++ {
		result *= i
	}
	return result
}
