package integrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tourlab/internal/opt"
)

func TestRandomSourceDistinctAndSeeded(t *testing.T) {
	src := RandomSource{N: 50, Seed: 42, Width: 20, Height: 20}
	a, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, a, 50)

	seen := map[opt.Point]bool{}
	for _, p := range a {
		require.False(t, seen[p], "duplicate %v", p)
		seen[p] = true
		require.GreaterOrEqual(t, p.X, 0.0)
		require.Less(t, p.X, 20.0)
	}

	b, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestRandomSourceTooMany(t *testing.T) {
	_, err := RandomSource{N: 5, Width: 2, Height: 2}.Load(context.Background())
	require.Error(t, err)
}
