package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func prunedSet(m *AssociativeMemory) map[[2]int]bool {
	set := make(map[[2]int]bool)
	for i := 0; i < m.outputSize; i++ {
		for j := 0; j < m.inputSize; j++ {
			if m.mask.At(i, j) == 0 {
				set[[2]int{i, j}] = true
			}
		}
	}
	return set
}

func TestPruneNonPositiveThresholdIsNoop(t *testing.T) {
	m := newTestMemory(t, 8, 8, 0.1, 1)
	before := m.Weights()
	for _, threshold := range []float64{0, -0.5, math.NaN()} {
		require.Equal(t, 0.0, m.Prune(threshold))
		require.Empty(t, prunedSet(m))
	}
	require.True(t, mat.Equal(before, m.weights))
}

func TestPruneIsIdempotent(t *testing.T) {
	m := newTestMemory(t, 8, 8, 0.1, 4)
	first := m.Prune(0.05)
	firstSet := prunedSet(m)
	require.Greater(t, first, 0.0)

	second := m.Prune(0.05)
	require.Equal(t, first, second)
	require.Equal(t, firstSet, prunedSet(m))
	require.InDelta(t, float64(len(firstSet))/64, second, 1e-12)
}

func TestPruneIsMonotonic(t *testing.T) {
	m := newTestMemory(t, 8, 8, 0.1, 8)
	m.Prune(0.03)
	small := prunedSet(m)
	m.Prune(0.07)
	large := prunedSet(m)
	for pos := range small {
		require.Truef(t, large[pos], "position %v was restored", pos)
	}
	require.GreaterOrEqual(t, len(large), len(small))

	// A smaller threshold never restores anything.
	frac := m.Prune(0.01)
	require.Equal(t, large, prunedSet(m))
	require.GreaterOrEqual(t, frac, float64(len(large))/64)
}

func TestPrunedWeightsStayFrozenThroughTraining(t *testing.T) {
	m := newTestMemory(t, 8, 8, 0.1, 12)
	m.Prune(0.06)
	pruned := prunedSet(m)
	require.NotEmpty(t, pruned)

	for round := 0; round < 3; round++ {
		_, err := m.Train(alternatingBatch(8, 4), 40, false)
		require.NoError(t, err)
		requireMaskFrozen(t, m)
		require.Equal(t, pruned, prunedSet(m), "training must not touch the mask")
	}
}

func TestPruneEverything(t *testing.T) {
	m := newTestMemory(t, 8, 8, 0.1, 6)
	require.Equal(t, 1.0, m.Prune(InitRange+1))

	s := m.Analyze()
	require.Equal(t, 64, s.ZeroCount)
	require.Equal(t, 1.0, s.ZeroPercentage)
	require.Zero(t, s.MeanMagnitude)
	require.Zero(t, s.StdMagnitude)
	require.Zero(t, s.MinMagnitude)
	require.Zero(t, s.MaxMagnitude)

	// A dead network predicts nothing and cannot learn.
	acc, err := m.Train(alternatingBatch(8, 4), 100, true)
	require.NoError(t, err)
	require.Equal(t, 0.5, acc)
	requireMaskFrozen(t, m)
}

func TestAnalyzeActiveWeights(t *testing.T) {
	m := newTestMemory(t, 2, 2, 0.1, 1)
	m.weights = mat.NewDense(2, 2, []float64{0.1, -0.3, 0.02, 0.5})

	s := m.Analyze()
	require.Equal(t, 0, s.ZeroCount)
	require.InDelta(t, (0.1+0.3+0.02+0.5)/4, s.MeanMagnitude, 1e-12)
	require.InDelta(t, 0.02, s.MinMagnitude, 1e-12)

	m.Prune(0.05)
	s = m.Analyze()
	require.Equal(t, 1, s.ZeroCount)
	require.InDelta(t, 0.25, s.ZeroPercentage, 1e-12)
	require.InDelta(t, 0.3, s.MeanMagnitude, 1e-12)
	require.InDelta(t, math.Sqrt(0.08/3), s.StdMagnitude, 1e-12)
	require.InDelta(t, 0.1, s.MinMagnitude, 1e-12)
	require.InDelta(t, 0.5, s.MaxMagnitude, 1e-12)

	asMap := s.AsMap()
	require.Len(t, asMap, len(StatNames))
	for _, name := range StatNames {
		require.Contains(t, asMap, name)
	}
	require.Equal(t, 1.0, asMap["zero_count"])
}
