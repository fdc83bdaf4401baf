package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats describes the weight distribution. Magnitude statistics cover the
// active (unpruned) connections only and are zero when none remain.
type Stats struct {
	ZeroCount      int
	ZeroPercentage float64
	MeanMagnitude  float64
	StdMagnitude   float64
	MinMagnitude   float64
	MaxMagnitude   float64
}

// StatNames lists the keys of Stats.AsMap in display order.
var StatNames = []string{
	"zero_count",
	"zero_percentage",
	"mean_magnitude",
	"std_magnitude",
	"min_magnitude",
	"max_magnitude",
}

// AsMap returns the statistics keyed by StatNames.
func (s Stats) AsMap() map[string]float64 {
	return map[string]float64{
		"zero_count":      float64(s.ZeroCount),
		"zero_percentage": s.ZeroPercentage,
		"mean_magnitude":  s.MeanMagnitude,
		"std_magnitude":   s.StdMagnitude,
		"min_magnitude":   s.MinMagnitude,
		"max_magnitude":   s.MaxMagnitude,
	}
}

// Analyze computes Stats over the current weights.
func (m *AssociativeMemory) Analyze() Stats {
	w := m.weights.RawMatrix()
	mask := m.mask.RawMatrix()
	total := m.outputSize * m.inputSize
	active := make([]float64, 0, total)
	for i := 0; i < m.outputSize; i++ {
		for j := 0; j < m.inputSize; j++ {
			if mask.Data[i*mask.Stride+j] != 0 {
				active = append(active, math.Abs(w.Data[i*w.Stride+j]))
			}
		}
	}

	s := Stats{ZeroCount: total - len(active)}
	s.ZeroPercentage = float64(s.ZeroCount) / float64(total)
	if len(active) == 0 {
		return s
	}
	s.MeanMagnitude, s.StdMagnitude = stat.PopMeanStdDev(active, nil)
	s.MinMagnitude = floats.Min(active)
	s.MaxMagnitude = floats.Max(active)
	return s
}
