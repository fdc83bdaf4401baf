package metrics

import "hebbprune/internal/model"

// Baseline captures the network right after its initial training.
type Baseline struct {
	TrainAccuracy float64
	ValAccuracy   float64
	StepsRun      int
	EarlyStopped  bool
	Stats         model.Stats
}

// Record captures one prune-and-retrain round.
type Record struct {
	Threshold      float64
	PrunedFraction float64
	TrainAccuracy  float64
	ValAccuracy    float64
	StepsRun       int
	EarlyStopped   bool
	Stats          model.Stats
}

// PrunedPercentage returns PrunedFraction scaled to [0, 100].
func (r Record) PrunedPercentage() float64 {
	return r.PrunedFraction * 100
}
