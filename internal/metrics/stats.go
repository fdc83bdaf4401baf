package metrics

import "time"

// Window accumulates per-iteration training telemetry between snapshots.
type Window struct {
	steps        int
	compute      time.Duration
	lastAccuracy float64
	bestAccuracy float64
}

// Record adds one training iteration to the window.
func (w *Window) Record(computeTime time.Duration, accuracy float64) {
	w.steps++
	w.compute += computeTime
	w.lastAccuracy = accuracy
	if accuracy > w.bestAccuracy {
		w.bestAccuracy = accuracy
	}
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{
		Steps:        w.steps,
		LastAccuracy: w.lastAccuracy,
		BestAccuracy: w.bestAccuracy,
	}
	if w.compute > 0 {
		snap.StepsPerSec = float64(w.steps) / w.compute.Seconds()
	}
	if w.steps > 0 {
		snap.AvgStepMS = (w.compute.Seconds() * 1000) / float64(w.steps)
	}

	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps        int
	StepsPerSec  float64
	AvgStepMS    float64
	LastAccuracy float64
	BestAccuracy float64
}
