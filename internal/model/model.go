package model

import "github.com/pkg/errors"

var (
	// ErrInvalidConfig marks construction or training parameters that can never be run.
	ErrInvalidConfig = errors.New("model: invalid configuration")

	// ErrShapeMismatch marks a batch whose vectors do not fit the network.
	ErrShapeMismatch = errors.New("model: shape mismatch")
)

// Batch pairs binary input patterns with the target patterns they should recall.
type Batch struct {
	Inputs  [][]float64
	Targets [][]float64
}

// Len returns the number of samples in the batch.
func (b Batch) Len() int {
	return len(b.Inputs)
}

// Model is the prunable network surface used by the experiment driver.
type Model interface {
	Fit(batch Batch, cfg FitConfig) (FitResult, error)
	Evaluate(batch Batch) (float64, error)
	Prune(threshold float64) float64
	Analyze() Stats
}
