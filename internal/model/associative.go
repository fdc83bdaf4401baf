package model

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// InitRange bounds the initial weights to [-InitRange, InitRange).
	InitRange = 0.1

	// FiringThreshold is the raw output above which a unit is predicted active.
	FiringThreshold = 0.5

	// DefaultPatience is the number of consecutive non-improving iterations
	// tolerated before training stops early.
	DefaultPatience = 50
)

// AssociativeMemory is a single-layer network trained with the Hebbian rule.
//
// Weights and mask have shape (outputSize x inputSize). A zero in the mask
// marks a pruned connection; its weight is zero and stays zero through any
// later training.
type AssociativeMemory struct {
	inputSize    int
	outputSize   int
	learningRate float64
	weights      *mat.Dense
	mask         *mat.Dense
}

var _ Model = (*AssociativeMemory)(nil)

// New constructs the network with uniform random weights and an all-ones mask.
func New(inputSize, outputSize int, learningRate float64, rng *rand.Rand) (*AssociativeMemory, error) {
	if inputSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "input size must be > 0 (got %d)", inputSize)
	}
	if outputSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "output size must be > 0 (got %d)", outputSize)
	}
	if !(learningRate > 0) || math.IsInf(learningRate, 1) {
		return nil, errors.Wrapf(ErrInvalidConfig, "learning rate must be a positive number (got %g)", learningRate)
	}
	if rng == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "random source is nil")
	}
	weights := make([]float64, outputSize*inputSize)
	for i := range weights {
		weights[i] = (rng.Float64()*2 - 1) * InitRange
	}
	mask := make([]float64, len(weights))
	for i := range mask {
		mask[i] = 1
	}
	return &AssociativeMemory{
		inputSize:    inputSize,
		outputSize:   outputSize,
		learningRate: learningRate,
		weights:      mat.NewDense(outputSize, inputSize, weights),
		mask:         mat.NewDense(outputSize, inputSize, mask),
	}, nil
}

// InputSize returns the number of input units.
func (m *AssociativeMemory) InputSize() int { return m.inputSize }

// OutputSize returns the number of output units.
func (m *AssociativeMemory) OutputSize() int { return m.outputSize }

// LearningRate returns the Hebbian learning rate.
func (m *AssociativeMemory) LearningRate() float64 { return m.learningRate }

// Weights returns a copy of the weight matrix.
func (m *AssociativeMemory) Weights() *mat.Dense { return mat.DenseCopyOf(m.weights) }

// Mask returns a copy of the pruning mask.
func (m *AssociativeMemory) Mask() *mat.Dense { return mat.DenseCopyOf(m.mask) }

// FitConfig controls a training run.
type FitConfig struct {
	// Steps is the maximum number of iterations.
	Steps int

	// EarlyStop enables the patience window.
	EarlyStop bool

	// Patience defaults to DefaultPatience when <= 0.
	Patience int

	// OnStep, if set, observes the accuracy of every iteration before its update.
	OnStep func(step int, accuracy float64)
}

// FitResult summarizes a training run.
type FitResult struct {
	// Accuracy of the last completed iteration, measured before its update.
	Accuracy     float64
	BestAccuracy float64
	StepsRun     int
	EarlyStopped bool
}

// Train runs up to steps Hebbian iterations on batch and returns the final accuracy.
func (m *AssociativeMemory) Train(batch Batch, steps int, earlyStop bool) (float64, error) {
	res, err := m.Fit(batch, FitConfig{Steps: steps, EarlyStop: earlyStop})
	if err != nil {
		return 0, err
	}
	return res.Accuracy, nil
}

// Fit is Train with the full set of knobs and a detailed result.
//
// Every iteration measures accuracy first and then adds the masked update
// learningRate * sum_i outer(target_i, input_i). When the patience window
// runs out the loop exits before that iteration's update is applied.
func (m *AssociativeMemory) Fit(batch Batch, cfg FitConfig) (FitResult, error) {
	if cfg.Steps <= 0 {
		return FitResult{}, errors.Wrapf(ErrInvalidConfig, "steps must be > 0 (got %d)", cfg.Steps)
	}
	patience := cfg.Patience
	if patience <= 0 {
		patience = DefaultPatience
	}
	x, y, err := m.matrices(batch)
	if err != nil {
		return FitResult{}, err
	}

	// The update depends on the batch and the mask only, neither of which
	// changes inside the loop.
	var update mat.Dense
	update.Mul(y.T(), x)
	update.Scale(m.learningRate, &update)
	update.MulElem(&update, m.mask)

	var res FitResult
	stalled := 0
	for step := 0; step < cfg.Steps; step++ {
		acc := m.accuracy(x, y)
		res.Accuracy = acc
		res.StepsRun = step + 1
		if cfg.OnStep != nil {
			cfg.OnStep(step, acc)
		}
		if acc > res.BestAccuracy {
			res.BestAccuracy = acc
			stalled = 0
		} else {
			stalled++
		}
		if cfg.EarlyStop && stalled >= patience {
			res.EarlyStopped = true
			return res, nil
		}
		m.weights.Add(m.weights, &update)
	}
	return res, nil
}

// Evaluate returns the accuracy on batch without touching weights or mask.
func (m *AssociativeMemory) Evaluate(batch Batch) (float64, error) {
	x, y, err := m.matrices(batch)
	if err != nil {
		return 0, err
	}
	return m.accuracy(x, y), nil
}

// Prune zeroes every weight whose magnitude is strictly below threshold and
// removes it from the mask for good. It returns the fraction of positions
// that met the criterion, already-pruned ones included.
func (m *AssociativeMemory) Prune(threshold float64) float64 {
	w := m.weights.RawMatrix()
	mask := m.mask.RawMatrix()
	pruned := 0
	for i := 0; i < m.outputSize; i++ {
		for j := 0; j < m.inputSize; j++ {
			if math.Abs(w.Data[i*w.Stride+j]) < threshold {
				w.Data[i*w.Stride+j] = 0
				mask.Data[i*mask.Stride+j] = 0
				pruned++
			}
		}
	}
	return float64(pruned) / float64(m.outputSize*m.inputSize)
}

// accuracy is the fraction of (sample, unit) cells where the binarized
// output equals the target.
func (m *AssociativeMemory) accuracy(x, y *mat.Dense) float64 {
	var out mat.Dense
	out.Mul(x, m.weights.T())
	rows, cols := out.Dims()
	matches := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			prediction := 0.0
			if out.At(i, j) > FiringThreshold {
				prediction = 1
			}
			if prediction == y.At(i, j) {
				matches++
			}
		}
	}
	return float64(matches) / float64(rows*cols)
}

// matrices validates batch against the network shape and packs it into
// (samples x inputSize) and (samples x outputSize) matrices.
func (m *AssociativeMemory) matrices(batch Batch) (x, y *mat.Dense, err error) {
	n := batch.Len()
	if n == 0 {
		return nil, nil, errors.Wrap(ErrShapeMismatch, "batch is empty")
	}
	if len(batch.Targets) != n {
		return nil, nil, errors.Wrapf(ErrShapeMismatch, "%d inputs but %d targets", n, len(batch.Targets))
	}
	x = mat.NewDense(n, m.inputSize, nil)
	y = mat.NewDense(n, m.outputSize, nil)
	for i := 0; i < n; i++ {
		if got := len(batch.Inputs[i]); got != m.inputSize {
			return nil, nil, errors.Wrapf(ErrShapeMismatch, "input %d has %d values, want %d", i, got, m.inputSize)
		}
		if got := len(batch.Targets[i]); got != m.outputSize {
			return nil, nil, errors.Wrapf(ErrShapeMismatch, "target %d has %d values, want %d", i, got, m.outputSize)
		}
		x.SetRow(i, batch.Inputs[i])
		y.SetRow(i, batch.Targets[i])
	}
	return x, y, nil
}
