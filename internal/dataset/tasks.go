package dataset

import (
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"hebbprune/internal/model"
)

// TaskType enumerates the pattern-association tasks.
type TaskType int

const (
	// SinglePair repeats one fixed alternating pattern pair.
	SinglePair TaskType = iota
	// MultiPair draws independent random input/target pairs.
	MultiPair
	// BinaryClass labels random inputs by the parity of their active bits.
	BinaryClass
)

var taskTypeNames = [...]string{
	SinglePair:  "single_pair",
	MultiPair:   "multi_pair",
	BinaryClass: "binary_class",
}

func (t TaskType) String() string {
	if t < 0 || int(t) >= len(taskTypeNames) {
		return "unknown"
	}
	return taskTypeNames[t]
}

// ParseTaskType maps a task name such as "multi_pair" back to its TaskType.
func ParseTaskType(name string) (TaskType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range taskTypeNames {
		if n == name {
			return TaskType(i), nil
		}
	}
	return 0, errors.Errorf("unknown task type %q (valid: %s)", name, strings.Join(taskTypeNames[:], ", "))
}

// AllTaskTypes returns every task type in declaration order.
func AllTaskTypes() []TaskType {
	return []TaskType{SinglePair, MultiPair, BinaryClass}
}

// TrainFraction is the share of generated patterns used for training.
const TrainFraction = 0.8

// Task holds the train and validation batches of one generated task.
type Task struct {
	Type       TaskType
	Train      model.Batch
	Validation model.Batch
}

type pattern struct {
	input  []float64
	target []float64
}

// Generate builds a task of the given type.
//
// SinglePair and MultiPair produce numPairs patterns, BinaryClass produces
// numPairs even-parity inputs (class 0) followed by numPairs odd-parity
// inputs (class 1); the class bit is written to every output unit. The
// first TrainFraction of the patterns go to training, the rest to
// validation. With too few patterns to split, all of them are used for
// training and validation reuses the training set.
func Generate(taskType TaskType, inputSize, outputSize, numPairs int, rng *rand.Rand) (Task, error) {
	if inputSize <= 0 || outputSize <= 0 {
		return Task{}, errors.Errorf("dataset: sizes must be > 0 (got input=%d output=%d)", inputSize, outputSize)
	}
	if numPairs <= 0 {
		return Task{}, errors.Errorf("dataset: num pairs must be > 0 (got %d)", numPairs)
	}
	if rng == nil {
		return Task{}, errors.New("dataset: random source is nil")
	}

	var patterns []pattern
	switch taskType {
	case SinglePair:
		for i := 0; i < numPairs; i++ {
			patterns = append(patterns, pattern{
				input:  alternating(inputSize, 1),
				target: alternating(outputSize, 0),
			})
		}
	case MultiPair:
		for i := 0; i < numPairs; i++ {
			patterns = append(patterns, pattern{
				input:  randomBits(rng, inputSize),
				target: randomBits(rng, outputSize),
			})
		}
	case BinaryClass:
		for _, class := range []int{0, 1} {
			for count := 0; count < numPairs; {
				p := randomBits(rng, inputSize)
				if parity(p) != class {
					continue
				}
				patterns = append(patterns, pattern{input: p, target: constant(outputSize, float64(class))})
				count++
			}
		}
	default:
		return Task{}, errors.Errorf("dataset: unknown task type %d", int(taskType))
	}

	split := int(TrainFraction * float64(len(patterns)))
	if split == 0 {
		split = len(patterns)
	}
	task := Task{
		Type:       taskType,
		Train:      toBatch(patterns[:split]),
		Validation: toBatch(patterns[split:]),
	}
	if task.Validation.Len() == 0 {
		task.Validation = task.Train
	}
	return task, nil
}

func toBatch(patterns []pattern) model.Batch {
	var b model.Batch
	for _, p := range patterns {
		b.Inputs = append(b.Inputs, p.input)
		b.Targets = append(b.Targets, p.target)
	}
	return b
}

// alternating returns [first, 1-first, first, ...] of length n.
func alternating(n int, first float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = first
		} else {
			out[i] = 1 - first
		}
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func randomBits(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(rng.Intn(2))
	}
	return out
}

func parity(bits []float64) int {
	ones := 0
	for _, b := range bits {
		if b != 0 {
			ones++
		}
	}
	return ones % 2
}
