package trainer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"hebbprune/internal/dataset"
)

type countingObserver struct {
	mu     sync.Mutex
	stages map[string]int
}

func (o *countingObserver) StageDone(task dataset.TaskType, stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages[task.String()+"/"+stage]++
}

func testConfig() RunConfig {
	return RunConfig{
		RunID:        "test",
		InputSize:    8,
		OutputSize:   8,
		LearningRate: 0.1,
		InitialSteps: 200,
		RetrainSteps: 100,
		EarlyStop:    true,
		Patience:     20,
		NumPairs:     4,
		Tasks:        dataset.AllTaskTypes(),
		Thresholds:   []float64{0.01, 0.05, 0.1, 0.2},
		Seed:         42,
		LogEvery:     50,
		Workers:      1,
	}
}

func TestRunExperimentSinglePair(t *testing.T) {
	cfg := testConfig()
	exp, err := RunExperiment(context.Background(), cfg, dataset.SinglePair, 1)
	require.NoError(t, err)
	require.Equal(t, dataset.SinglePair, exp.Task)
	require.Equal(t, 1.0, exp.Baseline.TrainAccuracy)
	require.Equal(t, 1.0, exp.Baseline.ValAccuracy)
	require.True(t, exp.Baseline.EarlyStopped)
	require.Zero(t, exp.Baseline.Stats.ZeroCount)
	require.Len(t, exp.Records, len(cfg.Thresholds))

	prevZeros := 0
	for i, rec := range exp.Records {
		require.Equal(t, cfg.Thresholds[i], rec.Threshold)
		require.GreaterOrEqual(t, rec.Stats.ZeroCount, prevZeros, "pruning must accumulate")
		require.InDelta(t, float64(rec.Stats.ZeroCount)/64, rec.PrunedFraction, 1e-12)
		require.True(t, rec.TrainAccuracy >= 0 && rec.TrainAccuracy <= 1)
		require.True(t, rec.ValAccuracy >= 0 && rec.ValAccuracy <= 1)
		prevZeros = rec.Stats.ZeroCount
	}
	r, c := exp.Weights.Dims()
	require.Equal(t, 8, r)
	require.Equal(t, 8, c)
}

func TestRunKeepsTaskOrderAndIsDeterministic(t *testing.T) {
	cfg := testConfig()
	obs := &countingObserver{stages: map[string]int{}}
	cfg.Observer = obs
	cfg.Workers = 3

	first, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, first, len(cfg.Tasks))
	for i, exp := range first {
		require.Equal(t, cfg.Tasks[i], exp.Task)
		require.Equal(t, cfg.Seed+int64(i), exp.Seed)
	}

	total := 0
	for _, task := range cfg.Tasks {
		require.Equal(t, 1, obs.stages[task.String()+"/"+StageInitial])
		require.Equal(t, len(cfg.Thresholds), obs.stages[task.String()+"/"+StagePrune])
		total += obs.stages[task.String()+"/"+StageInitial] + obs.stages[task.String()+"/"+StagePrune]
	}
	require.Equal(t, cfg.NumStages(), total)

	cfg.Observer = nil
	cfg.Workers = 1
	second, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	for i := range first {
		require.Equal(t, first[i].Baseline, second[i].Baseline)
		require.Equal(t, first[i].Records, second[i].Records)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, testConfig())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Tasks = nil
	_, err := Run(context.Background(), cfg)
	require.Error(t, err)

	cfg = testConfig()
	cfg.LearningRate = 0
	_, err = Run(context.Background(), cfg)
	require.Error(t, err)

	cfg = testConfig()
	cfg.RetrainSteps = 0
	_, err = RunExperiment(context.Background(), cfg, dataset.MultiPair, 1)
	require.Error(t, err)
}
