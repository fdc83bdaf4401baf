package trainer

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"

	"hebbprune/internal/dataset"
	"hebbprune/internal/metrics"
	"hebbprune/internal/model"
)

// Stage names reported to an Observer.
const (
	StageInitial = "initial"
	StagePrune   = "prune"
)

// Observer is notified after every completed stage of an experiment.
// It may be called from several goroutines when Workers > 1.
type Observer interface {
	StageDone(task dataset.TaskType, stage string)
}

// RunConfig captures the knobs required by the experiment driver.
type RunConfig struct {
	RunID        string
	InputSize    int
	OutputSize   int
	LearningRate float64
	InitialSteps int
	RetrainSteps int
	EarlyStop    bool
	Patience     int
	NumPairs     int
	Tasks        []dataset.TaskType
	Thresholds   []float64
	Seed         int64
	LogEvery     int
	Workers      int
	Observer     Observer
}

// NumStages is the number of Observer notifications a full Run emits.
func (cfg RunConfig) NumStages() int {
	return len(cfg.Tasks) * (1 + len(cfg.Thresholds))
}

// Experiment is the outcome of one task's prune sweep.
type Experiment struct {
	RunID    string
	Task     dataset.TaskType
	Seed     int64
	Baseline metrics.Baseline
	Records  []metrics.Record

	// Weights holds the final weights after the last retraining.
	Weights *mat.Dense
}

// Run executes one experiment per task. Experiments own separate networks
// and run on up to cfg.Workers goroutines; results keep the task order.
func Run(ctx context.Context, cfg RunConfig) ([]Experiment, error) {
	if len(cfg.Tasks) == 0 {
		return nil, errors.New("trainer: no tasks")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	results := make([]Experiment, len(cfg.Tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, task := range cfg.Tasks {
		g.Go(func() error {
			exp, err := RunExperiment(gctx, cfg, task, cfg.Seed+int64(i))
			if err != nil {
				return errors.WithMessagef(err, "task %s", task)
			}
			results[i] = exp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunExperiment trains a fresh network on task, then prunes and retrains it
// once per threshold, in order. Pruning accumulates across thresholds.
func RunExperiment(ctx context.Context, cfg RunConfig, taskType dataset.TaskType, seed int64) (Experiment, error) {
	if cfg.InitialSteps <= 0 || cfg.RetrainSteps <= 0 {
		return Experiment{}, errors.Errorf("trainer: steps must be > 0 (initial=%d retrain=%d)",
			cfg.InitialSteps, cfg.RetrainSteps)
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 100
	}
	if err := ctx.Err(); err != nil {
		return Experiment{}, err
	}

	rng := rand.New(rand.NewSource(seed))
	task, err := dataset.Generate(taskType, cfg.InputSize, cfg.OutputSize, cfg.NumPairs, rng)
	if err != nil {
		return Experiment{}, err
	}
	mdl, err := model.New(cfg.InputSize, cfg.OutputSize, cfg.LearningRate, rng)
	if err != nil {
		return Experiment{}, err
	}
	klog.Infof("task=%s run=%s seed=%d train=%d val=%d", taskType, cfg.RunID, seed,
		task.Train.Len(), task.Validation.Len())

	exp := Experiment{RunID: cfg.RunID, Task: taskType, Seed: seed}
	fit, err := fitLogged(mdl, task.Train, cfg, cfg.InitialSteps, taskType)
	if err != nil {
		return Experiment{}, errors.WithMessage(err, "initial training")
	}
	valAcc, err := mdl.Evaluate(task.Validation)
	if err != nil {
		return Experiment{}, errors.WithMessage(err, "initial evaluation")
	}
	exp.Baseline = metrics.Baseline{
		TrainAccuracy: fit.Accuracy,
		ValAccuracy:   valAcc,
		StepsRun:      fit.StepsRun,
		EarlyStopped:  fit.EarlyStopped,
		Stats:         mdl.Analyze(),
	}
	klog.Infof("task=%s initial train_acc=%.3f val_acc=%.3f mean_mag=%.3f",
		taskType, fit.Accuracy, valAcc, exp.Baseline.Stats.MeanMagnitude)
	notify(cfg.Observer, taskType, StageInitial)

	for _, threshold := range cfg.Thresholds {
		if err := ctx.Err(); err != nil {
			return Experiment{}, err
		}
		pruned := mdl.Prune(threshold)
		fit, err := fitLogged(mdl, task.Train, cfg, cfg.RetrainSteps, taskType)
		if err != nil {
			return Experiment{}, errors.WithMessagef(err, "retraining after threshold %g", threshold)
		}
		valAcc, err := mdl.Evaluate(task.Validation)
		if err != nil {
			return Experiment{}, errors.WithMessagef(err, "evaluation after threshold %g", threshold)
		}
		rec := metrics.Record{
			Threshold:      threshold,
			PrunedFraction: pruned,
			TrainAccuracy:  fit.Accuracy,
			ValAccuracy:    valAcc,
			StepsRun:       fit.StepsRun,
			EarlyStopped:   fit.EarlyStopped,
			Stats:          mdl.Analyze(),
		}
		exp.Records = append(exp.Records, rec)
		klog.Infof("task=%s threshold=%g pruned=%.1f%% train_acc=%.3f val_acc=%.3f zero_count=%d mean_mag=%.3f std_mag=%.3f",
			taskType, threshold, rec.PrunedPercentage(), rec.TrainAccuracy, rec.ValAccuracy,
			rec.Stats.ZeroCount, rec.Stats.MeanMagnitude, rec.Stats.StdMagnitude)
		notify(cfg.Observer, taskType, StagePrune)
	}

	exp.Weights = mdl.Weights()
	return exp, nil
}

func fitLogged(mdl model.Model, batch model.Batch, cfg RunConfig, steps int, taskType dataset.TaskType) (model.FitResult, error) {
	var window metrics.Window
	last := time.Now()
	res, err := mdl.Fit(batch, model.FitConfig{
		Steps:     steps,
		EarlyStop: cfg.EarlyStop,
		Patience:  cfg.Patience,
		OnStep: func(step int, accuracy float64) {
			now := time.Now()
			window.Record(now.Sub(last), accuracy)
			last = now
			if step%cfg.LogEvery == 0 {
				snap := window.Snapshot()
				klog.V(1).Infof("task=%s step=%d accuracy=%.3f best=%.3f steps_per_sec=%.0f step_ms=%.3f",
					taskType, step, snap.LastAccuracy, snap.BestAccuracy, snap.StepsPerSec, snap.AvgStepMS)
			}
		},
	})
	if err != nil {
		return res, err
	}
	if res.EarlyStopped {
		klog.Infof("task=%s early stopping at step %d with accuracy %.3f", taskType, res.StepsRun-1, res.Accuracy)
	}
	return res, nil
}

func notify(obs Observer, taskType dataset.TaskType, stage string) {
	if obs != nil {
		obs.StageDone(taskType, stage)
	}
}
