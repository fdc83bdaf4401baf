package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"hebbprune/internal/config"
	"hebbprune/internal/plots"
	"hebbprune/internal/report"
	"hebbprune/internal/trainer"
)

var (
	flagConfig       = flag.String("config", "", "Path to YAML config. Empty uses the built-in defaults.")
	flagInputSize    = flag.Int("input-size", 0, "Override number of input neurons")
	flagOutputSize   = flag.Int("output-size", 0, "Override number of output neurons")
	flagLearningRate = flag.Float64("lr", 0, "Override Hebbian learning rate")
	flagInitialSteps = flag.Int("initial-steps", 0, "Override number of initial training steps")
	flagRetrainSteps = flag.Int("retrain-steps", 0, "Override number of retraining steps after each prune")
	flagNoEarlyStop  = flag.Bool("no-early-stop", false, "Disable early stopping")
	flagPatience     = flag.Int("patience", 0, "Override early stopping patience")
	flagNumPairs     = flag.Int("num-pairs", 0, "Override number of generated patterns per task")
	flagTasks        = flag.String("tasks", "", "Comma separated tasks: single_pair,multi_pair,binary_class")
	flagThresholds   = flag.String("thresholds", "", "Comma separated pruning thresholds, applied in order")
	flagSeed         = flag.Int64("seed", 0, "PRNG seed")
	flagLogEvery     = flag.Int("log-every", 0, "Log training progress every N steps (needs -v=1)")
	flagWorkers      = flag.Int("workers", 0, "Number of tasks run concurrently")
	flagOutputDir    = flag.String("output-dir", "", "Directory for results.csv and plots. Empty disables file output.")
	flagProgress     = flag.Bool("progress", false, "Show a progress bar over experiment stages")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	err := exceptions.TryCatch[error](run)
	if err != nil {
		klog.Errorf("hebbprune failed: %+v", err)
		klog.Flush()
		os.Exit(1)
	}
}

// run panics on error; main converts the panic back into an error.
func run() {
	cfg := config.Default()
	if *flagConfig != "" {
		cfg = must.M1(config.Load(*flagConfig))
	}
	cfg.ApplyOverrides(config.Overrides{
		InputSize:        *flagInputSize,
		OutputSize:       *flagOutputSize,
		LearningRate:     *flagLearningRate,
		InitialSteps:     *flagInitialSteps,
		RetrainSteps:     *flagRetrainSteps,
		Patience:         *flagPatience,
		NumPairs:         *flagNumPairs,
		Tasks:            config.SplitList(*flagTasks),
		Thresholds:       must.M1(config.ParseThresholds(*flagThresholds)),
		Seed:             *flagSeed,
		LogEvery:         *flagLogEvery,
		Workers:          *flagWorkers,
		OutputDir:        *flagOutputDir,
		DisableEarlyStop: *flagNoEarlyStop,
	})
	must.M(errors.WithMessage(cfg.Validate(), "invalid config"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCfg := trainer.RunConfig{
		RunID:        uuid.NewString(),
		InputSize:    cfg.InputSize,
		OutputSize:   cfg.OutputSize,
		LearningRate: cfg.LearningRate,
		InitialSteps: cfg.InitialSteps,
		RetrainSteps: cfg.RetrainSteps,
		EarlyStop:    cfg.EarlyStop,
		Patience:     cfg.Patience,
		NumPairs:     cfg.NumPairs,
		Tasks:        must.M1(cfg.TaskTypes()),
		Thresholds:   cfg.Thresholds,
		Seed:         cfg.Seed,
		LogEvery:     cfg.LogEvery,
		Workers:      cfg.Workers,
	}
	var progress *progressObserver
	if *flagProgress {
		progress = newProgressObserver(runCfg.NumStages())
		runCfg.Observer = progress
	}
	klog.Infof("run=%s tasks=%v thresholds=%v seed=%d", runCfg.RunID, cfg.Tasks, cfg.Thresholds, cfg.Seed)

	experiments, err := trainer.Run(ctx, runCfg)
	if progress != nil {
		progress.Close()
	}
	must.M(errors.WithMessage(err, "experiment failed"))

	for _, exp := range experiments {
		fmt.Println(report.TitleStyle.Render(fmt.Sprintf("Baseline weights: %s", exp.Task)))
		fmt.Println(report.StatsTable(exp.Baseline.Stats))
	}
	fmt.Println(report.TitleStyle.Render("Pruning sweep"))
	fmt.Println(report.Table(experiments))

	if cfg.OutputDir != "" {
		dir := filepath.Join(cfg.OutputDir, runCfg.RunID)
		must.M(writeOutputs(dir, experiments))
		klog.Infof("results written to %s", dir)
	}
}

func writeOutputs(dir string, experiments []trainer.Experiment) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create output dir %q", dir)
	}
	f, err := os.Create(filepath.Join(dir, "results.csv"))
	if err != nil {
		return errors.Wrap(err, "create results.csv")
	}
	if err := report.WriteCSV(f, experiments); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close results.csv")
	}

	for _, exp := range experiments {
		name := exp.Task.String()
		if err := plots.AccuracyVsPruned(exp.Baseline, exp.Records,
			fmt.Sprintf("%s: accuracy vs pruned weights", name),
			filepath.Join(dir, name+"_accuracy.png")); err != nil {
			return err
		}
		if err := plots.WeightHeatmap(exp.Weights,
			fmt.Sprintf("%s: final weights", name),
			filepath.Join(dir, name+"_weights.png")); err != nil {
			return err
		}
	}
	return nil
}
