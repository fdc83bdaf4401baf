package config

import (
	"bytes"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"hebbprune/internal/dataset"
	"hebbprune/internal/model"
)

// Config captures the runtime knobs for a pruning sweep.
type Config struct {
	InputSize    int       `yaml:"input_size"`
	OutputSize   int       `yaml:"output_size"`
	LearningRate float64   `yaml:"learning_rate"`
	InitialSteps int       `yaml:"initial_steps"`
	RetrainSteps int       `yaml:"retrain_steps"`
	EarlyStop    bool      `yaml:"early_stop"`
	Patience     int       `yaml:"patience"`
	NumPairs     int       `yaml:"num_pairs"`
	Tasks        []string  `yaml:"tasks"`
	Thresholds   []float64 `yaml:"thresholds"`
	Seed         int64     `yaml:"seed"`
	LogEvery     int       `yaml:"log_every"`
	Workers      int       `yaml:"workers"`
	OutputDir    string    `yaml:"output_dir"`
}

// Overrides captures CLI supplied values. Zero values leave the config untouched.
type Overrides struct {
	InputSize        int
	OutputSize       int
	LearningRate     float64
	InitialSteps     int
	RetrainSteps     int
	Patience         int
	NumPairs         int
	Tasks            []string
	Thresholds       []float64
	Seed             int64
	LogEvery         int
	Workers          int
	OutputDir        string
	DisableEarlyStop bool
}

// Default returns the configuration of the reference experiment.
func Default() *Config {
	tasks := dataset.AllTaskTypes()
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.String()
	}
	return &Config{
		InputSize:    8,
		OutputSize:   8,
		LearningRate: 0.1,
		InitialSteps: 1000,
		RetrainSteps: 500,
		EarlyStop:    true,
		Patience:     model.DefaultPatience,
		NumPairs:     4,
		Tasks:        names,
		Thresholds:   []float64{0.01, 0.05, 0.1, 0.2},
		Seed:         42,
		LogEvery:     100,
		Workers:      1,
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "parse config %q", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.InputSize > 0 {
		c.InputSize = o.InputSize
	}
	if o.OutputSize > 0 {
		c.OutputSize = o.OutputSize
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.InitialSteps > 0 {
		c.InitialSteps = o.InitialSteps
	}
	if o.RetrainSteps > 0 {
		c.RetrainSteps = o.RetrainSteps
	}
	if o.Patience > 0 {
		c.Patience = o.Patience
	}
	if o.NumPairs > 0 {
		c.NumPairs = o.NumPairs
	}
	if len(o.Tasks) > 0 {
		c.Tasks = o.Tasks
	}
	if len(o.Thresholds) > 0 {
		c.Thresholds = o.Thresholds
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.Workers > 0 {
		c.Workers = o.Workers
	}
	if o.OutputDir != "" {
		c.OutputDir = o.OutputDir
	}
	if o.DisableEarlyStop {
		c.EarlyStop = false
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.InputSize <= 0 {
		return errors.Errorf("input_size must be > 0 (got %d)", c.InputSize)
	}
	if c.OutputSize <= 0 {
		return errors.Errorf("output_size must be > 0 (got %d)", c.OutputSize)
	}
	if !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 1) {
		return errors.Errorf("learning_rate must be a positive number (got %g)", c.LearningRate)
	}
	if c.InitialSteps <= 0 {
		return errors.Errorf("initial_steps must be > 0 (got %d)", c.InitialSteps)
	}
	if c.RetrainSteps <= 0 {
		return errors.Errorf("retrain_steps must be > 0 (got %d)", c.RetrainSteps)
	}
	if c.NumPairs <= 0 {
		return errors.Errorf("num_pairs must be > 0 (got %d)", c.NumPairs)
	}
	if c.Workers <= 0 {
		return errors.Errorf("workers must be > 0 (got %d)", c.Workers)
	}
	if len(c.Thresholds) == 0 {
		return errors.New("at least one pruning threshold must be set")
	}
	for _, t := range c.Thresholds {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return errors.Errorf("pruning thresholds must be finite (got %g)", t)
		}
	}
	if _, err := c.TaskTypes(); err != nil {
		return err
	}
	if c.Patience <= 0 {
		c.Patience = model.DefaultPatience
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 100
	}
	return nil
}

// TaskTypes resolves the configured task names.
func (c *Config) TaskTypes() ([]dataset.TaskType, error) {
	if len(c.Tasks) == 0 {
		return nil, errors.New("at least one task must be set")
	}
	types := make([]dataset.TaskType, 0, len(c.Tasks))
	for _, name := range c.Tasks {
		t, err := dataset.ParseTaskType(name)
		if err != nil {
			return nil, errors.WithMessage(err, "tasks")
		}
		types = append(types, t)
	}
	return types, nil
}

// ParseThresholds parses a comma separated list such as "0.01,0.05,0.1".
func ParseThresholds(list string) ([]float64, error) {
	var out []float64
	for _, field := range SplitList(list) {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "threshold %q", field)
		}
		out = append(out, v)
	}
	return out, nil
}

// SplitList splits a comma separated flag value, dropping empty entries.
func SplitList(list string) []string {
	var out []string
	for _, field := range strings.Split(list, ",") {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	return out
}
