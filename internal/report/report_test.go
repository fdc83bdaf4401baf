package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hebbprune/internal/dataset"
	"hebbprune/internal/metrics"
	"hebbprune/internal/model"
	"hebbprune/internal/trainer"
)

func sampleExperiments() []trainer.Experiment {
	return []trainer.Experiment{
		{
			RunID: "run-1",
			Task:  dataset.MultiPair,
			Seed:  43,
			Baseline: metrics.Baseline{
				TrainAccuracy: 1, ValAccuracy: 0.75, StepsRun: 1000,
				Stats: model.Stats{MeanMagnitude: 0.42, MaxMagnitude: 1.3},
			},
			Records: []metrics.Record{
				{Threshold: 0.05, PrunedFraction: 0.125, TrainAccuracy: 1, ValAccuracy: 0.75, StepsRun: 51, EarlyStopped: true,
					Stats: model.Stats{ZeroCount: 8, ZeroPercentage: 12.5, MeanMagnitude: 0.48}},
				{Threshold: 0.2, PrunedFraction: 0.5, TrainAccuracy: 0.875, ValAccuracy: 0.5, StepsRun: 500,
					Stats: model.Stats{ZeroCount: 32, ZeroPercentage: 50, MeanMagnitude: 0.6}},
			},
		},
	}
}

func TestTable(t *testing.T) {
	out := Table(sampleExperiments())
	for _, want := range []string{"Task", "Threshold", "multi_pair", "0.05", "12.5%", "50.0%", "1,000", "51 (early)", "0.4200"} {
		assert.Contains(t, out, want)
	}
}

func TestStatsTable(t *testing.T) {
	out := StatsTable(model.Stats{ZeroCount: 1234, ZeroPercentage: 19.28, MeanMagnitude: 0.5})
	for _, name := range model.StatNames {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "19.2800")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleExperiments()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+3, "header, baseline and one row per threshold")

	header := map[string]int{}
	for i, name := range rows[0] {
		header[name] = i
	}
	for _, col := range []string{"run_id", "task", "stage", "threshold", "pruned_fraction",
		"train_accuracy", "val_accuracy", "steps_run", "early_stopped", "zero_count", "std_magnitude"} {
		require.Contains(t, header, col)
	}

	assert.Equal(t, trainer.StageInitial, rows[1][header["stage"]])
	assert.Equal(t, trainer.StagePrune, rows[2][header["stage"]])
	assert.Equal(t, "run-1", rows[2][header["run_id"]])
	assert.Equal(t, "multi_pair", rows[3][header["task"]])
	assert.Equal(t, "32", rows[3][header["zero_count"]])
	assert.Equal(t, "true", strings.ToLower(rows[2][header["early_stopped"]]))
}

func TestWriteCSVRejectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, WriteCSV(&buf, nil))
}
