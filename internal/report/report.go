// Package report formats experiment results for the terminal and as CSV.
package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"

	"hebbprune/internal/model"
	"hebbprune/internal/trainer"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)

	// TitleStyle is used for section titles printed above tables.
	TitleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

func newPlainTable(alignments ...lipgloss.Position) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row < 0 {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return s.Align(alignment)
		})
}

// Table renders one row per task baseline and per pruning threshold.
func Table(experiments []trainer.Experiment) string {
	t := newPlainTable(lipgloss.Left, lipgloss.Right)
	t.Headers("Task", "Threshold", "Pruned", "Train acc", "Val acc", "Zero count", "Mean |w|", "Steps")
	for _, exp := range experiments {
		b := exp.Baseline
		t.Row(exp.Task.String(), "-", "-",
			formatAccuracy(b.TrainAccuracy), formatAccuracy(b.ValAccuracy),
			humanize.Comma(int64(b.Stats.ZeroCount)), fmt.Sprintf("%.4f", b.Stats.MeanMagnitude),
			formatSteps(b.StepsRun, b.EarlyStopped))
		for _, rec := range exp.Records {
			t.Row(exp.Task.String(), humanize.FtoaWithDigits(rec.Threshold, 4),
				fmt.Sprintf("%.1f%%", rec.PrunedPercentage()),
				formatAccuracy(rec.TrainAccuracy), formatAccuracy(rec.ValAccuracy),
				humanize.Comma(int64(rec.Stats.ZeroCount)), fmt.Sprintf("%.4f", rec.Stats.MeanMagnitude),
				formatSteps(rec.StepsRun, rec.EarlyStopped))
		}
	}
	return t.Render()
}

// StatsTable renders the named weight statistics in StatNames order.
func StatsTable(stats model.Stats) string {
	t := newPlainTable(lipgloss.Right, lipgloss.Left)
	t.Headers("Statistic", "Value")
	values := stats.AsMap()
	for _, name := range model.StatNames {
		value := fmt.Sprintf("%.4f", values[name])
		if name == "zero_count" {
			value = humanize.Comma(int64(stats.ZeroCount))
		}
		t.Row(name, value)
	}
	return t.Render()
}

func formatAccuracy(acc float64) string {
	return fmt.Sprintf("%.3f", acc)
}

func formatSteps(steps int, earlyStopped bool) string {
	s := humanize.Comma(int64(steps))
	if earlyStopped {
		s += " (early)"
	}
	return s
}

// csvRow is the flat layout of results.csv.
type csvRow struct {
	RunID          string  `dataframe:"run_id"`
	Task           string  `dataframe:"task"`
	Stage          string  `dataframe:"stage"`
	Threshold      float64 `dataframe:"threshold"`
	PrunedFraction float64 `dataframe:"pruned_fraction"`
	TrainAccuracy  float64 `dataframe:"train_accuracy"`
	ValAccuracy    float64 `dataframe:"val_accuracy"`
	StepsRun       int     `dataframe:"steps_run"`
	EarlyStopped   bool    `dataframe:"early_stopped"`
	ZeroCount      int     `dataframe:"zero_count"`
	ZeroPercentage float64 `dataframe:"zero_percentage"`
	MeanMagnitude  float64 `dataframe:"mean_magnitude"`
	StdMagnitude   float64 `dataframe:"std_magnitude"`
	MinMagnitude   float64 `dataframe:"min_magnitude"`
	MaxMagnitude   float64 `dataframe:"max_magnitude"`
}

func newCSVRow(exp trainer.Experiment, stage string, stats model.Stats) csvRow {
	return csvRow{
		RunID:          exp.RunID,
		Task:           exp.Task.String(),
		Stage:          stage,
		ZeroCount:      stats.ZeroCount,
		ZeroPercentage: stats.ZeroPercentage,
		MeanMagnitude:  stats.MeanMagnitude,
		StdMagnitude:   stats.StdMagnitude,
		MinMagnitude:   stats.MinMagnitude,
		MaxMagnitude:   stats.MaxMagnitude,
	}
}

// Frame flattens experiments into a dataframe, one row per baseline and
// per pruning round. Baseline rows have threshold and pruned fraction 0.
func Frame(experiments []trainer.Experiment) (dataframe.DataFrame, error) {
	var rows []csvRow
	for _, exp := range experiments {
		row := newCSVRow(exp, trainer.StageInitial, exp.Baseline.Stats)
		row.TrainAccuracy = exp.Baseline.TrainAccuracy
		row.ValAccuracy = exp.Baseline.ValAccuracy
		row.StepsRun = exp.Baseline.StepsRun
		row.EarlyStopped = exp.Baseline.EarlyStopped
		rows = append(rows, row)
		for _, rec := range exp.Records {
			row := newCSVRow(exp, trainer.StagePrune, rec.Stats)
			row.Threshold = rec.Threshold
			row.PrunedFraction = rec.PrunedFraction
			row.TrainAccuracy = rec.TrainAccuracy
			row.ValAccuracy = rec.ValAccuracy
			row.StepsRun = rec.StepsRun
			row.EarlyStopped = rec.EarlyStopped
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return dataframe.DataFrame{}, errors.New("no results to export")
	}
	df := dataframe.LoadStructs(rows)
	if df.Err != nil {
		return df, errors.Wrap(df.Err, "building results frame")
	}
	return df, nil
}

// WriteCSV writes Frame(experiments) to w with a header line.
func WriteCSV(w io.Writer, experiments []trainer.Experiment) error {
	df, err := Frame(experiments)
	if err != nil {
		return err
	}
	if err := df.WriteCSV(w); err != nil {
		return errors.Wrap(err, "writing results CSV")
	}
	return nil
}
