package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"

	"hebbprune/internal/dataset"
)

// progressObserver advances a progress bar on stderr once per finished stage.
type progressObserver struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgressObserver(numStages int) *progressObserver {
	colors := termenv.EnvColorProfile() != termenv.Ascii
	return &progressObserver{
		bar: progressbar.NewOptions(numStages,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(colors),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("stages"),
			progressbar.OptionSetDescription("starting"),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
		),
	}
}

// StageDone is safe to call from several experiment goroutines.
func (p *progressObserver) StageDone(task dataset.TaskType, stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar.Describe(fmt.Sprintf("%s/%s", task, stage))
	_ = p.bar.Add(1)
}

func (p *progressObserver) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Finish()
}
