package importer

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Progress reports per-file completion while a batch of statements is
// imported.
type Progress interface {
	// Add records that n more files finished.
	Add(n int) error
	// Close clears whatever the tracker drew on the terminal.
	Close()
}

// NoopProgress discards updates, for piped output or --no-progress runs.
type NoopProgress struct{}

func NewNoopProgress() *NoopProgress { return &NoopProgress{} }

func (p *NoopProgress) Add(int) error { return nil }
func (p *NoopProgress) Close()        {}

// BarProgress draws a terminal bar, one tick per statement file.
type BarProgress struct {
	bar *progressbar.ProgressBar
}

func NewBarProgress(total int) *BarProgress {
	return &BarProgress{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Importing statements"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			})),
	}
}

func (p *BarProgress) Add(n int) error { return p.bar.Add(n) }

// Close wipes the bar from its line so it does not sit above the JSON
// output.
func (p *BarProgress) Close() {
	fmt.Fprint(os.Stderr, "\r\033[K")
}
