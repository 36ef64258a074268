package utils

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// Progress is a byte-count progress bar. Add and Finish may be called from any
// goroutine; a disabled Progress ignores every call
type Progress struct {
	container *mpb.Progress
	bar       *mpb.Bar

	mu          sync.Mutex
	description string
}

var descLength = 24

// NewProgress creates a bar for total bytes. The bar is only drawn when enabled and
// stderr is a terminal
func NewProgress(total int64, enabled bool) *Progress {
	p := &Progress{}
	if !enabled || !isTerminal() {
		return p
	}

	// Add space before progress bar
	fmt.Fprintln(os.Stderr)

	p.container = mpb.New(
		mpb.WithOutput(os.Stderr),
		mpb.WithWidth(64),
		mpb.WithRefreshRate(100*time.Millisecond),
	)

	p.bar = p.container.New(total,
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string {
				return p.currentDescription()
			}, decor.WC{W: descLength, C: decor.DindentRight}),
			decor.Name("  "),
			decor.Counters(decor.SizeB1024(0), "% .1f / % .1f", decor.WC{C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)

	return p
}

// Enabled reports whether the bar is drawn
func (p *Progress) Enabled() bool {
	return p.bar != nil
}

// Add advances the bar by n bytes and shows description next to it
func (p *Progress) Add(n int64, description string) {
	if p.bar == nil {
		return
	}

	p.mu.Lock()
	p.description = description
	p.mu.Unlock()

	p.bar.IncrInt64(n)
}

func (p *Progress) currentDescription() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.description) > descLength {
		return ".." + p.description[len(p.description)-descLength+2:]
	}
	return p.description
}

// Finish completes the bar and waits for the final render. Bars that never reached
// their total, e.g. after a failed extraction, are aborted in place
func (p *Progress) Finish() {
	if p.container == nil {
		return
	}

	if !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.container.Wait()

	// Add space after progress bar
	fmt.Fprintln(os.Stderr)
}

// isTerminal checks if stderr is a terminal (TTY)
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
