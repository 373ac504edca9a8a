package downloader

import (
	"fmt"
	"io"
	"sync"
)

const mb = 1024 * 1024

// ConsoleProgress prints a single self-overwriting progress line, for
// terminals without TUI support and for redirected output.
type ConsoleProgress struct {
	w io.Writer

	mu       sync.Mutex
	lastTick int64
	printed  bool
}

// NewConsoleProgress writes progress lines to w
func NewConsoleProgress(w io.Writer) *ConsoleProgress {
	return &ConsoleProgress{w: w, lastTick: -1}
}

// Update is a ProgressFunc. It redraws at most once per 0.1% (or per MiB when
// the size is unknown) so piped output stays readable.
func (p *ConsoleProgress) Update(current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if total > 0 {
		tick := current * 1000 / total
		if tick == p.lastTick {
			return
		}
		p.lastTick = tick
		percent := float64(current) / float64(total) * 100
		fmt.Fprintf(p.w, "\rProgress: %.1f%% (%.1fMB / %.1fMB)",
			percent, float64(current)/mb, float64(total)/mb)
	} else {
		tick := current / mb
		if tick == p.lastTick {
			return
		}
		p.lastTick = tick
		fmt.Fprintf(p.w, "\rDownloaded: %s", formatBytes(current))
	}
	p.printed = true
}

// Finish terminates the progress line
func (p *ConsoleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.printed {
		fmt.Fprintln(p.w)
	}
}
