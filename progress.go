package mudio

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/time/rate"
)

// Progress receives the completion of each file during a run.
// Implementations must be safe for concurrent use; a nil Progress on
// the Processor means silent.
type Progress interface {
	Done(res Result)
}

// ConsoleProgress counts completions onto w, rewriting a single status
// line when w is a terminal and printing one line per file otherwise.
// Redraws are rate limited so a large parallel run doesn't spend its
// time repainting the terminal.
type ConsoleProgress struct {
	w     io.Writer
	tty   bool
	total int

	mu      sync.Mutex
	redraw  rate.Sometimes
	done    int
	failed  int
	skipped int
}

func NewConsoleProgress(w io.Writer, total int) *ConsoleProgress {
	var tty bool
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		tty = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return &ConsoleProgress{
		w: w, tty: tty, total: total,
		redraw: rate.Sometimes{First: 1, Interval: 100 * time.Millisecond},
	}
}

func (c *ConsoleProgress) Done(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.done++
	switch {
	case res.Status == StatusSkipped:
		c.skipped++
	case res.Status.Failed():
		c.failed++
	}

	if !c.tty {
		fmt.Fprintf(c.w, "%d/%d %s: %s\n", c.done, c.total, res.Status, res.Path)
		return
	}
	if c.done == c.total {
		c.draw()
		fmt.Fprintln(c.w)
		return
	}
	c.redraw.Do(c.draw)
}

func (c *ConsoleProgress) draw() {
	fmt.Fprintf(c.w, "\r\x1b[K%d/%d processed, %d failed, %d skipped", c.done, c.total, c.failed, c.skipped)
}

// Finish terminates a part-finished status line so later output starts
// on a fresh one. Needed after an interrupted run.
func (c *ConsoleProgress) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tty && c.done > 0 && c.done < c.total {
		c.draw()
		fmt.Fprintln(c.w)
	}
}
