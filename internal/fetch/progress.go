package fetch

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"
)

// Progress receives byte counts while a download runs.
type Progress interface {
	Update(done int64)
	Finish()
}

// ProgressFactory creates a Progress for one download. total is -1 when the
// server did not send a Content-Length.
type ProgressFactory func(name string, total int64) Progress

// BarProgress draws a single-line progress bar, redrawn in place.
type BarProgress struct {
	mu       sync.Mutex
	w        io.Writer
	name     string
	total    int64
	done     int64
	bar      progress.Model
	interval time.Duration
	last     time.Time
}

// NewBarFactory returns a ProgressFactory drawing bars to w.
func NewBarFactory(w io.Writer) ProgressFactory {
	return func(name string, total int64) Progress {
		return &BarProgress{
			w:        w,
			name:     name,
			total:    total,
			bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
			interval: 100 * time.Millisecond,
		}
	}
}

// Update records done bytes and redraws at most once per interval.
func (b *BarProgress) Update(done int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done = done
	if time.Since(b.last) < b.interval {
		return
	}
	b.last = time.Now()
	b.draw()
}

// Finish draws the final state and ends the line.
func (b *BarProgress) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draw()
	_, _ = fmt.Fprintln(b.w)
}

func (b *BarProgress) draw() {
	_, _ = fmt.Fprintf(b.w, "\r%s", b.Line())
}

// Line renders the current state without cursor control.
func (b *BarProgress) Line() string {
	if b.total <= 0 {
		return fmt.Sprintf("%s %s", b.name, humanize.Bytes(uint64(b.done)))
	}
	pct := float64(b.done) / float64(b.total)
	if pct > 1 {
		pct = 1
	}
	return fmt.Sprintf("%s %s %s / %s", b.name, b.bar.ViewAs(pct),
		humanize.Bytes(uint64(b.done)), humanize.Bytes(uint64(b.total)))
}
