package report

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// Entry is one message captured by a Recorder.
type Entry struct {
	Level   string
	Message string
}

// Recorder keeps every message in memory. Tests use it to assert on what a
// component told the user.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	buf     bytes.Buffer
}

func (r *Recorder) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg})
}

func (r *Recorder) Info(msg string)    { r.add("info", msg) }
func (r *Recorder) Success(msg string) { r.add("success", msg) }
func (r *Recorder) Warning(msg string) { r.add("warning", msg) }
func (r *Recorder) Error(msg string)   { r.add("error", msg) }
func (r *Recorder) Println(msg string) { r.add("plain", msg) }
func (r *Recorder) Writer() io.Writer  { return &r.buf }

// Entries returns a copy of the captured messages.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Has reports whether a message at level contains substr.
func (r *Recorder) Has(level, substr string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
