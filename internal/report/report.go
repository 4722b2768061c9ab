// Package report defines how installer components talk to the user.
package report

import "io"

// Reporter receives user-facing progress messages. The CLI renderer is the
// production implementation; components never write to stdout directly.
type Reporter interface {
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
	// Println writes an unstyled line, used for relayed child output.
	Println(msg string)
	// Writer is where in-place progress bars are drawn.
	Writer() io.Writer
}

// Nop discards everything.
type Nop struct{}

func (Nop) Info(string)       {}
func (Nop) Success(string)    {}
func (Nop) Warning(string)    {}
func (Nop) Error(string)      {}
func (Nop) Println(string)    {}
func (Nop) Writer() io.Writer { return io.Discard }
