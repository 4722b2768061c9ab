package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Scripted answers prompts from a line-oriented reader. It serves piped stdin
// and tests; input ends are reported as ErrAborted.
type Scripted struct {
	in  *bufio.Reader
	out io.Writer
}

// NewScripted creates a Scripted prompter reading answers from in and writing
// prompts to out.
func NewScripted(in io.Reader, out io.Writer) *Scripted {
	return &Scripted{in: bufio.NewReader(in), out: out}
}

func (s *Scripted) read(prompt string) (string, error) {
	_, _ = fmt.Fprint(s.out, prompt)
	text, err := s.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && text != "" {
			return strings.TrimRight(text, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: no more input", ErrAborted)
		}
		return "", err
	}
	return strings.TrimRight(text, "\r\n"), nil
}

// Line implements Prompter.
func (s *Scripted) Line(prompt, def string) (string, error) {
	return line(s.read, prompt, def)
}

// Required implements Prompter.
func (s *Scripted) Required(prompt, retry string) (string, error) {
	return required(s.read, s.out, prompt, retry)
}

// Password implements Prompter. Scripted input is never echoed anyway.
func (s *Scripted) Password(prompt string) (string, error) {
	answer, err := s.read(prompt)
	_, _ = fmt.Fprintln(s.out)
	return answer, err
}

// Confirm implements Prompter.
func (s *Scripted) Confirm(prompt string) (bool, error) {
	return confirm(s.read, prompt)
}

// Pause implements Prompter. Exhausted input counts as acknowledged.
func (s *Scripted) Pause(msg string) error {
	_, _ = fmt.Fprintln(s.out, msg)
	_, err := s.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
