package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Terminal prompts on an interactive console with line editing and masked
// password entry.
type Terminal struct {
	rl  *readline.Instance
	out io.Writer
}

// NewTerminal creates a Terminal prompter on the process console.
func NewTerminal() (*Terminal, error) {
	rl, err := readline.NewEx(&readline.Config{
		HistoryLimit:           -1,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return nil, fmt.Errorf("prompt: init terminal: %w", err)
	}
	return &Terminal{rl: rl, out: os.Stdout}, nil
}

// Close releases the terminal.
func (t *Terminal) Close() error {
	return t.rl.Close()
}

func (t *Terminal) read(prompt string) (string, error) {
	t.rl.SetPrompt(prompt)
	answer, err := t.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", ErrAborted
	}
	return answer, err
}

// Line implements Prompter.
func (t *Terminal) Line(prompt, def string) (string, error) {
	return line(t.read, prompt, def)
}

// Required implements Prompter.
func (t *Terminal) Required(prompt, retry string) (string, error) {
	return required(t.read, t.out, prompt, retry)
}

// Password implements Prompter; typed characters are shown as asterisks.
func (t *Terminal) Password(prompt string) (string, error) {
	pw, err := t.rl.ReadPassword(prompt)
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", ErrAborted
	}
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// Confirm implements Prompter.
func (t *Terminal) Confirm(prompt string) (bool, error) {
	return confirm(t.read, prompt)
}

// Pause implements Prompter by waiting for any key press.
func (t *Terminal) Pause(msg string) error {
	return WaitForKey(os.Stdin, t.out, msg)
}
