// Package prompt asks the user for install settings and credentials.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("prompt: aborted")

// Prompter collects answers from the user.
type Prompter interface {
	// Line asks once and returns def for an empty answer.
	Line(prompt, def string) (string, error)
	// Required asks until a non-empty answer is given, printing retry after
	// every empty one.
	Required(prompt, retry string) (string, error)
	// Password asks without echoing the answer.
	Password(prompt string) (string, error)
	// Confirm asks a yes/no question. Only "y" or "Y" counts as yes.
	Confirm(prompt string) (bool, error)
	// Pause waits for the user to acknowledge msg.
	Pause(msg string) error
}

// readFunc reads one answer for prompt.
type readFunc func(prompt string) (string, error)

func line(read readFunc, prompt, def string) (string, error) {
	answer, err := read(prompt)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func required(read readFunc, out io.Writer, prompt, retry string) (string, error) {
	for {
		answer, err := read(prompt)
		if err != nil {
			return "", err
		}
		if answer = strings.TrimSpace(answer); answer != "" {
			return answer, nil
		}
		_, _ = fmt.Fprintln(out, retry)
	}
}

func confirm(read readFunc, prompt string) (bool, error) {
	answer, err := read(prompt)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y"), nil
}
