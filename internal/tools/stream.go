package tools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"golang.org/x/sync/errgroup"
)

// LineFunc receives one line of child output without its trailing newline.
type LineFunc func(line string)

// Streamer runs a program and hands its output to callbacks line by line.
type Streamer interface {
	Stream(ctx context.Context, name string, args []string, onStdout, onStderr LineFunc) (int, error)
}

// ExecStreamer is the os/exec backed Streamer.
type ExecStreamer struct{}

// Stream starts name and pumps stdout and stderr concurrently. It returns only
// after the process has exited and both pumps have drained. The exit code is
// -1 when the process did not report one.
func (ExecStreamer) Stream(ctx context.Context, name string, args []string, onStdout, onStderr LineFunc) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return exitCode(err), fmt.Errorf("start %s: %w", name, err)
	}

	var g errgroup.Group
	g.Go(func() error { return pump(stdout, onStdout) })
	g.Go(func() error { return pump(stderr, onStderr) })
	pumpErr := g.Wait()

	waitErr := cmd.Wait()
	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return code, waitErr
	}
	if pumpErr != nil {
		return code, fmt.Errorf("read output: %w", pumpErr)
	}
	return code, nil
}

// maxLineSize bounds one line of child output.
const maxLineSize = 1024 * 1024

// pump feeds lines from r to fn. After a read error it keeps draining r so
// the child never blocks on a full pipe.
func pump(r io.Reader, fn LineFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if fn != nil {
			fn(scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}
