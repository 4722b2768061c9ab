package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/desktopmate-tools/dminstall/internal/tools"
)

// FakeDownloader serves canned payloads keyed by URL.
type FakeDownloader struct {
	mu       sync.Mutex
	Payloads map[string][]byte
	Err      error
	Calls    []string
}

// Download implements fetch.Downloader.
func (f *FakeDownloader) Download(_ context.Context, url, dest string) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, url)
	f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	body, ok := f.Payloads[url]
	if !ok {
		return fmt.Errorf("fake downloader: no payload for %s", url)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, body, 0o644)
}

// CallCount returns how many downloads were requested.
func (f *FakeDownloader) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// FakeStreamer replays scripted output instead of running a process.
type FakeStreamer struct {
	Stdout   []string
	Stderr   []string
	ExitCode int
	Err      error
	// Run, when set, is invoked with the arguments before output is replayed.
	Run func(name string, args []string)

	Name string
	Args []string
}

// Stream implements tools.Streamer.
func (f *FakeStreamer) Stream(_ context.Context, name string, args []string, onStdout, onStderr tools.LineFunc) (int, error) {
	f.Name = name
	f.Args = append([]string(nil), args...)
	if f.Run != nil {
		f.Run(name, args)
	}
	for _, l := range f.Stdout {
		onStdout(l)
	}
	for _, l := range f.Stderr {
		onStderr(l)
	}
	return f.ExitCode, f.Err
}

// Invocation records one FakeRunner call.
type Invocation struct {
	Name string
	Args []string
}

// FakeRunner records commands and returns a fixed result.
type FakeRunner struct {
	mu       sync.Mutex
	Calls    []Invocation
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Err      error
}

// Run implements tools.CommandRunner.
func (f *FakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Invocation{Name: name, Args: append([]string(nil), args...)})
	return f.Stdout, f.Stderr, f.ExitCode, f.Err
}
