// Package shortcut places launchers for the installed game on the desktop.
package shortcut

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/desktopmate-tools/dminstall/internal/tools"
)

// ErrNoDesktop is returned when no desktop directory can be found.
var ErrNoDesktop = errors.New("shortcut: cannot determine desktop directory")

// Shortcut describes one launcher.
type Shortcut struct {
	// Name is the file name without extension.
	Name      string
	Target    string
	WorkDir   string
	Arguments string
}

// Creator writes shortcuts into a desktop directory.
type Creator interface {
	// Available reports why shortcuts cannot be created, or nil.
	Available() error
	// Create writes s and returns the path of the created file.
	Create(ctx context.Context, s Shortcut) (string, error)
}

// DesktopDir resolves the desktop directory. A non-empty override wins, then
// XDG_DESKTOP_DIR, then ~/Desktop. The result must exist.
func DesktopDir(override string) (string, error) {
	candidates := []string{override, os.Getenv("XDG_DESKTOP_DIR")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "Desktop"))
	}
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir, nil
		}
		if dir == override {
			return "", fmt.Errorf("%w: %s", ErrNoDesktop, override)
		}
	}
	return "", ErrNoDesktop
}

// ForPlatform returns the Creator suited to goos. An empty goos means the
// running platform.
func ForPlatform(goos, desktopDir string, runner tools.CommandRunner) Creator {
	if goos == "" {
		goos = runtime.GOOS
	}
	if goos == "windows" {
		return &PowerShellCreator{Dir: desktopDir, Runner: runner}
	}
	return &DesktopEntryCreator{Dir: desktopDir, Launcher: DefaultLauncher}
}

func checkDir(dir string) error {
	if dir == "" {
		return ErrNoDesktop
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNoDesktop, dir)
	}
	return nil
}
