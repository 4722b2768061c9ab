// Package patch applies the Goldberg Steam emulator to an installed game.
package patch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/desktopmate-tools/dminstall/internal/archive"
	"github.com/desktopmate-tools/dminstall/internal/fetch"
	"github.com/desktopmate-tools/dminstall/internal/manifest"
	"github.com/desktopmate-tools/dminstall/internal/report"
)

// ErrPatchFileMissing is returned when the downloaded archive does not carry
// the emulator DLL.
var ErrPatchFileMissing = errors.New("patch: steam_api64.dll not found in the patch archive")

// BackupSuffix is appended to the original DLL before it is replaced.
const BackupSuffix = ".orig"

// MarkerSuffix names the file written next to the DLL once it is patched. It
// holds the patch source URL.
const MarkerSuffix = ".goldberg"

const extractDirName = "goldberg_extracted"

// Result describes what Apply did.
type Result struct {
	Target   string
	BackedUp bool
}

// Goldberg downloads and installs the emulator DLL.
type Goldberg struct {
	src     manifest.Goldberg
	dl      fetch.Downloader
	rep     report.Reporter
	logger  *slog.Logger
	workDir string
}

// Option configures a Goldberg.
type Option func(*Goldberg)

// WithWorkDir sets where the archive is unpacked. Defaults to os.TempDir().
func WithWorkDir(dir string) Option {
	return func(g *Goldberg) { g.workDir = dir }
}

// WithReporter sets the user-facing reporter.
func WithReporter(r report.Reporter) Option {
	return func(g *Goldberg) { g.rep = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Goldberg) { g.logger = l }
}

// New creates a Goldberg patcher.
func New(src manifest.Goldberg, dl fetch.Downloader, opts ...Option) *Goldberg {
	g := &Goldberg{
		src:     src,
		dl:      dl,
		rep:     report.Nop{},
		logger:  slog.New(slog.DiscardHandler),
		workDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TargetPath is where the emulator DLL ends up inside installDir.
func (g *Goldberg) TargetPath(installDir string) string {
	return filepath.Join(installDir, filepath.FromSlash(g.src.TargetPath))
}

// Applied reports whether installDir has been patched before. Directories
// patched before the marker existed are recognised by their backup.
func (g *Goldberg) Applied(installDir string) bool {
	target := g.TargetPath(installDir)
	return archive.Exists(target+MarkerSuffix) || archive.Exists(target+BackupSuffix)
}

// Apply downloads the patch archive and copies the DLL into installDir.
func (g *Goldberg) Apply(ctx context.Context, installDir string) (Result, error) {
	target := g.TargetPath(installDir)
	res := Result{Target: target}

	g.rep.Info("Downloading Goldberg patch...")
	g.logger.Info("downloading goldberg emulator patch", slog.String("url", g.src.URL))

	zipPath := fetch.TempPath("goldberg", "zip")
	if err := g.dl.Download(ctx, g.src.URL, zipPath); err != nil {
		return res, fmt.Errorf("download goldberg patch: %w", err)
	}

	extractDir := filepath.Join(g.workDir, extractDirName)
	if err := archive.ResetDir(extractDir); err != nil {
		os.Remove(zipPath)
		return res, fmt.Errorf("prepare %s: %w", extractDir, err)
	}
	defer os.RemoveAll(extractDir)

	err := archive.ExtractZip(zipPath, extractDir)
	os.Remove(zipPath)
	if err != nil {
		return res, fmt.Errorf("extract goldberg patch: %w", err)
	}

	dll := filepath.Join(extractDir, filepath.FromSlash(g.src.ArchivePath))
	if !archive.Exists(dll) {
		g.logger.Error("steam_api64.dll missing in goldberg archive", slog.String("expected", g.src.ArchivePath))
		return res, fmt.Errorf("%w: %s", ErrPatchFileMissing, g.src.ArchivePath)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return res, fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}

	// A patched target is ours, not the game's original.
	backup := target + BackupSuffix
	if archive.Exists(target) && !archive.Exists(backup) && !archive.Exists(target+MarkerSuffix) {
		if err := archive.CopyFile(target, backup, 0o644); err != nil {
			return res, fmt.Errorf("back up %s: %w", target, err)
		}
		res.BackedUp = true
		g.logger.Info("original steam_api64.dll backed up", slog.String("path", backup))
	}

	if err := archive.CopyFile(dll, target, 0o644); err != nil {
		return res, fmt.Errorf("install patch dll: %w", err)
	}
	if err := os.WriteFile(target+MarkerSuffix, []byte(g.src.URL+"\n"), 0o644); err != nil {
		return res, fmt.Errorf("mark %s as patched: %w", target, err)
	}

	g.rep.Success("Goldberg patch applied successfully.")
	g.logger.Info("goldberg patch applied", slog.String("target", target))
	return res, nil
}
