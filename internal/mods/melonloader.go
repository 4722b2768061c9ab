package mods

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/desktopmate-tools/dminstall/internal/archive"
	"github.com/desktopmate-tools/dminstall/internal/fetch"
	"github.com/desktopmate-tools/dminstall/internal/manifest"
	"github.com/desktopmate-tools/dminstall/internal/report"
)

// MelonLoader installs a pinned MelonLoader release.
type MelonLoader struct {
	src    manifest.MelonLoader
	dl     fetch.Downloader
	rep    report.Reporter
	logger *slog.Logger
}

// NewMelonLoader creates a MelonLoader installer. rep and logger may be nil.
func NewMelonLoader(src manifest.MelonLoader, dl fetch.Downloader, rep report.Reporter, logger *slog.Logger) *MelonLoader {
	if rep == nil {
		rep = report.Nop{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MelonLoader{src: src, dl: dl, rep: rep, logger: logger}
}

// VersionPath is the marker recording the installed MelonLoader version.
func (m *MelonLoader) VersionPath(installDir string) string {
	return filepath.Join(installDir, m.src.VersionFile)
}

// Installed returns the recorded MelonLoader version, "" if none.
func (m *MelonLoader) Installed(installDir string) (string, error) {
	return ReadVersion(m.VersionPath(installDir))
}

// Install extracts the pinned release into installDir unless that version is
// already recorded there.
func (m *MelonLoader) Install(ctx context.Context, installDir string) (Result, error) {
	installed, err := m.Installed(installDir)
	if err != nil {
		return Result{}, fmt.Errorf("read melonloader version: %w", err)
	}
	want := m.src.Version
	if installed == want {
		m.rep.Success(fmt.Sprintf("MelonLoader is up-to-date (version %s).", installed))
		m.logger.Info("melonloader up-to-date", slog.String("version", installed))
		return Result{Action: ActionUpToDate, Version: installed}, nil
	}

	m.rep.Warning(fmt.Sprintf("Installing MelonLoader %s...", want))
	m.logger.Info("downloading melonloader", slog.String("version", want), slog.String("url", m.src.URL))

	zipPath := fetch.TempPath("melonloader", "zip")
	if err := m.dl.Download(ctx, m.src.URL, zipPath); err != nil {
		return Result{}, fmt.Errorf("download melonloader: %w", err)
	}
	defer os.Remove(zipPath)

	m.rep.Info("Extracting MelonLoader contents to game directory...")
	if err := archive.ExtractZip(zipPath, installDir); err != nil {
		return Result{}, fmt.Errorf("extract melonloader: %w", err)
	}
	if err := WriteVersion(m.VersionPath(installDir), want); err != nil {
		return Result{}, fmt.Errorf("write melonloader version: %w", err)
	}

	m.rep.Success("MelonLoader installed successfully.")
	m.logger.Info("melonloader installed", slog.String("version", want), slog.String("previous", installed))

	action := ActionInstalled
	if installed != "" {
		action = ActionUpdated
	}
	return Result{Action: action, Version: want}, nil
}
