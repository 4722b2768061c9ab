package mods

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/desktopmate-tools/dminstall/internal/archive"
	"github.com/desktopmate-tools/dminstall/internal/fetch"
	"github.com/desktopmate-tools/dminstall/internal/github"
	"github.com/desktopmate-tools/dminstall/internal/manifest"
	"github.com/desktopmate-tools/dminstall/internal/report"
)

// ErrNoModDirs is returned when the mod archive holds none of the expected
// directories.
var ErrNoModDirs = errors.New("mods: archive contains no mod directories")

// UpdatePrompt is asked before replacing an installed Custom Avatar Loader.
const UpdatePrompt = "Do you want to update Custom Avatar Loader mod? (Y/N): "

const avatarExtractDir = "custom_avatar_loader_extracted"

// ReleaseSource finds the latest release of a repository.
type ReleaseSource interface {
	LatestRelease(ctx context.Context, owner, repo, assetFilter string) (*github.Release, error)
}

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// NotesRenderer turns markdown release notes into terminal output.
type NotesRenderer func(markdown string) (string, error)

// GlamourNotes renders release notes with glamour, wrapped at width columns.
func GlamourNotes(width int) NotesRenderer {
	return func(md string) (string, error) {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
		if err != nil {
			return "", err
		}
		return r.Render(md)
	}
}

// AvatarLoaderConfig wires an AvatarLoader.
type AvatarLoaderConfig struct {
	Source     manifest.AvatarLoader
	Releases   ReleaseSource
	Downloader fetch.Downloader
	Confirmer  Confirmer
	// AssumeYes answers the update prompt without asking.
	AssumeYes bool
	Notes     NotesRenderer
	WorkDir   string
	Reporter  report.Reporter
	Logger    *slog.Logger
}

// AvatarLoader installs or updates the Custom Avatar Loader mod from its
// latest GitHub release.
type AvatarLoader struct {
	cfg AvatarLoaderConfig
}

// NewAvatarLoader creates an AvatarLoader, filling unset optional fields.
func NewAvatarLoader(cfg AvatarLoaderConfig) *AvatarLoader {
	if cfg.Reporter == nil {
		cfg.Reporter = report.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &AvatarLoader{cfg: cfg}
}

// VersionPath is the marker recording the installed mod release tag.
func (a *AvatarLoader) VersionPath(installDir string) string {
	return filepath.Join(installDir, a.cfg.Source.VersionFile)
}

// Installed returns the recorded release tag, "" if none.
func (a *AvatarLoader) Installed(installDir string) (string, error) {
	return ReadVersion(a.VersionPath(installDir))
}

// Install brings the mod in installDir up to the latest release. Release
// lookups that fail only skip the step.
func (a *AvatarLoader) Install(ctx context.Context, installDir string) (Result, error) {
	rep, log, src := a.cfg.Reporter, a.cfg.Logger, a.cfg.Source

	installed, err := a.Installed(installDir)
	if err != nil {
		return Result{}, fmt.Errorf("read avatar loader version: %w", err)
	}

	rep.Info("Checking for Custom Avatar Loader mod updates...")
	rel, err := a.cfg.Releases.LatestRelease(ctx, src.Owner, src.Repo, src.Asset)
	if err != nil {
		rep.Warning("Could not retrieve latest Custom Avatar Loader mod release info. Skipping update check.")
		log.Warn("avatar loader release lookup failed", slog.String("error", err.Error()))
		return Result{Action: ActionSkipped, Version: installed}, nil
	}

	if installed == rel.Tag {
		rep.Success(fmt.Sprintf("Custom Avatar Loader mod is up-to-date (version %s).", installed))
		log.Info("avatar loader up-to-date", slog.String("version", installed))
		return Result{Action: ActionUpToDate, Version: installed}, nil
	}

	action := ActionInstalled
	if installed == "" {
		rep.Warning("Custom Avatar Loader mod not installed. Installing now...")
		log.Info("avatar loader not installed, installing", slog.String("version", rel.Tag))
	} else {
		msg := fmt.Sprintf("Custom Avatar Loader mod update available: Installed version: %s, Latest version: %s", installed, rel.Tag)
		rep.Warning(msg)
		log.Info(msg)
		a.showNotes(rel.Notes)

		ok, err := a.confirmUpdate()
		if err != nil {
			return Result{}, err
		}
		if !ok {
			rep.Warning("Skipping Custom Avatar Loader mod update.")
			log.Info("user opted to skip avatar loader update")
			return Result{Action: ActionSkipped, Version: installed}, nil
		}
		action = ActionUpdated
	}

	if rel.DownloadURL == "" {
		return Result{}, fmt.Errorf("%w: %s/%s %s has no %s asset", github.ErrNoRelease, src.Owner, src.Repo, rel.Tag, src.Asset)
	}
	if err := a.deploy(ctx, rel.DownloadURL, installDir); err != nil {
		return Result{}, err
	}
	if err := WriteVersion(a.VersionPath(installDir), rel.Tag); err != nil {
		return Result{}, fmt.Errorf("write avatar loader version: %w", err)
	}

	rep.Success("Custom Avatar Loader mod installed/updated successfully.")
	log.Info("avatar loader installed", slog.String("version", rel.Tag), slog.String("previous", installed))
	return Result{Action: action, Version: rel.Tag}, nil
}

func (a *AvatarLoader) showNotes(notes string) {
	if strings.TrimSpace(notes) == "" || a.cfg.Notes == nil {
		return
	}
	out, err := a.cfg.Notes(notes)
	if err != nil {
		a.cfg.Logger.Debug("render release notes", slog.String("error", err.Error()))
		out = notes
	}
	fmt.Fprintln(a.cfg.Reporter.Writer(), out)
}

func (a *AvatarLoader) confirmUpdate() (bool, error) {
	if a.cfg.AssumeYes {
		return true, nil
	}
	if a.cfg.Confirmer == nil {
		return false, nil
	}
	ok, err := a.cfg.Confirmer.Confirm(UpdatePrompt)
	if err != nil {
		return false, fmt.Errorf("update confirmation: %w", err)
	}
	return ok, nil
}

// deploy downloads the release zip and copies its mod directories into
// installDir.
func (a *AvatarLoader) deploy(ctx context.Context, url, installDir string) error {
	a.cfg.Reporter.Info("Downloading Custom Avatar Loader mod...")
	a.cfg.Logger.Info("downloading avatar loader", slog.String("url", url))

	zipPath := fetch.TempPath("custom_avatar", "zip")
	if err := a.cfg.Downloader.Download(ctx, url, zipPath); err != nil {
		a.cfg.Reporter.Error(fmt.Sprintf("ERROR: Failed to download Custom Avatar Loader mod: %v", err))
		return fmt.Errorf("download avatar loader: %w", err)
	}
	defer os.Remove(zipPath)

	extractDir := filepath.Join(a.cfg.WorkDir, avatarExtractDir)
	if err := archive.ResetDir(extractDir); err != nil {
		return fmt.Errorf("prepare %s: %w", extractDir, err)
	}
	defer os.RemoveAll(extractDir)

	if err := archive.ExtractZip(zipPath, extractDir); err != nil {
		return fmt.Errorf("extract avatar loader: %w", err)
	}
	root, err := archive.SingleRoot(extractDir)
	if err != nil {
		return fmt.Errorf("inspect avatar loader archive: %w", err)
	}
	if a.isModDir(filepath.Base(root)) && root != extractDir {
		root = extractDir
	}

	copied := 0
	for _, name := range a.cfg.Source.Dirs {
		from := filepath.Join(root, name)
		if !archive.Exists(from) {
			continue
		}
		if err := archive.CopyDir(from, filepath.Join(installDir, name)); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
		copied++
	}
	if copied == 0 {
		return fmt.Errorf("%w: expected one of %s", ErrNoModDirs, strings.Join(a.cfg.Source.Dirs, ", "))
	}
	return nil
}

func (a *AvatarLoader) isModDir(name string) bool {
	for _, d := range a.cfg.Source.Dirs {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}
