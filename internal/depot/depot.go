// Package depot drives DepotDownloader to fetch the game files from Steam.
package depot

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
	"github.com/desktopmate-tools/dminstall/internal/tools"
)

var (
	// ErrToolMissing is returned when DepotDownloader is still absent after
	// downloading and extracting its release.
	ErrToolMissing = errors.New("depot: DepotDownloader executable missing")
	// ErrExitCode is returned when DepotDownloader exits unsuccessfully.
	ErrExitCode = errors.New("depot: DepotDownloader failed")
)

const redacted = "********"

// Credentials authenticate against Steam.
type Credentials struct {
	Username string
	Password string
}

// CredentialsFunc supplies credentials on demand. It is only called when the
// depot actually has to be downloaded.
type CredentialsFunc func() (Credentials, error)

// Result describes what Download did.
type Result struct {
	Skipped bool
}

// Config wires a Depot.
type Config struct {
	ToolsDir   string
	Tool       manifest.DepotDownloader
	Game       manifest.Game
	Downloader fetch.Downloader
	Streamer   tools.Streamer
	Reporter   report.Reporter
	Logger     *slog.Logger
}

// Depot manages the DepotDownloader tool and the game depot download.
type Depot struct {
	toolDir  string
	tool     manifest.DepotDownloader
	game     manifest.Game
	dl       fetch.Downloader
	streamer tools.Streamer
	rep      report.Reporter
	logger   *slog.Logger
}

// New creates a Depot.
func New(cfg Config) *Depot {
	d := &Depot{
		toolDir:  filepath.Join(cfg.ToolsDir, cfg.Tool.Dir),
		tool:     cfg.Tool,
		game:     cfg.Game,
		dl:       cfg.Downloader,
		streamer: cfg.Streamer,
		rep:      cfg.Reporter,
		logger:   cfg.Logger,
	}
	if d.streamer == nil {
		d.streamer = tools.ExecStreamer{}
	}
	if d.rep == nil {
		d.rep = report.Nop{}
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	return d
}

// ToolPath is where DepotDownloader's executable is expected.
func (d *Depot) ToolPath() string {
	return filepath.Join(d.toolDir, d.tool.Executable)
}

// EnsureTool downloads and unpacks DepotDownloader when it is not present.
func (d *Depot) EnsureTool(ctx context.Context) error {
	exe := d.ToolPath()
	if archive.Exists(exe) {
		d.logger.Debug("depotdownloader present", slog.String("path", exe))
		return nil
	}

	d.rep.Warning("DepotDownloader.exe not found! Downloading now...")
	d.logger.Info("depotdownloader not found, downloading", slog.String("url", d.tool.URL))

	zipPath := fetch.TempPath("DepotDownloader", "zip")
	if err := d.dl.Download(ctx, d.tool.URL, zipPath); err != nil {
		return fmt.Errorf("download DepotDownloader: %w", err)
	}
	defer os.Remove(zipPath)

	d.rep.Success("Extracting DepotDownloader...")
	if err := archive.ExtractZip(zipPath, d.toolDir); err != nil {
		return fmt.Errorf("extract DepotDownloader: %w", err)
	}
	if !archive.Exists(exe) {
		return fmt.Errorf("%w: %s", ErrToolMissing, exe)
	}

	d.rep.Success("DepotDownloader downloaded and extracted successfully.")
	d.logger.Info("depotdownloader ready", slog.String("path", exe))
	return nil
}

// DataPath is the directory whose presence marks a completed depot download.
func (d *Depot) DataPath(installDir string) string {
	return filepath.Join(installDir, d.game.DataDir)
}

// Installed reports whether the game files are already present.
func (d *Depot) Installed(installDir string) bool {
	return archive.Exists(d.DataPath(installDir))
}

// Args builds the DepotDownloader command line.
func (d *Depot) Args(creds Credentials, installDir string) []string {
	return []string{
		"-app", d.game.AppID,
		"-depot", d.game.DepotID,
		"-manifest", d.game.ManifestID,
		"-username", creds.Username,
		"-password", creds.Password,
		"-dir", installDir,
	}
}

// Redact returns a copy of args with the password value masked.
func Redact(args []string) []string {
	out := append([]string(nil), args...)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "-password" {
			out[i+1] = redacted
		}
	}
	return out
}

// Download fetches the game depot into installDir unless it is already there.
func (d *Depot) Download(ctx context.Context, installDir string, credentials CredentialsFunc) (Result, error) {
	if d.Installed(installDir) {
		d.rep.Warning("DesktopMate files already exist. Skipping depot download.")
		d.logger.Info("depot present, skipping download", slog.String("path", d.DataPath(installDir)))
		return Result{Skipped: true}, nil
	}

	creds, err := credentials()
	if err != nil {
		return Result{}, fmt.Errorf("steam credentials: %w", err)
	}
	d.logger.Info("steam credentials collected", slog.String("username", creds.Username))

	args := d.Args(creds, installDir)
	d.rep.Info("Downloading DesktopMate depot (via DepotDownloader)...")
	d.logger.Info("running depotdownloader", slog.Any("args", Redact(args)))

	code, err := d.streamer.Stream(ctx, d.ToolPath(), args,
		func(line string) {
			d.rep.Println(line)
			d.logger.Info(line, slog.String("source", "depotdownloader"), slog.String("stream", "stdout"))
		},
		func(line string) {
			d.rep.Error(line)
			d.logger.Warn(line, slog.String("source", "depotdownloader"), slog.String("stream", "stderr"))
		},
	)
	if err != nil {
		return Result{}, fmt.Errorf("run DepotDownloader: %w", err)
	}
	if code != 0 {
		return Result{}, fmt.Errorf("%w: exit code = %d", ErrExitCode, code)
	}

	d.rep.Success("Depot download complete.")
	d.logger.Info("depot download complete")
	return Result{}, nil
}
