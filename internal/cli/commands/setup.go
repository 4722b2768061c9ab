// Package commands implements the dminstall subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/desktopmate-tools/dminstall/internal/cli/config"
	"github.com/desktopmate-tools/dminstall/internal/cli/output"
	"github.com/desktopmate-tools/dminstall/internal/manifest"
	"github.com/desktopmate-tools/dminstall/internal/prompt"
	"github.com/desktopmate-tools/dminstall/internal/state"
)

// AppTitle is shown in the banner and the terminal title.
const AppTitle = "DesktopMate Installer"

// CommandContext holds the per-command dependencies.
type CommandContext struct {
	Cfg      *config.Config
	CfgFile  string
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds a CommandContext from the configuration the root
// command stored in the context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	loaded, err := getConfig(cmd.Context())
	if err != nil {
		return nil, err
	}
	mode, err := output.ParseMode(loaded.OutputFormat)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      loaded.Config,
		CfgFile:  loaded.FileUsed,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// getConfig returns the configuration loaded by the root command, loading
// one without flags when a command runs standalone.
func getConfig(ctx context.Context) (*config.Loaded, error) {
	if ctx != nil {
		if l := config.FromContext(ctx); l != nil {
			return l, nil
		}
	}
	return config.Load("", nil)
}

// installDirOrDefault is the configured install directory, else the
// platform default.
func (c *CommandContext) installDirOrDefault() string {
	if c.Cfg.InstallDir != "" {
		return c.Cfg.InstallDir
	}
	return config.DefaultInstallDir()
}

func (c *CommandContext) loadManifest() (*manifest.Manifest, error) {
	m, err := manifest.Load(c.Cfg.Manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return m, nil
}

// openStore opens the history database read-write and migrates it.
func (c *CommandContext) openStore() (*state.SQLiteStore, error) {
	store, err := state.OpenAndMigrate(c.Cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database %s: %w", c.Cfg.StatePath, err)
	}
	return store, nil
}

// openExistingStore opens the history database only if it exists. It
// returns nil without error when there is no history yet.
func (c *CommandContext) openExistingStore() (*state.SQLiteStore, error) {
	if _, err := os.Stat(c.Cfg.StatePath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return c.openStore()
}

// newPrompter picks a terminal prompter for interactive sessions and a
// line reader otherwise. interactive reports which one was chosen.
var newPrompter = func(cmd *cobra.Command) (p prompt.Prompter, interactive bool, closeFn func(), err error) {
	if cmd.InOrStdin() == os.Stdin && prompt.IsInteractive() {
		t, err := prompt.NewTerminal()
		if err != nil {
			return nil, false, nil, err
		}
		return t, true, func() { _ = t.Close() }, nil
	}
	return prompt.NewScripted(cmd.InOrStdin(), cmd.OutOrStdout()), false, func() {}, nil
}

const logSeparator = "------------------------------------------------------------"

// openInstallLog opens the install log in append mode and writes the
// session header.
func openInstallLog(path string, verbose bool) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	logger.Info(logSeparator)
	logger.Info("Starting " + AppTitle)
	return logger, f, nil
}
