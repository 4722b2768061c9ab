package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/desktopmate-tools/dminstall/internal/cli/config"
	"github.com/desktopmate-tools/dminstall/internal/cli/output"
	"github.com/desktopmate-tools/dminstall/internal/depot"
	"github.com/desktopmate-tools/dminstall/internal/fetch"
	"github.com/desktopmate-tools/dminstall/internal/github"
	"github.com/desktopmate-tools/dminstall/internal/installer"
	"github.com/desktopmate-tools/dminstall/internal/mods"
	"github.com/desktopmate-tools/dminstall/internal/patch"
	"github.com/desktopmate-tools/dminstall/internal/prompt"
	"github.com/desktopmate-tools/dminstall/internal/shortcut"
	"github.com/desktopmate-tools/dminstall/internal/tools"
)

// Prompts shown during an install.
const (
	installDirPrompt = "Enter installation path (default: %s): "
	usernamePrompt   = "Enter your Steam username: "
	usernameRetry    = "Steam username is required."
	passwordPrompt   = "Enter your Steam password: "
	exitPrompt       = "Installation complete. Press any key to exit."
	failPrompt       = "Installation failed. Press any key to exit."
	notesWidth       = 80
)

// InstallOptions are the install command's own flags.
type InstallOptions struct {
	SkipDepot     bool
	SkipShortcuts bool
	NoPause       bool
}

// NewInstallCommand creates the install command.
func NewInstallCommand() *cobra.Command {
	var opts InstallOptions

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Download, patch and mod DesktopMate",
		Long: `Install DesktopMate into the install directory.

Steps, in order:
  1. Ensure DepotDownloader is available
  2. Download the game depot from Steam
  3. Apply the Goldberg Steam emulator patch
  4. Install MelonLoader
  5. Install or update the Custom Avatar Loader mod
  6. Create desktop shortcuts

The run stops at the first failing step.`,
		Example: `  # Install interactively
  dminstall install

  # Install into a given directory without touching the desktop
  dminstall install --install-dir ~/Games/DesktopMate --skip-shortcuts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunInstall(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipDepot, "skip-depot", false, "Skip the DepotDownloader steps")
	cmd.Flags().BoolVar(&opts.SkipShortcuts, "skip-shortcuts", false, "Do not create desktop shortcuts")
	cmd.Flags().String("username", "", "Steam username")
	cmd.Flags().BoolVar(&opts.NoPause, "no-pause", false, "Exit without waiting for a key press")

	return cmd
}

// RunInstall runs the install pipeline for cmd.
func RunInstall(cmd *cobra.Command, opts InstallOptions) error {
	ctx := cmd.Context()
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, r := cc.Cfg, cc.Renderer

	logger := cc.Logger
	if fileLogger, closer, err := openInstallLog(cfg.LogFile, cfg.Verbose); err != nil {
		r.Warning(fmt.Sprintf("Could not open log file %s: %v", cfg.LogFile, err))
	} else {
		defer closer.Close()
		logger = fileLogger
	}

	r.SetTitle(AppTitle)
	r.Banner(AppTitle)

	p, interactive, closePrompter, err := newPrompter(cmd)
	if err != nil {
		return err
	}
	defer closePrompter()
	pause := func(msg string) {
		if opts.NoPause || !interactive {
			return
		}
		_ = p.Pause(msg)
	}

	installDir := cfg.InstallDir
	if installDir == "" {
		def := config.DefaultInstallDir()
		installDir, err = p.Line(fmt.Sprintf(installDirPrompt, def), def)
		if err != nil {
			return err
		}
	}
	r.Success("Installation directory: " + installDir)
	logger.Info("install directory selected", slog.String("path", installDir))

	m, err := cc.loadManifest()
	if err != nil {
		return err
	}

	deps := installer.Deps{
		Manifest:    m,
		Credentials: steamCredentials(cfg, p),
		Reporter:    r,
		Logger:      logger,
	}
	if store, err := cc.openStore(); err != nil {
		r.Warning("Install history is unavailable: " + err.Error())
		logger.Warn("state database unavailable", slog.String("error", err.Error()))
	} else {
		defer store.Close()
		deps.Store = store
	}

	client := newFetchClient(cfg, r, logger)
	deps.Depot = depot.New(depot.Config{
		ToolsDir:   cfg.ToolsDir,
		Tool:       m.DepotDownloader,
		Game:       m.Game,
		Downloader: client,
		Reporter:   r,
		Logger:     logger,
	})
	deps.Patcher = patch.New(m.Goldberg, client, patch.WithReporter(r), patch.WithLogger(logger))
	deps.MelonLoader = mods.NewMelonLoader(m.MelonLoader, client, r, logger)
	deps.AvatarLoader = mods.NewAvatarLoader(mods.AvatarLoaderConfig{
		Source:     m.AvatarLoader,
		Releases:   github.NewClient(cfg.GitHubAPI, client.HTTP()),
		Downloader: client,
		Confirmer:  p,
		AssumeYes:  cfg.Yes,
		Notes:      notesRenderer(r),
		Reporter:   r,
		Logger:     logger,
	})
	desktop, err := shortcut.DesktopDir(cfg.DesktopDir)
	if err != nil {
		logger.Warn("desktop directory not found", slog.String("error", err.Error()))
	}
	deps.Shortcuts = shortcut.ForPlatform("", desktop, tools.ExecRunner{})

	inst := installer.New(deps, installer.Options{
		InstallDir:    installDir,
		SkipDepot:     opts.SkipDepot,
		SkipShortcuts: opts.SkipShortcuts,
	})
	summary, err := inst.Run(ctx)
	if err != nil {
		r.Error(err.Error())
		logger.Error("installation failed", slog.String("error", err.Error()))
		pause(failPrompt)
		return err
	}

	logger.Info("installation complete",
		slog.String("run_id", summary.RunID),
		slog.Int("components", len(summary.Records)),
		slog.Duration("duration", summary.Duration),
	)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(summary)
	}
	pause(exitPrompt)
	return nil
}

// steamCredentials prefers configured credentials and asks for the rest.
func steamCredentials(cfg *config.Config, p prompt.Prompter) depot.CredentialsFunc {
	return func() (depot.Credentials, error) {
		creds := depot.Credentials{Username: cfg.Steam.Username, Password: cfg.Steam.Password}
		var err error
		if creds.Username == "" {
			if creds.Username, err = p.Required(usernamePrompt, usernameRetry); err != nil {
				return creds, err
			}
		}
		if creds.Password == "" {
			if creds.Password, err = p.Password(passwordPrompt); err != nil {
				return creds, err
			}
		}
		return creds, nil
	}
}

func newFetchClient(cfg *config.Config, r *output.Renderer, logger *slog.Logger) *fetch.Client {
	httpCfg := fetch.DefaultConfig()
	httpCfg.Timeout = cfg.HTTP.Timeout
	opts := []fetch.Option{
		fetch.WithHTTPClient(fetch.NewHTTPClient(httpCfg)),
		fetch.WithLogger(logger),
	}
	if r.EffectiveMode() == output.ModeText {
		opts = append(opts, fetch.WithProgress(fetch.NewBarFactory(r.Writer())))
	}
	return fetch.New(opts...)
}

// notesRenderer styles release notes for terminals and keeps them as plain
// markdown otherwise.
func notesRenderer(r *output.Renderer) mods.NotesRenderer {
	if r.EffectiveMode() == output.ModeText {
		return mods.GlamourNotes(notesWidth)
	}
	return func(md string) (string, error) { return md, nil }
}
