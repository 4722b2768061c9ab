// Package installer runs the install pipeline: game depot, emulator patch,
// mod loaders and desktop shortcuts, in that order.
package installer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/desktopmate-tools/dminstall/internal/depot"
	"github.com/desktopmate-tools/dminstall/internal/manifest"
	"github.com/desktopmate-tools/dminstall/internal/mods"
	"github.com/desktopmate-tools/dminstall/internal/patch"
	"github.com/desktopmate-tools/dminstall/internal/report"
	"github.com/desktopmate-tools/dminstall/internal/shortcut"
	"github.com/desktopmate-tools/dminstall/internal/state"
)

// Step names, in execution order.
const (
	StepEnsureTool    = "ensure-depot-tool"
	StepDepotDownload = "depot-download"
	StepGoldberg      = "goldberg-patch"
	StepMelonLoader   = "melonloader"
	StepAvatarLoader  = "avatar-loader"
	StepShortcuts     = "shortcuts"
)

// Component actions recorded by steps that have no richer outcome.
const (
	ActionInstalled = "installed"
	ActionSkipped   = "skipped"
	ActionPresent   = "present"
	ActionPatched   = "patched"
)

// ErrNoInstallDir is returned when Run is called without an install directory.
var ErrNoInstallDir = errors.New("installer: install directory is required")

// StepError identifies the step that stopped a run.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// DepotTool fetches DepotDownloader and the game depot.
type DepotTool interface {
	EnsureTool(ctx context.Context) error
	Download(ctx context.Context, installDir string, credentials depot.CredentialsFunc) (depot.Result, error)
}

// Patcher applies the emulator patch.
type Patcher interface {
	Apply(ctx context.Context, installDir string) (patch.Result, error)
}

// ModInstaller installs one mod component.
type ModInstaller interface {
	Install(ctx context.Context, installDir string) (mods.Result, error)
}

// Options select what a run does.
type Options struct {
	InstallDir    string
	SkipDepot     bool
	SkipShortcuts bool
}

// Deps are the collaborators a run drives.
type Deps struct {
	Depot        DepotTool
	Patcher      Patcher
	MelonLoader  ModInstaller
	AvatarLoader ModInstaller
	Shortcuts    shortcut.Creator
	Manifest     *manifest.Manifest
	Credentials  depot.CredentialsFunc
	// Store records run history. Nil disables recording.
	Store    state.Store
	Reporter report.Reporter
	Logger   *slog.Logger
}

// Record is what one step did to one component.
type Record struct {
	Name    string
	Version string
	Action  string
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Records  []Record
	Duration time.Duration
}

type step struct {
	name  string
	title string
	skip  bool
	// component is recorded as skipped when skip is set.
	component string
	run       func(ctx context.Context) ([]Record, error)
}

// Installer executes the pipeline.
type Installer struct {
	deps Deps
	opts Options
}

// New creates an Installer.
func New(deps Deps, opts Options) *Installer {
	if deps.Reporter == nil {
		deps.Reporter = report.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Installer{deps: deps, opts: opts}
}

// StepNames lists every step in execution order.
func StepNames() []string {
	return []string{StepEnsureTool, StepDepotDownload, StepGoldberg, StepMelonLoader, StepAvatarLoader, StepShortcuts}
}

func (in *Installer) steps() []step {
	dir := in.opts.InstallDir
	return []step{
		{
			name:  StepEnsureTool,
			title: "Checking DepotDownloader...",
			skip:  in.opts.SkipDepot,
			run: func(ctx context.Context) ([]Record, error) {
				return nil, in.deps.Depot.EnsureTool(ctx)
			},
		},
		{
			name:      StepDepotDownload,
			title:     "Checking DesktopMate depot...",
			skip:      in.opts.SkipDepot,
			component: "depot",
			run: func(ctx context.Context) ([]Record, error) {
				res, err := in.deps.Depot.Download(ctx, dir, in.deps.Credentials)
				if err != nil {
					return nil, err
				}
				action := ActionInstalled
				if res.Skipped {
					action = ActionPresent
				}
				return []Record{{Name: "depot", Version: in.deps.Manifest.Game.ManifestID, Action: action}}, nil
			},
		},
		{
			name:  StepGoldberg,
			title: "Applying Goldberg offline patch...",
			run: func(ctx context.Context) ([]Record, error) {
				if _, err := in.deps.Patcher.Apply(ctx, dir); err != nil {
					return nil, err
				}
				return []Record{{Name: "goldberg", Action: ActionPatched}}, nil
			},
		},
		{
			name:  StepMelonLoader,
			title: "Checking MelonLoader...",
			run:   in.modStep("melonloader", in.deps.MelonLoader),
		},
		{
			name:  StepAvatarLoader,
			title: "Checking Custom Avatar Loader mod...",
			run:   in.modStep("custom-avatar-loader", in.deps.AvatarLoader),
		},
		{
			name:      StepShortcuts,
			title:     "Creating desktop shortcuts...",
			skip:      in.opts.SkipShortcuts,
			component: "shortcuts",
			run:       in.createShortcuts,
		},
	}
}

func (in *Installer) modStep(component string, m ModInstaller) func(context.Context) ([]Record, error) {
	return func(ctx context.Context) ([]Record, error) {
		res, err := m.Install(ctx, in.opts.InstallDir)
		if err != nil {
			return nil, err
		}
		return []Record{{Name: component, Version: res.Version, Action: string(res.Action)}}, nil
	}
}

func (in *Installer) createShortcuts(ctx context.Context) ([]Record, error) {
	if err := in.deps.Shortcuts.Available(); err != nil {
		in.deps.Reporter.Error("ERROR: Cannot determine Desktop directory.")
		return nil, err
	}
	exe := filepath.Join(in.opts.InstallDir, in.deps.Manifest.Game.Executable)

	var records []Record
	for _, sc := range in.deps.Manifest.Shortcuts {
		path, err := in.deps.Shortcuts.Create(ctx, shortcut.Shortcut{
			Name:      sc.Name,
			Target:    exe,
			WorkDir:   in.opts.InstallDir,
			Arguments: sc.Arguments,
		})
		if err != nil {
			return nil, fmt.Errorf("shortcut %s: %w", sc.Name, err)
		}
		in.deps.Logger.Info("shortcut created", slog.String("path", path))
		records = append(records, Record{Name: "shortcut:" + sc.Name, Action: ActionInstalled})
	}
	in.deps.Reporter.Success("Desktop shortcuts created successfully.")
	return records, nil
}

// Run executes every step in order and stops at the first failure, which is
// returned as a *StepError.
func (in *Installer) Run(ctx context.Context) (*Summary, error) {
	rep, log := in.deps.Reporter, in.deps.Logger
	start := time.Now()

	if in.opts.InstallDir == "" {
		return nil, ErrNoInstallDir
	}
	if err := os.MkdirAll(in.opts.InstallDir, 0o755); err != nil {
		return nil, fmt.Errorf("create install directory: %w", err)
	}

	summary := &Summary{}
	if in.deps.Store != nil {
		run, err := in.deps.Store.CreateRun(in.opts.InstallDir)
		if err != nil {
			log.Warn("run history unavailable", slog.String("error", err.Error()))
		} else {
			summary.RunID = run.ID
		}
	}
	log.Info("install started", slog.String("install_dir", in.opts.InstallDir), slog.String("run_id", summary.RunID))

	for _, s := range in.steps() {
		if err := ctx.Err(); err != nil {
			return summary, in.finish(summary, start, &StepError{Step: s.name, Err: err})
		}
		if s.skip {
			log.Info("step skipped", slog.String("step", s.name))
			if s.component != "" {
				in.record(summary, Record{Name: s.component, Action: ActionSkipped})
			}
			continue
		}

		rep.Info(s.title)
		log.Info("step started", slog.String("step", s.name))
		records, err := s.run(ctx)
		if err != nil {
			log.Error("step failed", slog.String("step", s.name), slog.String("error", err.Error()))
			return summary, in.finish(summary, start, &StepError{Step: s.name, Err: err})
		}
		for _, r := range records {
			in.record(summary, r)
		}
		log.Info("step finished", slog.String("step", s.name))
	}

	if err := in.finish(summary, start, nil); err != nil {
		return summary, err
	}
	rep.Success("DesktopMate installation complete!")
	return summary, nil
}

func (in *Installer) record(summary *Summary, r Record) {
	summary.Records = append(summary.Records, r)
	if in.deps.Store == nil || summary.RunID == "" {
		return
	}
	err := in.deps.Store.RecordComponent(state.Component{
		RunID:   summary.RunID,
		Name:    r.Name,
		Version: r.Version,
		Action:  r.Action,
	})
	if err != nil {
		in.deps.Logger.Warn("record component", slog.String("component", r.Name), slog.String("error", err.Error()))
	}
}

// finish stores the run outcome and passes runErr through.
func (in *Installer) finish(summary *Summary, start time.Time, runErr error) error {
	summary.Duration = time.Since(start)
	status, msg := state.RunStatusCompleted, ""
	if runErr != nil {
		status, msg = state.RunStatusFailed, runErr.Error()
	}
	in.deps.Logger.Info("install finished",
		slog.String("status", string(status)),
		slog.Duration("duration", summary.Duration),
	)
	if in.deps.Store != nil && summary.RunID != "" {
		if err := in.deps.Store.CompleteRun(summary.RunID, status, msg); err != nil {
			in.deps.Logger.Warn("complete run", slog.String("error", err.Error()))
		}
	}
	return runErr
}
