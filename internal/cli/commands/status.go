package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/desktopmate-tools/dminstall/internal/archive"
	"github.com/desktopmate-tools/dminstall/internal/cli/output"
	"github.com/desktopmate-tools/dminstall/internal/depot"
	"github.com/desktopmate-tools/dminstall/internal/manifest"
	"github.com/desktopmate-tools/dminstall/internal/mods"
	"github.com/desktopmate-tools/dminstall/internal/patch"
	"github.com/desktopmate-tools/dminstall/internal/state"
)

// ComponentStatus is the on-disk state of one component.
type ComponentStatus struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Version string `json:"version,omitempty"`
	Path    string `json:"path"`
}

// RecordedComponent is what the last run did to a component.
type RecordedComponent struct {
	Name        string    `json:"name"`
	Version     string    `json:"version,omitempty"`
	Action      string    `json:"action"`
	InstalledAt time.Time `json:"installed_at"`
}

// StatusOutput is the JSON output for the status command.
type StatusOutput struct {
	InstallDir string              `json:"install_dir"`
	Components []ComponentStatus   `json:"components"`
	LastRun    *RunOutput          `json:"last_run,omitempty"`
	History    []RecordedComponent `json:"history"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what is installed in the install directory",
		Long: `Show the state of every component in the install directory:
game files, DepotDownloader, the Goldberg patch and the mod loader versions,
followed by what the last run recorded for the same directory.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer

	m, err := cc.loadManifest()
	if err != nil {
		return err
	}
	installDir := cc.installDirOrDefault()
	out := &StatusOutput{
		InstallDir: installDir,
		Components: cc.componentStatus(m, installDir),
	}

	store, err := cc.openExistingStore()
	if err != nil {
		r.Warning("Install history is unavailable: " + err.Error())
	} else if store != nil {
		defer store.Close()
		if err := loadLastRun(store, installDir, out); err != nil {
			return err
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderStatusMarkdown(r, out)
	default:
		renderStatusText(r, out)
	}
	return nil
}

func loadLastRun(store *state.SQLiteStore, installDir string, out *StatusOutput) error {
	run, err := store.LastRun(installDir)
	if errors.Is(err, state.ErrRunNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read install history: %w", err)
	}
	comps, err := store.ComponentsForRun(run.ID)
	if err != nil {
		return fmt.Errorf("failed to read install history: %w", err)
	}
	out.LastRun = &RunOutput{
		ID:          run.ID,
		InstallDir:  run.InstallDir,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Error:       run.Error,
	}
	for _, c := range comps {
		out.History = append(out.History, RecordedComponent{
			Name:        c.Name,
			Version:     c.Version,
			Action:      c.Action,
			InstalledAt: c.InstalledAt,
		})
	}
	return nil
}

func (c *CommandContext) componentStatus(m *manifest.Manifest, installDir string) []ComponentStatus {
	d := depot.New(depot.Config{ToolsDir: c.Cfg.ToolsDir, Tool: m.DepotDownloader, Game: m.Game})
	g := patch.New(m.Goldberg, nil)
	ml := mods.NewMelonLoader(m.MelonLoader, nil, nil, nil)
	al := mods.NewAvatarLoader(mods.AvatarLoaderConfig{Source: m.AvatarLoader})

	present := func(ok bool, yes, no string) string {
		if ok {
			return yes
		}
		return no
	}
	version := func(name, path string, read func(string) (string, error)) ComponentStatus {
		cs := ComponentStatus{Name: name, Path: path, State: "missing"}
		v, err := read(installDir)
		switch {
		case err != nil:
			cs.State = "unreadable"
		case v != "":
			cs.State, cs.Version = "installed", v
		}
		return cs
	}

	return []ComponentStatus{
		{Name: "game files", Path: d.DataPath(installDir), State: present(d.Installed(installDir), "present", "missing")},
		{Name: "DepotDownloader", Path: d.ToolPath(), State: present(archive.Exists(d.ToolPath()), "present", "missing")},
		{Name: "Goldberg patch", Path: g.TargetPath(installDir), State: present(g.Applied(installDir), "applied", "not applied")},
		version("MelonLoader", ml.VersionPath(installDir), ml.Installed),
		version("Custom Avatar Loader", al.VersionPath(installDir), al.Installed),
	}
}

func statusTables(out *StatusOutput) (table.Writer, table.Writer) {
	components := table.NewWriter()
	components.SetStyle(table.StyleLight)
	components.AppendHeader(table.Row{"Component", "State", "Version", "Path"})
	for _, c := range out.Components {
		components.AppendRow(table.Row{c.Name, c.State, c.Version, c.Path})
	}

	var history table.Writer
	if len(out.History) > 0 {
		history = table.NewWriter()
		history.SetStyle(table.StyleLight)
		history.AppendHeader(table.Row{"Component", "Version", "Action", "When"})
		for _, h := range out.History {
			history.AppendRow(table.Row{h.Name, h.Version, h.Action, humanize.Time(h.InstalledAt)})
		}
	}
	return components, history
}

func renderStatusText(r *output.Renderer, out *StatusOutput) {
	styles := r.Styles()
	components, history := statusTables(out)

	r.Println(styles.Header1.Render("Install directory: " + out.InstallDir))
	r.Println("")
	renderTableTo(r.Writer(), components)
	if out.LastRun == nil {
		r.Println(styles.Muted.Render("No install history for this directory."))
		return
	}
	r.Println("")
	r.Println(styles.Header2.Render("Last run"))
	r.Println(lastRunLine(out.LastRun))
	if history != nil {
		renderTableTo(r.Writer(), history)
	}
}

func renderStatusMarkdown(r *output.Renderer, out *StatusOutput) {
	components, history := statusTables(out)

	r.Println(output.FormatHeader(1, "Install status"))
	r.Println("")
	r.Println(output.FormatKeyValue("Install directory", out.InstallDir))
	r.Println("")
	r.Println(components.RenderMarkdown())
	if out.LastRun == nil {
		return
	}
	r.Println("")
	r.Println(output.FormatHeader(2, "Last run"))
	r.Println("")
	r.Println(lastRunLine(out.LastRun))
	if history != nil {
		r.Println("")
		r.Println(history.RenderMarkdown())
	}
}

func lastRunLine(run *RunOutput) string {
	line := fmt.Sprintf("%s %s, %s", shortID(run.ID), run.Status, humanize.Time(run.StartedAt))
	if run.Error != "" {
		line += ": " + run.Error
	}
	return line
}

func renderTableTo(w io.Writer, t table.Writer) {
	t.SetOutputMirror(w)
	t.Render()
}
