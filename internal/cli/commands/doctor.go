package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/desktopmate-tools/dminstall/internal/cli/output"
	"github.com/desktopmate-tools/dminstall/internal/depot"
	"github.com/desktopmate-tools/dminstall/internal/manifest"
	"github.com/desktopmate-tools/dminstall/internal/shortcut"
)

// Check statuses.
const (
	StatusPass  = "pass"
	StatusWarn  = "warn"
	StatusError = "error"
)

// ErrChecksFailed is returned when at least one doctor check errors.
var ErrChecksFailed = errors.New("doctor: checks failed")

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// HealthCheck is a single doctor check result.
type HealthCheck struct {
	Name   string `json:"name"`
	Group  string `json:"group"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Checks []HealthCheck `json:"checks"`
	Errors int           `json:"errors"`
	Warns  int           `json:"warnings"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the installer can run here",
		Long: `Check the environment the installer depends on:
- the install directory is writable
- DepotDownloader is present or can be downloaded
- a desktop directory and shortcut backend are available
- the state database, when present, opens and is migrated
- the component manifest is valid

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer

	out := &DoctorOutput{Checks: cc.healthChecks()}
	for _, c := range out.Checks {
		switch c.Status {
		case StatusError:
			out.Errors++
		case StatusWarn:
			out.Warns++
		}
	}

	if err := renderDoctor(r, out); err != nil {
		return err
	}
	if out.Errors > 0 {
		return fmt.Errorf("%w: %d of %d", ErrChecksFailed, out.Errors, len(out.Checks))
	}
	return nil
}

func (c *CommandContext) healthChecks() []HealthCheck {
	installDir := c.installDirOrDefault()
	checks := []HealthCheck{checkWritable(installDir)}

	m, err := c.loadManifest()
	source := "embedded"
	if c.Cfg.Manifest != "" {
		source = c.Cfg.Manifest
	}
	if err != nil {
		checks = append(checks, HealthCheck{Name: "manifest", Group: "environment", Status: StatusError, Detail: err.Error()})
	} else {
		checks = append(checks, HealthCheck{Name: "manifest", Group: "environment", Status: StatusPass, Detail: source})
	}

	checks = append(checks, c.checkState())
	checks = append(checks, checkDesktop(c.Cfg.DesktopDir)...)

	if m != nil {
		checks = append(checks, c.checkInstall(m, installDir)...)
	}
	return checks
}

func checkWritable(dir string) HealthCheck {
	hc := HealthCheck{Name: "install directory", Group: "environment", Detail: dir}
	probeDir, err := nearestExisting(dir)
	if err != nil {
		hc.Status, hc.Detail = StatusError, err.Error()
		return hc
	}
	f, err := os.CreateTemp(probeDir, ".dminstall-*")
	if err != nil {
		hc.Status, hc.Detail = StatusError, fmt.Sprintf("%s is not writable: %v", probeDir, err)
		return hc
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	hc.Status = StatusPass
	if probeDir != dir {
		hc.Detail = fmt.Sprintf("%s (will be created under %s)", dir, probeDir)
	}
	return hc
}

// nearestExisting returns dir or its closest existing ancestor, which must be
// a directory.
func nearestExisting(dir string) (string, error) {
	cur := filepath.Clean(dir)
	for {
		info, err := os.Stat(cur)
		if err == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("%s is not a directory", cur)
			}
			return cur, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("no existing parent directory for %s", dir)
		}
		cur = parent
	}
}

func (c *CommandContext) checkState() HealthCheck {
	hc := HealthCheck{Name: "state database", Group: "environment", Detail: c.Cfg.StatePath}
	store, err := c.openExistingStore()
	if err != nil {
		hc.Status, hc.Detail = StatusError, err.Error()
		return hc
	}
	if store == nil {
		hc.Status, hc.Detail = StatusWarn, "no install history yet"
		return hc
	}
	defer store.Close()
	version, err := store.MigrationVersion()
	if err != nil {
		hc.Status, hc.Detail = StatusError, err.Error()
		return hc
	}
	hc.Status = StatusPass
	hc.Detail = fmt.Sprintf("%s (schema v%d)", c.Cfg.StatePath, version)
	return hc
}

func checkDesktop(override string) []HealthCheck {
	desktop := HealthCheck{Name: "desktop directory", Group: "shortcuts"}
	dir, err := shortcut.DesktopDir(override)
	if err != nil {
		desktop.Status, desktop.Detail = StatusWarn, err.Error()
	} else {
		desktop.Status, desktop.Detail = StatusPass, dir
	}

	backend := HealthCheck{Name: "shortcut backend", Group: "shortcuts", Status: StatusPass}
	if runtime.GOOS == "windows" {
		path, err := lookPath("powershell")
		if err != nil {
			backend.Status, backend.Detail = StatusError, "powershell not found"
		} else {
			backend.Detail = path
		}
	} else {
		backend.Detail = "freedesktop .desktop entries"
		if _, err := lookPath(shortcut.DefaultLauncher); err != nil {
			backend.Status = StatusWarn
			backend.Detail = shortcut.DefaultLauncher + " not found on PATH"
		}
	}
	return []HealthCheck{desktop, backend}
}

func (c *CommandContext) checkInstall(m *manifest.Manifest, installDir string) []HealthCheck {
	d := depot.New(depot.Config{ToolsDir: c.Cfg.ToolsDir, Tool: m.DepotDownloader, Game: m.Game})

	tool := HealthCheck{Name: "DepotDownloader", Group: "installation", Status: StatusPass, Detail: d.ToolPath()}
	if _, err := os.Stat(d.ToolPath()); err != nil {
		tool.Status = StatusWarn
		tool.Detail = "not found, it will be downloaded on install"
	} else if runtime.GOOS != "windows" && strings.EqualFold(filepath.Ext(d.ToolPath()), ".exe") {
		if _, err := lookPath(shortcut.DefaultLauncher); err != nil {
			tool.Status, tool.Detail = StatusWarn, "Windows executable and no "+shortcut.DefaultLauncher+" to run it"
		}
	}

	game := HealthCheck{Name: "game files", Group: "installation", Status: StatusPass, Detail: d.DataPath(installDir)}
	if !d.Installed(installDir) {
		game.Status, game.Detail = StatusWarn, "not downloaded yet"
	}
	return []HealthCheck{tool, game}
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	return nil
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()
	r.Println("")
	r.Println(styles.Header1.Render("dminstall Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", output.BannerWidth)))

	titleCaser := cases.Title(language.English)
	group := ""
	for _, c := range out.Checks {
		if c.Group != group {
			group = c.Group
			r.Println("")
			r.Println(styles.Bold.Render(titleCaser.String(group)))
		}
		r.StatusLine(c.Name, c.Status, c.Detail)
	}
	r.Println("")
	r.Printf("%d errors, %d warnings\n", out.Errors, out.Warns)
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println(output.FormatHeader(1, "dminstall Health Report"))
	titleCaser := cases.Title(language.English)
	group := ""
	for _, c := range out.Checks {
		if c.Group != group {
			group = c.Group
			r.Println("")
			r.Println(output.FormatHeader(2, titleCaser.String(group)))
			r.Println("")
		}
		r.StatusLine(c.Name, c.Status, c.Detail)
	}
	r.Println("")
	r.Println(output.FormatKeyValue("Errors", fmt.Sprint(out.Errors)))
	r.Println(output.FormatKeyValue("Warnings", fmt.Sprint(out.Warns)))
}
