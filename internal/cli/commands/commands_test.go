package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desktopmate-tools/dminstall/internal/cli/config"
	"github.com/desktopmate-tools/dminstall/internal/cli/output"
	"github.com/desktopmate-tools/dminstall/internal/cli/testutil"
	"github.com/desktopmate-tools/dminstall/internal/state"
	fixture "github.com/desktopmate-tools/dminstall/internal/testutil"
)

// executeCommand runs cmd with cfg in its context and stdin as input.
func executeCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(testutil.WithConfig(cfg))
	return buf.String(), err
}

func stubLookPath(t *testing.T, err error) {
	t.Helper()
	orig := lookPath
	lookPath = func(file string) (string, error) {
		if err != nil {
			return "", err
		}
		return filepath.Join("/usr/bin", file), nil
	}
	t.Cleanup(func() { lookPath = orig })
}

func seedHistory(t *testing.T, path, installDir string, components ...state.Component) {
	t.Helper()
	store, err := state.OpenAndMigrate(path)
	require.NoError(t, err)
	defer store.Close()

	run, err := store.CreateRun(installDir)
	require.NoError(t, err)
	for _, c := range components {
		c.RunID = run.ID
		require.NoError(t, store.RecordComponent(c))
	}
	require.NoError(t, store.CompleteRun(run.ID, state.RunStatusCompleted, ""))
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3", "abc123", "2026-01-01")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "dminstall v1.2.3")
	assert.Contains(t, buf.String(), "commit abc123")
}

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		args      []string
		wantErr   error
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			wantFiles: []string{"dminstall.yaml"},
		},
		{
			name:      "init with manifest",
			args:      []string{"--with-manifest"},
			wantFiles: []string{"dminstall.yaml", ManifestFileName},
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				fixture.WriteFile(t, filepath.Join(dir, "dminstall.yaml"), "existing")
			},
			wantErr: ErrExists,
		},
		{
			name: "init existing manifest without force",
			setupDir: func(t *testing.T, dir string) {
				fixture.WriteFile(t, filepath.Join(dir, ManifestFileName), "existing")
			},
			args:    []string{"--with-manifest"},
			wantErr: ErrExists,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				fixture.WriteFile(t, filepath.Join(dir, "dminstall.yaml"), "existing")
			},
			args:      []string{"--force"},
			wantFiles: []string{"dminstall.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.setupDir != nil {
				tt.setupDir(t, dir)
			}

			cfg := testutil.NewTestConfig(t, output.ModeMarkdown)
			out, err := executeCommand(t, NewInitCommand(), cfg, "", append([]string{dir}, tt.args...)...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			testutil.AssertNoANSI(t, out)

			for _, f := range tt.wantFiles {
				assert.FileExists(t, filepath.Join(dir, f))
				assert.Contains(t, out, "Created "+filepath.Join(dir, f))
			}
		})
	}
}

func TestInitTemplateLoads(t *testing.T) {
	dir := t.TempDir()
	cfg := testutil.NewTestConfig(t, output.ModeMarkdown)
	_, err := executeCommand(t, NewInitCommand(), cfg, "", dir, "--with-manifest")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "dminstall.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# Where DesktopMate is installed.")
	assert.Contains(t, string(raw), "# tools_dir:")

	t.Chdir(dir)
	loaded, err := config.Load("dminstall.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "", loaded.InstallDir)
	assert.Equal(t, ManifestFileName, loaded.Manifest)
	assert.Equal(t, config.DefaultOutput, loaded.OutputFormat)
	assert.Equal(t, config.DefaultTimeout, loaded.HTTP.Timeout)
	assert.NotEmpty(t, loaded.ToolsDir)
}

func TestHistoryCommand_Empty(t *testing.T) {
	cfg := testutil.NewTestConfig(t, output.ModeMarkdown)

	out, err := executeCommand(t, NewHistoryCommand(), cfg, "")
	require.NoError(t, err)
	assert.Contains(t, out, "No install runs recorded.")
	assert.NoFileExists(t, cfg.StatePath, "history must not create the database")
}

func TestHistoryCommand(t *testing.T) {
	cfg := testutil.NewTestConfig(t, output.ModeJSON)
	for i := 0; i < 3; i++ {
		seedHistory(t, cfg.StatePath, cfg.InstallDir)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "default limit", want: 3},
		{name: "limited", args: []string{"--limit", "2"}, want: 2},
		{name: "all", args: []string{"-n", "0"}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, NewHistoryCommand(), cfg, "", tt.args...)
			require.NoError(t, err)

			var runs []RunOutput
			require.NoError(t, json.Unmarshal([]byte(out), &runs))
			require.Len(t, runs, tt.want)
			for _, r := range runs {
				assert.Equal(t, cfg.InstallDir, r.InstallDir)
				assert.Equal(t, "completed", r.Status)
				assert.NotNil(t, r.CompletedAt)
			}
		})
	}
}

func TestHistoryCommand_Markdown(t *testing.T) {
	cfg := testutil.NewTestConfig(t, output.ModeMarkdown)
	seedHistory(t, cfg.StatePath, cfg.InstallDir)

	out, err := executeCommand(t, NewHistoryCommand(), cfg, "")
	require.NoError(t, err)
	testutil.AssertNoANSI(t, out)
	assert.Contains(t, out, "# Install history")
	assert.Contains(t, out, "| completed |")
	assert.Contains(t, out, cfg.InstallDir)
}

func prepareInstall(t *testing.T, cfg *config.Config) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.InstallDir, "DesktopMate_Data", "Plugins", "x86_64"), 0o755))
	fixture.WriteFile(t, filepath.Join(cfg.InstallDir, "DesktopMate_Data", "Plugins", "x86_64", "steam_api64.dll.orig"), "steam")
	fixture.WriteFile(t, filepath.Join(cfg.InstallDir, "MelonLoader.version"), "v0.6.6\n")
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.ToolsDir, "DepotDownloader"), 0o755))
	fixture.WriteFile(t, filepath.Join(cfg.ToolsDir, "DepotDownloader", "DepotDownloader.exe"), "exe")
}

func TestStatusCommand(t *testing.T) {
	cfg := testutil.NewTestConfig(t, output.ModeJSON)
	prepareInstall(t, cfg)
	seedHistory(t, cfg.StatePath, cfg.InstallDir,
		state.Component{Name: "custom-avatar-loader", Version: "v1.2.0", Action: "installed"},
	)
	time.Sleep(2 * time.Millisecond)
	seedHistory(t, cfg.StatePath, cfg.InstallDir,
		state.Component{Name: "melonloader", Version: "v0.6.6", Action: "installed"},
	)
	time.Sleep(2 * time.Millisecond)
	seedHistory(t, cfg.StatePath, filepath.Join(t.TempDir(), "elsewhere"),
		state.Component{Name: "goldberg", Action: "patched"},
	)

	out, err := executeCommand(t, NewStatusCommand(), cfg, "")
	require.NoError(t, err)

	var got StatusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, cfg.InstallDir, got.InstallDir)

	states := map[string]ComponentStatus{}
	for _, c := range got.Components {
		states[c.Name] = c
	}
	assert.Equal(t, "present", states["game files"].State)
	assert.Equal(t, "present", states["DepotDownloader"].State)
	assert.Equal(t, "applied", states["Goldberg patch"].State)
	assert.Equal(t, "installed", states["MelonLoader"].State)
	assert.Equal(t, "v0.6.6", states["MelonLoader"].Version)
	assert.Equal(t, "missing", states["Custom Avatar Loader"].State)

	require.NotNil(t, got.LastRun)
	assert.Equal(t, cfg.InstallDir, got.LastRun.InstallDir)
	assert.Equal(t, string(state.RunStatusCompleted), got.LastRun.Status)
	require.Len(t, got.History, 1, "only the last run for this directory is shown")
	assert.Equal(t, "melonloader", got.History[0].Name)
	assert.Equal(t, "v0.6.6", got.History[0].Version)
}

func TestStatusCommand_MarkdownWithHistory(t *testing.T) {
	cfg := testutil.NewTestConfig(t, output.ModeMarkdown)
	seedHistory(t, cfg.StatePath, cfg.InstallDir,
		state.Component{Name: "depot", Action: "skipped"},
	)

	out, err := executeCommand(t, NewStatusCommand(), cfg, "")
	require.NoError(t, err)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "## Last run")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "skipped")
}

func TestStatusCommand_Markdown(t *testing.T) {
	cfg := testutil.NewTestConfig(t, output.ModeMarkdown)

	out, err := executeCommand(t, NewStatusCommand(), cfg, "")
	require.NoError(t, err)
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Install status")
	assert.Contains(t, strings.ToLower(out), "| component |")
	assert.Contains(t, out, "not applied")
	assert.NotContains(t, out, "Last run")
}

func TestStatusCommand_Text(t *testing.T) {
	cfg := testutil.NewTestConfig(t, output.ModeText)

	out, err := executeCommand(t, NewStatusCommand(), cfg, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Install directory: "+cfg.InstallDir)
	assert.Contains(t, out, "MelonLoader")
	assert.Contains(t, out, "No install history for this directory.")
}

func TestDoctorCommand(t *testing.T) {
	stubLookPath(t, nil)
	cfg := testutil.NewTestConfig(t, output.ModeJSON)

	out, err := executeCommand(t, NewDoctorCommand(), cfg, "")
	require.NoError(t, err)

	var got DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 0, got.Errors)
	assert.Equal(t, 3, got.Warns)

	statuses := map[string]string{}
	for _, c := range got.Checks {
		statuses[c.Name] = c.Status
	}
	assert.Equal(t, map[string]string{
		"install directory": StatusPass,
		"manifest":          StatusPass,
		"state database":    StatusWarn,
		"desktop directory": StatusPass,
		"shortcut backend":  StatusPass,
		"DepotDownloader":   StatusWarn,
		"game files":        StatusWarn,
	}, statuses)

	assert.NoFileExists(t, cfg.StatePath, "doctor must not create the state database")
	assert.NoDirExists(t, cfg.InstallDir, "doctor must not create the install directory")
}

func TestCheckWritable(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file")
	fixture.WriteFile(t, file, "x")

	tests := []struct {
		name   string
		dir    string
		status string
		detail string
	}{
		{name: "existing", dir: root, status: StatusPass, detail: root},
		{name: "missing uses ancestor", dir: filepath.Join(root, "a", "b"), status: StatusPass, detail: "will be created under " + root},
		{name: "ancestor is a file", dir: filepath.Join(file, "sub"), status: StatusError, detail: "is not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := checkWritable(tt.dir)
			assert.Equal(t, tt.status, hc.Status)
			assert.Contains(t, hc.Detail, tt.detail)
			assert.NoDirExists(t, filepath.Join(root, "a"))
		})
	}
}

func TestDoctorCommand_Failures(t *testing.T) {
	stubLookPath(t, errors.New("not found"))
	cfg := testutil.NewTestConfig(t, output.ModeMarkdown)
	cfg.Manifest = filepath.Join(t.TempDir(), "missing.toml")

	out, err := executeCommand(t, NewDoctorCommand(), cfg, "")
	require.ErrorIs(t, err, ErrChecksFailed)
	testutil.AssertNoANSI(t, out)
	assert.Contains(t, out, "# dminstall Health Report")
	assert.Contains(t, out, "## Environment")
	assert.Contains(t, out, "- [error] manifest")
	assert.NotContains(t, out, "game files", "install checks need a manifest")
}

func TestDoctorCommand_Text(t *testing.T) {
	stubLookPath(t, nil)
	prepare := testutil.NewTestConfig(t, output.ModeText)
	prepareInstall(t, prepare)
	seedHistory(t, prepare.StatePath, prepare.InstallDir)

	out, err := executeCommand(t, NewDoctorCommand(), prepare, "")
	require.NoError(t, err)
	assert.Contains(t, out, "dminstall Health Report")
	assert.Contains(t, out, "Installation")
	assert.Contains(t, out, "0 errors")
	assert.Contains(t, out, "schema v")
}

func TestNewCommandContext_InvalidMode(t *testing.T) {
	cfg := testutil.NewTestConfig(t, output.Mode("yaml"))
	_, err := executeCommand(t, NewStatusCommand(), cfg, "")
	require.Error(t, err)
}

func TestRenderDoctor_Modes(t *testing.T) {
	report := &DoctorOutput{
		Checks: []HealthCheck{
			{Name: "manifest", Group: "environment", Status: StatusPass, Detail: "embedded"},
			{Name: "game files", Group: "installation", Status: StatusWarn, Detail: "not downloaded yet"},
		},
		Warns: 1,
	}

	tests := []struct {
		name     string
		renderer *testutil.TestRenderer
		mode     output.Mode
		want     string
		notWant  string
	}{
		{name: "auto falls back to markdown", renderer: testutil.NewTestRendererAuto(), mode: output.ModeMarkdown, want: "## Installation", notWant: `"checks"`},
		{name: "markdown", renderer: testutil.NewTestRendererMarkdown(), mode: output.ModeMarkdown, want: "- [warn] game files", notWant: `"checks"`},
		{name: "text", renderer: testutil.NewTestRendererText(), mode: output.ModeText, want: "0 errors, 1 warnings", notWant: "## "},
		{name: "json", renderer: testutil.NewTestRendererJSON(), mode: output.ModeJSON, want: `"status": "warn"`, notWant: "Health Report"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, renderDoctor(tt.renderer.Renderer, report))
			testutil.AssertOutputMode(t, tt.renderer, tt.mode)
			testutil.AssertContains(t, tt.renderer.Output(), tt.want)
			testutil.AssertNotContains(t, tt.renderer.Output(), tt.notWant)
			assert.Empty(t, tt.renderer.ErrorOutput())
		})
	}
}
