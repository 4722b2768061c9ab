package shortcut

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desktopmate-tools/dminstall/internal/testutil"
)

func TestDesktopDir(t *testing.T) {
	t.Run("override", func(t *testing.T) {
		dir := t.TempDir()
		got, err := DesktopDir(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, got)
	})

	t.Run("missing override", func(t *testing.T) {
		_, err := DesktopDir(filepath.Join(t.TempDir(), "nope"))
		require.ErrorIs(t, err, ErrNoDesktop)
	})

	t.Run("xdg", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("XDG_DESKTOP_DIR", dir)
		got, err := DesktopDir("")
		require.NoError(t, err)
		assert.Equal(t, dir, got)
	})

	t.Run("home desktop", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_DESKTOP_DIR", "")
		t.Setenv("HOME", home)
		t.Setenv("USERPROFILE", home)
		require.NoError(t, os.Mkdir(filepath.Join(home, "Desktop"), 0o755))

		got, err := DesktopDir("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "Desktop"), got)
	})

	t.Run("none", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_DESKTOP_DIR", "")
		t.Setenv("HOME", home)
		t.Setenv("USERPROFILE", home)

		_, err := DesktopDir("")
		require.ErrorIs(t, err, ErrNoDesktop)
	})
}

func TestForPlatform(t *testing.T) {
	assert.IsType(t, &PowerShellCreator{}, ForPlatform("windows", "d", nil))
	assert.IsType(t, &DesktopEntryCreator{}, ForPlatform("linux", "d", nil))
}

func TestScript(t *testing.T) {
	tests := []struct {
		name     string
		s        Shortcut
		contains []string
		excludes []string
	}{
		{
			name: "without arguments",
			s:    Shortcut{Name: "DesktopMate_Console", Target: `C:\Games\DesktopMate\DesktopMate.exe`, WorkDir: `C:\Games\DesktopMate`},
			contains: []string{
				"New-Object -ComObject WScript.Shell",
				`$Shortcut.TargetPath = 'C:\Games\DesktopMate\DesktopMate.exe';`,
				`$Shortcut.WorkingDirectory = 'C:\Games\DesktopMate';`,
				"$Shortcut.Save();",
			},
			excludes: []string{"Arguments"},
		},
		{
			name: "with arguments",
			s:    Shortcut{Target: "x.exe", Arguments: "melonloader.hideconsole"},
			contains: []string{
				"$Shortcut.Arguments = 'melonloader.hideconsole';",
			},
		},
		{
			name: "quotes escaped",
			s:    Shortcut{Target: `C:\Users\O'Brien\$game\x.exe`},
			contains: []string{
				`$Shortcut.TargetPath = 'C:\Users\O''Brien\$game\x.exe';`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := Script(`C:\Users\me\Desktop\x.lnk`, tt.s)
			assert.Contains(t, script, `CreateShortcut('C:\Users\me\Desktop\x.lnk')`)
			for _, c := range tt.contains {
				assert.Contains(t, script, c)
			}
			for _, e := range tt.excludes {
				assert.NotContains(t, script, e)
			}
		})
	}
}

func TestPowerShellCreator(t *testing.T) {
	dir := t.TempDir()
	runner := &testutil.FakeRunner{}
	c := &PowerShellCreator{Dir: dir, Runner: runner}

	link, err := c.Create(context.Background(), Shortcut{Name: "DesktopMate_NoConsole", Target: "DesktopMate.exe", Arguments: "melonloader.hideconsole"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "DesktopMate_NoConsole.lnk"), link)

	require.Len(t, runner.Calls, 1)
	call := runner.Calls[0]
	assert.Equal(t, "powershell", call.Name)
	require.Len(t, call.Args, 4)
	assert.Equal(t, []string{"-NoProfile", "-NonInteractive", "-Command"}, call.Args[:3])
	assert.Contains(t, call.Args[3], "melonloader.hideconsole")
}

func TestPowerShellCreator_Failures(t *testing.T) {
	tests := []struct {
		name   string
		runner *testutil.FakeRunner
		substr string
	}{
		{name: "non-zero exit", runner: &testutil.FakeRunner{ExitCode: 1, Stderr: []byte("Access denied")}, substr: "Access denied"},
		{name: "missing shell", runner: &testutil.FakeRunner{ExitCode: 127, Err: errors.New("executable file not found")}, substr: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &PowerShellCreator{Dir: t.TempDir(), Runner: tt.runner}
			_, err := c.Create(context.Background(), Shortcut{Name: "x"})
			require.ErrorIs(t, err, ErrCreateFailed)
			assert.Contains(t, err.Error(), tt.substr)
		})
	}
}

func TestPowerShellCreator_NoDesktop(t *testing.T) {
	runner := &testutil.FakeRunner{}
	c := &PowerShellCreator{Dir: filepath.Join(t.TempDir(), "missing"), Runner: runner}

	require.ErrorIs(t, c.Available(), ErrNoDesktop)
	_, err := c.Create(context.Background(), Shortcut{Name: "x"})
	require.ErrorIs(t, err, ErrNoDesktop)
	assert.Empty(t, runner.Calls)
}

func TestDesktopEntryCreator(t *testing.T) {
	dir := t.TempDir()
	c := &DesktopEntryCreator{Dir: dir, Launcher: DefaultLauncher}

	path, err := c.Create(context.Background(), Shortcut{
		Name:      "DesktopMate_NoConsole",
		Target:    "/home/me/Games/Desktop Mate/DesktopMate.exe",
		WorkDir:   "/home/me/Games/Desktop Mate",
		Arguments: "melonloader.hideconsole",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "DesktopMate_NoConsole.desktop"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[Desktop Entry]\n")
	assert.Contains(t, content, "Name=DesktopMate_NoConsole\n")
	assert.Contains(t, content, `Exec=wine "/home/me/Games/Desktop Mate/DesktopMate.exe" melonloader.hideconsole`+"\n")
	assert.Contains(t, content, "Path=/home/me/Games/Desktop Mate\n")

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	}
}

func TestExecQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"", `""`},
		{"with space", `"with space"`},
		{`a"b`, `"a\"b"`},
		{"$HOME", `"\$HOME"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, execQuote(tt.in), tt.in)
	}
}
