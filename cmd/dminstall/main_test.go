// Package main provides tests for the dminstall CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desktopmate-tools/dminstall/internal/cli"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// isolate points every default location at a temporary directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("APPDATA", filepath.Join(dir, "config"))
	return dir
}

func TestVersionCommand(t *testing.T) {
	output, err := runCLI(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "dminstall v"+cli.Version) {
		t.Errorf("version output should contain 'dminstall v%s', got: %s", cli.Version, output)
	}
}

func TestVersionFlag(t *testing.T) {
	output, err := runCLI(t, "--version")
	if err != nil {
		t.Errorf("--version error = %v", err)
	}
	if !strings.Contains(output, cli.Version) {
		t.Errorf("--version output should contain %s, got: %s", cli.Version, output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := runCLI(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	expectedCommands := []string{"install", "status", "history", "doctor", "init", "version", "completion"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
	for _, flag := range []string{"--install-dir", "--tools-dir", "--state", "--log-file", "--manifest", "--output", "--yes"} {
		if !strings.Contains(output, flag) {
			t.Errorf("help output should list %s", flag)
		}
	}
}

func TestInstallHelp(t *testing.T) {
	output, err := runCLI(t, "install", "--help")
	if err != nil {
		t.Fatalf("install --help error = %v", err)
	}
	for _, flag := range []string{"--skip-depot", "--skip-shortcuts", "--username", "--no-pause"} {
		if !strings.Contains(output, flag) {
			t.Errorf("install help should list %s, got: %s", flag, output)
		}
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			output, err := runCLI(t, "completion", shell)
			if err != nil {
				t.Fatalf("completion %s error = %v", shell, err)
			}
			if !strings.Contains(output, "dminstall") {
				t.Errorf("completion %s output should mention dminstall", shell)
			}
		})
	}
}

func TestCompletionCommand_InvalidShell(t *testing.T) {
	if _, err := runCLI(t, "completion", "tcsh"); err == nil {
		t.Error("expected an error for an unsupported shell")
	}
}

func TestInvalidOutputMode(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "history", "--output", "yaml")
	if err == nil {
		t.Fatal("expected an error for an unknown output mode")
	}
	if !strings.Contains(err.Error(), "output") {
		t.Errorf("error should mention output, got: %v", err)
	}
}

func TestInitThenHistory(t *testing.T) {
	dir := isolate(t)

	if _, err := runCLI(t, "init", "-o", "markdown"); err != nil {
		t.Fatalf("init error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "dminstall.yaml")); err != nil {
		t.Fatalf("dminstall.yaml not written: %v", err)
	}

	state := filepath.Join(dir, "history.db")
	output, err := runCLI(t, "history", "--state", state, "-o", "markdown")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(output, "No install runs recorded.") {
		t.Errorf("expected empty history, got: %s", output)
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := runCLI(t, "uninstall"); err == nil {
		t.Error("expected an error for an unknown command")
	}
}
