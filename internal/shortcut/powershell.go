package shortcut

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desktopmate-tools/dminstall/internal/tools"
)

// ErrCreateFailed is returned when PowerShell could not save a shortcut.
var ErrCreateFailed = errors.New("shortcut: failed to create shortcut")

// PowerShellCreator writes .lnk files through the WScript.Shell COM object.
type PowerShellCreator struct {
	Dir    string
	Runner tools.CommandRunner
	// Shell is the PowerShell executable, "powershell" when empty.
	Shell string
}

func (c *PowerShellCreator) Available() error {
	return checkDir(c.Dir)
}

func (c *PowerShellCreator) Create(ctx context.Context, s Shortcut) (string, error) {
	if err := c.Available(); err != nil {
		return "", err
	}
	link := filepath.Join(c.Dir, s.Name+".lnk")
	shell := c.Shell
	if shell == "" {
		shell = "powershell"
	}
	runner := c.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}

	_, stderr, code, err := runner.Run(ctx, shell, "-NoProfile", "-NonInteractive", "-Command", Script(link, s))
	if err != nil || code != 0 {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" && err != nil {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: %s (exit code = %d): %s", ErrCreateFailed, link, code, msg)
	}
	return link, nil
}

// Script builds the PowerShell program saving s at link.
func Script(link string, s Shortcut) string {
	var b strings.Builder
	b.WriteString("$WshShell = New-Object -ComObject WScript.Shell;\n")
	fmt.Fprintf(&b, "$Shortcut = $WshShell.CreateShortcut(%s);\n", psQuote(link))
	fmt.Fprintf(&b, "$Shortcut.TargetPath = %s;\n", psQuote(s.Target))
	fmt.Fprintf(&b, "$Shortcut.WorkingDirectory = %s;\n", psQuote(s.WorkDir))
	if strings.TrimSpace(s.Arguments) != "" {
		fmt.Fprintf(&b, "$Shortcut.Arguments = %s;\n", psQuote(s.Arguments))
	}
	b.WriteString("$Shortcut.Save();\n")
	return b.String()
}

// psQuote returns a single-quoted PowerShell literal, which expands nothing.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
