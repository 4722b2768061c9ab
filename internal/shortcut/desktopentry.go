package shortcut

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultLauncher runs the Windows executable on other platforms.
const DefaultLauncher = "wine"

// DesktopEntryCreator writes freedesktop.org .desktop launchers.
type DesktopEntryCreator struct {
	Dir string
	// Launcher prefixes the Exec line. Empty runs the target directly.
	Launcher string
}

func (c *DesktopEntryCreator) Available() error {
	return checkDir(c.Dir)
}

func (c *DesktopEntryCreator) Create(_ context.Context, s Shortcut) (string, error) {
	if err := c.Available(); err != nil {
		return "", err
	}
	path := filepath.Join(c.Dir, s.Name+".desktop")
	if err := os.WriteFile(path, []byte(c.Entry(s)), 0o755); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// Entry renders the .desktop file content for s.
func (c *DesktopEntryCreator) Entry(s Shortcut) string {
	var exec []string
	if c.Launcher != "" {
		exec = append(exec, execQuote(c.Launcher))
	}
	exec = append(exec, execQuote(s.Target))
	for _, arg := range strings.Fields(s.Arguments) {
		exec = append(exec, execQuote(arg))
	}

	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", s.Name)
	fmt.Fprintf(&b, "Exec=%s\n", strings.Join(exec, " "))
	fmt.Fprintf(&b, "Path=%s\n", s.WorkDir)
	b.WriteString("Terminal=false\n")
	b.WriteString("Categories=Game;\n")
	return b.String()
}

// execQuote quotes an Exec argument when it holds reserved characters.
func execQuote(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\"'\\><~|&;$*?#()`") {
		return arg
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(arg) + `"`
}
