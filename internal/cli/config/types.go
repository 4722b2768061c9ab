// Package config loads dminstall settings from defaults, a YAML file, the
// environment and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Default configuration values.
const (
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFileName = "DesktopMate_Install.log"
	DefaultTimeout     = 30 * time.Minute
	EnvPrefix          = "DMINSTALL_"
)

// ConfigFileNames are searched, in order, when no --config is given.
var ConfigFileNames = []string{"dminstall.yaml", "dminstall.yml"}

// Config holds all CLI configuration options.
type Config struct {
	// InstallDir is where the game is installed. Empty means ask.
	InstallDir   string      `koanf:"install_dir"`
	ToolsDir     string      `koanf:"tools_dir"`
	StatePath    string      `koanf:"state_path"`
	LogFile      string      `koanf:"log_file"`
	Manifest     string      `koanf:"manifest"`
	OutputFormat string      `koanf:"output"`
	Verbose      bool        `koanf:"verbose"`
	Yes          bool        `koanf:"yes"`
	DesktopDir   string      `koanf:"desktop_dir"`
	GitHubAPI    string      `koanf:"github_api"`
	Steam        SteamConfig `koanf:"steam"`
	HTTP         HTTPConfig  `koanf:"http"`
}

// SteamConfig holds optional pre-set Steam credentials.
type SteamConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// HTTPConfig tunes downloads.
type HTTPConfig struct {
	// Timeout bounds one whole download.
	Timeout time.Duration `koanf:"timeout"`
}

// DefaultInstallDir is offered when asking for the install directory.
func DefaultInstallDir() string {
	if runtime.GOOS == "windows" {
		return `C:\Games\DesktopMate`
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Games", "DesktopMate")
	}
	return filepath.Join("Games", "DesktopMate")
}

// executableDir is where tools and the log live by default.
var executableDir = func() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// DefaultStatePath is the install history database location.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(executableDir(), ".dminstall", "state.db")
	}
	return filepath.Join(dir, "dminstall", "state.db")
}

// defaults returns the lowest-precedence layer.
func defaults() map[string]interface{} {
	base := executableDir()
	return map[string]interface{}{
		"install_dir":  "",
		"tools_dir":    base,
		"state_path":   DefaultStatePath(),
		"log_file":     filepath.Join(base, DefaultLogFileName),
		"manifest":     "",
		"output":       DefaultOutput,
		"verbose":      false,
		"yes":          false,
		"desktop_dir":  "",
		"github_api":   "",
		"http.timeout": DefaultTimeout.String(),
	}
}
