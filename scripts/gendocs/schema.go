package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/desktopmate-tools/dminstall/internal/cli/config"
	"github.com/desktopmate-tools/dminstall/internal/github"
	"github.com/desktopmate-tools/dminstall/internal/manifest"
)

// generateConfigDocs generates the dminstall.yaml and manifest reference.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	if err := generateManifestDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate manifest.md: %w", err)
	}
	log.Printf("  Generated manifest.md")

	return nil
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Flag        string
	Description string
}

// configFields mirrors config.Config.
func configFields() []ConfigField {
	return []ConfigField{
		{Name: "install_dir", Type: "string", Flag: "--install-dir", Description: "DesktopMate install directory. Asked for when empty."},
		{Name: "tools_dir", Type: "string", Default: "executable directory", Flag: "--tools-dir", Description: "Where DepotDownloader is unpacked"},
		{Name: "state_path", Type: "string", Default: "user config dir/dminstall/state.db", Flag: "--state", Description: "Install history database"},
		{Name: "log_file", Type: "string", Default: config.DefaultLogFileName, Flag: "--log-file", Description: "Install log, appended to on every run"},
		{Name: "manifest", Type: "string", Default: "built-in", Flag: "--manifest", Description: "Component manifest (TOML)"},
		{Name: "output", Type: "string", Default: config.DefaultOutput, Flag: "--output", Description: "Console output: auto, text, markdown or json"},
		{Name: "verbose", Type: "bool", Default: "false", Flag: "--verbose", Description: "Debug logging on stderr and in the install log"},
		{Name: "yes", Type: "bool", Default: "false", Flag: "--yes", Description: "Answer yes to mod update prompts"},
		{Name: "desktop_dir", Type: "string", Default: "user Desktop", Description: "Where shortcuts are created"},
		{Name: "github_api", Type: "string", Default: github.DefaultBaseURL, Description: "GitHub API base URL"},
		{Name: "steam.username", Type: "string", Flag: "--username", Description: "Steam account for DepotDownloader. Asked for when empty."},
		{Name: "steam.password", Type: "string", Description: "Steam password. Asked for when empty."},
		{Name: "http.timeout", Type: "duration", Default: config.DefaultTimeout.String(), Description: "Upper bound for one download"},
	}
}

// envName is the environment variable that sets key.
func envName(key string) string {
	return config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// generateConfigurationDoc generates the configuration reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "dminstall configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("dminstall reads %s from the working directory, or the file given with %s. Run %s to write a documented starting point.",
		InlineCode(config.ConfigFileNames[0]), InlineCode("--config"), InlineCode("dminstall init")))

	w.Header(2, "Keys")
	headers := []string{"Key", "Type", "Default", "Flag", "Description"}
	var rows [][]string
	for _, f := range configFields() {
		def := "-"
		if f.Default != "" {
			def = InlineCode(f.Default)
		}
		flag := "-"
		if f.Flag != "" {
			flag = InlineCode(f.Flag)
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, def, flag, f.Description})
	}
	w.Table(headers, rows)

	w.Header(2, "Precedence")
	w.BulletList([]string{
		"Built-in defaults",
		"The config file",
		InlineCode(".env") + " in the working directory, then " + InlineCode(config.EnvPrefix+"*") + " variables",
		"Command-line flags",
	})

	w.Header(2, "Example")
	w.CodeBlock("yaml", `install_dir: D:\Games\DesktopMate
output: text
steam:
  username: ${STEAM_USER}
http:
  timeout: 45m`)

	w.Paragraph(fmt.Sprintf("Keep the Steam password out of the file. Set %s in the environment or a %s file instead.",
		InlineCode(envName("steam.password")), InlineCode(".env")))

	filename := filepath.Join(outDir, "configuration.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// generateManifestDoc documents the component manifest and embeds the
// built-in one.
func generateManifestDoc(outDir string) error {
	m, err := manifest.Default()
	if err != nil {
		return err
	}

	w := NewMarkdownWriter()

	w.Frontmatter("Component Manifest", "Where dminstall gets each component")
	w.GeneratedMarker()

	w.Header(1, "Component Manifest")
	w.Paragraph(fmt.Sprintf("The manifest pins the game depot and the download source of every component. Export it with %s and point %s at the copy to mirror or pin sources.",
		InlineCode("dminstall init --with-manifest"), InlineCode("manifest")))

	w.Header(2, "Components")
	w.Table([]string{"Table", "Source"}, [][]string{
		{InlineCode("[game]"), fmt.Sprintf("Steam app %s, depot %s", m.Game.AppID, m.Game.DepotID)},
		{InlineCode("[depot_downloader]"), m.DepotDownloader.URL},
		{InlineCode("[goldberg]"), m.Goldberg.URL},
		{InlineCode("[melonloader]"), fmt.Sprintf("%s (%s)", m.MelonLoader.URL, m.MelonLoader.Version)},
		{InlineCode("[avatar_loader]"), fmt.Sprintf("latest GitHub release of %s/%s", m.AvatarLoader.Owner, m.AvatarLoader.Repo)},
	})

	var names []string
	for _, s := range m.Shortcuts {
		names = append(names, InlineCode(s.Name))
	}
	w.Header(2, "Shortcuts")
	w.BulletList(names)

	w.Header(2, "Built-in Manifest")
	w.CodeBlock("toml", manifest.DefaultTOML())

	filename := filepath.Join(outDir, "manifest.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}
