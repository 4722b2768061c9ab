// Package manifest describes where every installed component comes from.
//
// A default manifest is embedded in the binary. Users can point the installer
// at their own TOML file to pin different depot manifests or mirror URLs.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed manifest.toml
var defaultManifest string

// ErrInvalid is returned when a manifest is missing a required field.
var ErrInvalid = errors.New("manifest: invalid")

// Manifest is the full component catalog.
type Manifest struct {
	Game            Game            `toml:"game"`
	DepotDownloader DepotDownloader `toml:"depot_downloader"`
	Goldberg        Goldberg        `toml:"goldberg"`
	MelonLoader     MelonLoader     `toml:"melonloader"`
	AvatarLoader    AvatarLoader    `toml:"avatar_loader"`
	Shortcuts       []Shortcut      `toml:"shortcuts"`
}

// Game identifies the Steam depot holding the game files.
type Game struct {
	AppID      string `toml:"app_id"`
	DepotID    string `toml:"depot_id"`
	ManifestID string `toml:"manifest_id"`
	DataDir    string `toml:"data_dir"`
	Executable string `toml:"executable"`
}

// DepotDownloader locates the depot tool release.
type DepotDownloader struct {
	URL        string `toml:"url"`
	Dir        string `toml:"dir"`
	Executable string `toml:"executable"`
}

// Goldberg locates the Steam emulator patch.
type Goldberg struct {
	URL         string `toml:"url"`
	ArchivePath string `toml:"archive_path"`
	TargetPath  string `toml:"target_path"`
}

// MelonLoader pins the mod loader release.
type MelonLoader struct {
	Version     string `toml:"version"`
	URL         string `toml:"url"`
	VersionFile string `toml:"version_file"`
}

// AvatarLoader points at the GitHub repository publishing the mod.
type AvatarLoader struct {
	Owner       string   `toml:"owner"`
	Repo        string   `toml:"repo"`
	Asset       string   `toml:"asset"`
	VersionFile string   `toml:"version_file"`
	Dirs        []string `toml:"dirs"`
}

// Shortcut is one desktop shortcut to the game executable.
type Shortcut struct {
	Name      string `toml:"name"`
	Arguments string `toml:"arguments"`
}

// Default returns the embedded manifest.
func Default() (*Manifest, error) {
	return Parse(defaultManifest)
}

// DefaultTOML returns the embedded manifest document, a starting point for
// a custom manifest.
func DefaultTOML() string {
	return defaultManifest
}

// Load reads a manifest from disk. An empty path yields the embedded default.
func Load(p string) (*Manifest, error) {
	if strings.TrimSpace(p) == "" {
		return Default()
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("manifest load failed (%s): %w", p, err)
	}
	m, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return m, nil
}

// Parse decodes and validates a manifest document.
func Parse(doc string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(doc, &m)
	if err != nil {
		return nil, fmt.Errorf("manifest parse failed: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every field the installer depends on is set.
func (m *Manifest) Validate() error {
	required := []struct {
		key, val string
	}{
		{"game.app_id", m.Game.AppID},
		{"game.depot_id", m.Game.DepotID},
		{"game.manifest_id", m.Game.ManifestID},
		{"game.data_dir", m.Game.DataDir},
		{"game.executable", m.Game.Executable},
		{"depot_downloader.url", m.DepotDownloader.URL},
		{"depot_downloader.dir", m.DepotDownloader.Dir},
		{"depot_downloader.executable", m.DepotDownloader.Executable},
		{"goldberg.url", m.Goldberg.URL},
		{"goldberg.archive_path", m.Goldberg.ArchivePath},
		{"goldberg.target_path", m.Goldberg.TargetPath},
		{"melonloader.version", m.MelonLoader.Version},
		{"melonloader.url", m.MelonLoader.URL},
		{"melonloader.version_file", m.MelonLoader.VersionFile},
		{"avatar_loader.owner", m.AvatarLoader.Owner},
		{"avatar_loader.repo", m.AvatarLoader.Repo},
		{"avatar_loader.version_file", m.AvatarLoader.VersionFile},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalid, r.key)
		}
	}
	if len(m.AvatarLoader.Dirs) == 0 {
		return fmt.Errorf("%w: avatar_loader.dirs must list at least one directory", ErrInvalid)
	}
	for _, rel := range []string{m.Goldberg.ArchivePath, m.Goldberg.TargetPath} {
		if path.IsAbs(rel) || strings.HasPrefix(path.Clean(rel), "..") {
			return fmt.Errorf("%w: path %q must be relative", ErrInvalid, rel)
		}
	}
	seen := make(map[string]struct{}, len(m.Shortcuts))
	for i, s := range m.Shortcuts {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("%w: shortcuts[%d] missing name", ErrInvalid, i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate shortcut %q", ErrInvalid, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
