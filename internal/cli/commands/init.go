package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/desktopmate-tools/dminstall/internal/cli/config"
	"github.com/desktopmate-tools/dminstall/internal/cli/output"
	"github.com/desktopmate-tools/dminstall/internal/manifest"
)

// ManifestFileName is written by init --with-manifest.
const ManifestFileName = "manifest.toml"

// ErrExists is returned when init would overwrite a file without --force.
var ErrExists = errors.New("file already exists")

// templateEntry is one documented key in the generated config file.
type templateEntry struct {
	key     string
	value   string
	comment string
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var withManifest bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default dminstall.yaml",
		Long: `Write a documented dminstall.yaml configuration file.

With --with-manifest the built-in component manifest is written next to it as
manifest.toml and referenced from the config, so sources can be pinned or
mirrored.`,
		Example: `  # Write dminstall.yaml in the current directory
  dminstall init

  # Also export the component manifest
  dminstall init --with-manifest

  # Overwrite existing files
  dminstall init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			mode := output.ModeAuto
			if l, err := getConfig(cmd.Context()); err == nil {
				if m, err := output.ParseMode(l.OutputFormat); err == nil {
					mode = m
				}
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			return runInit(r, dir, force, withManifest)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&withManifest, "with-manifest", false, "Also write the component manifest")

	return cmd
}

func runInit(r *output.Renderer, dir string, force, withManifest bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.ConfigFileNames[0])
	manifestPath := filepath.Join(dir, ManifestFileName)

	targets := []string{configPath}
	if withManifest {
		targets = append(targets, manifestPath)
	}
	if !force {
		for _, p := range targets {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%w: %s (use --force to overwrite)", ErrExists, p)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}

	manifestRef := ""
	if withManifest {
		if err := os.WriteFile(manifestPath, []byte(manifest.DefaultTOML()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", manifestPath, err)
		}
		manifestRef = ManifestFileName
		r.Success("Created " + manifestPath)
	}

	data, err := configTemplate(manifestRef)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	r.Success("Created " + configPath)
	r.Println("")
	r.Println("Run 'dminstall' from this directory to install with these settings.")
	return nil
}

// configTemplate renders the default configuration with a comment above
// every key.
func configTemplate(manifestRef string) ([]byte, error) {
	top := []templateEntry{
		{"install_dir", "", "Where DesktopMate is installed. Leave empty to be asked."},
		{"manifest", manifestRef, "Component manifest (TOML). Empty means the built-in one."},
		{"output", config.DefaultOutput, "Console output: auto, text, markdown or json."},
		{"desktop_dir", "", "Where shortcuts are created. Empty means the user's Desktop."},
		{"github_api", "", "GitHub API base URL, for mirrors."},
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range top {
		root.Content = append(root.Content, keyNode(e.key, e.comment), scalarNode(e.value))
	}

	steam := &yaml.Node{Kind: yaml.MappingNode}
	steam.Content = append(steam.Content,
		keyNode("username", "Steam account used by DepotDownloader. ${VAR} references are expanded."),
		scalarNode(""),
		keyNode("password", "Prefer DMINSTALL_STEAM_PASSWORD in the environment or a .env file."),
		scalarNode(""),
	)
	root.Content = append(root.Content, keyNode("steam", ""), steam)

	httpNode := &yaml.Node{Kind: yaml.MappingNode}
	httpNode.Content = append(httpNode.Content,
		keyNode("timeout", "Upper bound for one download."),
		scalarNode(config.DefaultTimeout.String()),
	)
	root.Content = append(root.Content, keyNode("http", ""), httpNode)

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: "dminstall configuration\nFlags and DMINSTALL_* environment variables override these values.",
		FootComment: "Locations that default to the dminstall directory:\n" +
			"tools_dir: DepotDownloader is unpacked here\n" +
			"log_file: " + config.DefaultLogFileName + "\n" +
			"state_path: install history database (default: user config directory)",
		Content: []*yaml.Node{root},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to render config template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func keyNode(key, comment string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key, HeadComment: comment}
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
