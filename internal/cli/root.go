// Package cli provides the command-line interface for dminstall.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/desktopmate-tools/dminstall/internal/cli/commands"
	"github.com/desktopmate-tools/dminstall/internal/cli/config"
	"github.com/desktopmate-tools/dminstall/internal/cli/output"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// skipConfig lists commands that run without loading configuration.
var skipConfig = map[string]bool{
	"help":                          true,
	"completion":                    true,
	cobra.ShellCompRequestCmd:       true,
	cobra.ShellCompNoDescRequestCmd: true,
	"version":                       true,
}

// NewRootCmd creates and returns the root command. Without a subcommand it
// runs install.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "dminstall",
		Short: "dminstall - DesktopMate installer",
		Long: `dminstall installs DesktopMate with mod support.

It downloads the game depot through DepotDownloader, applies the Goldberg
Steam emulator patch, installs MelonLoader and the Custom Avatar Loader mod,
and creates desktop shortcuts. Running dminstall without a command runs
"dminstall install".`,
		Version: Version,
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfig[cmd.Name()] {
				return nil
			}

			loaded, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if loaded.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = config.WithConfig(ctx, loaded)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if loaded.Verbose {
				if loaded.FileUsed != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", loaded.FileUsed)
				}
				if loaded.EnvFileUsed != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Using env file: %s\n", loaded.EnvFileUsed)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return commands.RunInstall(cmd, commands.InstallOptions{})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./dminstall.yaml)")
	rootCmd.PersistentFlags().String("install-dir", "", "DesktopMate install directory (prompted when empty)")
	rootCmd.PersistentFlags().String("tools-dir", "", "Directory DepotDownloader is unpacked into")
	rootCmd.PersistentFlags().String("state", "", "Path to the install history database")
	rootCmd.PersistentFlags().String("log-file", "", "Path to the install log")
	rootCmd.PersistentFlags().String("manifest", "", "Component manifest (TOML); empty uses the built-in one")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to update prompts")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.MarkPersistentFlagFilename("manifest", "toml")
	_ = rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	_ = rootCmd.MarkPersistentFlagDirname("install-dir")
	_ = rootCmd.MarkPersistentFlagDirname("tools-dir")

	rootCmd.AddCommand(commands.NewInstallCommand())
	rootCmd.AddCommand(commands.NewStatusCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command with the process arguments. An interrupt or
// SIGTERM cancels the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return ExecuteContext(ctx, os.Args[1:])
}

// ExecuteContext runs the root command with args under ctx. A cancelled
// install stops before its next step and is recorded as failed.
func ExecuteContext(ctx context.Context, args []string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for dminstall.

To load completions:

Bash:
  $ source <(dminstall completion bash)

Zsh:
  $ dminstall completion zsh > "${fpath[1]}/_dminstall"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ dminstall completion fish | source

PowerShell:
  PS> dminstall completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> dminstall completion powershell > dminstall.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
