package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/speakerpool/cmd/speakerpool/cmd/consolidate"
	"github.com/agentstation/speakerpool/cmd/speakerpool/cmd/publish"
	"github.com/agentstation/speakerpool/cmd/speakerpool/cmd/roster"
	"github.com/agentstation/speakerpool/cmd/speakerpool/cmd/self"
	"github.com/agentstation/speakerpool/cmd/speakerpool/cmd/version"
	"github.com/agentstation/speakerpool/internal/cmd/output"
	"github.com/agentstation/speakerpool/pkg/errors"
)

// Execute runs the CLI with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "speakerpool",
		Short:   "Speaker pool reconciliation CLI",
		Version: a.version,
		Long: `Speakerpool maintains the speaker pool collection kept in object storage.

Speakers edit their own record through per-speaker delta files. The
consolidate command folds those deltas into the canonical collection;
the other commands run a live session the way the directory does.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "self", Title: "Own Record Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "admin", Title: "Admin Commands:"})

	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is ./.speakerpool.yaml or $HOME/.speakerpool.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&a.config.Format, "format", "o", a.config.Format, "output format: table, json, yaml, wide")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", a.config.LogLevel, "log level: trace, debug, info, warn, error (overrides -v/-q)")
	rootCmd.PersistentFlags().StringVar(&a.config.Storage.Backend, "backend", a.config.Storage.Backend, "storage backend: http, files, memory, postgres")
	rootCmd.PersistentFlags().StringVar(&a.config.Storage.Dir, "dir", a.config.Storage.Dir, "root directory for the files backend")
	rootCmd.PersistentFlags().StringVar(&a.config.Principal.Name, "principal-name", a.config.Principal.Name, "act as this principal name instead of the token's")
	rootCmd.PersistentFlags().StringVar(&a.config.Principal.Email, "principal-email", a.config.Principal.Email, "act as this principal email instead of the token's")

	rootCmd.SetVersionTemplate("speakerpool {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	verbose := mustGetBool(cmd, "verbose")
	quiet := mustGetBool(cmd, "quiet")
	noColor := mustGetBool(cmd, "no-color")
	format := mustGetString(cmd, "format")
	logLevel := mustGetString(cmd, "log-level")

	// An explicit config file replaces the one found during New
	if configFile := mustGetString(cmd, "config"); configFile != "" {
		config, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		a.config = config
	}
	a.config.UpdateFromFlags(verbose, quiet, noColor, format, logLevel)
	if _, err := output.ParseFormat(a.config.Format); err != nil {
		return errors.NewValidationError("format", a.config.Format, err.Error())
	}
	if cmd.Flags().Changed("backend") {
		a.config.Storage.Backend = mustGetString(cmd, "backend")
	}
	if cmd.Flags().Changed("dir") {
		a.config.Storage.Dir = mustGetString(cmd, "dir")
	}
	if cmd.Flags().Changed("principal-name") {
		a.config.Principal.Name = mustGetString(cmd, "principal-name")
	}
	if cmd.Flags().Changed("principal-email") {
		a.config.Principal.Email = mustGetString(cmd, "principal-email")
	}

	logger := NewLogger(a.config)
	a.logger = &logger
	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(consolidate.NewCommand(a))
	rootCmd.AddCommand(roster.NewListCommand(a))
	rootCmd.AddCommand(roster.NewStatsCommand(a))

	rootCmd.AddCommand(self.NewWhoamiCommand(a))
	rootCmd.AddCommand(self.NewRegisterCommand(a))
	rootCmd.AddCommand(self.NewSaveCommand(a))

	rootCmd.AddCommand(publish.NewCommand(a))

	rootCmd.AddCommand(version.NewCommand(a))
}

// ExitOnError prints an error and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
