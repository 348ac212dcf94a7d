package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var (
	logLevel  string
	logFormat string
)

// newRootCommand builds the command tree. Tests call it to get a tree with no
// state left over from another test.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "server",
		Short: "iFeis server - Irish dance competition backend",
		Long: `iFeis server runs the registration, scheduling and results backend for
Irish dance competitions (feiseanna).

It covers:
- Accounts, dependents and Google sign-in
- Feis setup, invitations and personnel grants
- Competitor registration and payments
- Stage schedules, event check-in and tabulation
- Placement calculation with Irish points`,
		SilenceUsage: true,
		// Serve when no subcommand is given
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd)
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: json)")
	addServeFlags(root)

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newTemplatesCommand(),
		newPlacementsCommand(),
		newVersionCommand(),
		newHealthcheckCommand(),
	)
	return root
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
