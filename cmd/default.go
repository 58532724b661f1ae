package cmd

import (
	"github.com/spf13/cobra"
)

// defaultCmd represents the command that runs when no subcommand is specified
var defaultCmd = &cobra.Command{
	Use:    "default",
	Short:  "Default command when no subcommand is provided",
	Long:   `Runs the serve command so a bare invocation starts the catalog server.`,
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(serveCmd, []string{})
	},
}

func init() {
	rootCmd.AddCommand(defaultCmd)
	// A bare invocation has no subcommand to dispatch to, so the root
	// command itself falls through to defaultCmd.
	rootCmd.Args = cobra.NoArgs
	rootCmd.RunE = defaultCmd.RunE
}
