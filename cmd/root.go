package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "apk-catalog",
	Short: "Catalog server and tools for sideloadable Android packages",
	Long: `apk-catalog serves a browsable catalog of Android application packages
over HTTP and ships terminal tools to browse, publish and download them.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing the .env config file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
