package cmd

import (
	"fmt"
	"strconv"

	"apk-catalog/logger"

	"github.com/spf13/cobra"
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download an entry's APK from a running catalog server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid APK ID %q", args[0])
		}
		dir, _ := cmd.Flags().GetString("dir")

		_, c, err := bootstrapClient()
		if err != nil {
			return err
		}
		defer logger.Sync()

		path, err := c.Download(cmd.Context(), logger.Log, id, dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringP("dir", "d", ".", "directory to save into")
}
