package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"apk-catalog/catalog"
	"apk-catalog/client"
	"apk-catalog/logger"
	"apk-catalog/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// pushCmd represents the push command
var pushCmd = &cobra.Command{
	Use:   "push <file.apk>",
	Short: "Upload one APK to a running catalog server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := bootstrapClient()
		if err != nil {
			return err
		}
		defer logger.Sync()

		req, err := pushRequestFromFlags(cmd.Flags(), args[0])
		if err != nil {
			return err
		}

		entry, err := c.Upload(cmd.Context(), req)
		if err != nil {
			logger.Log.Errorw("Upload failed", zap.String("file", args[0]), zap.Error(err))
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published %s %s as #%d in %s\n",
			entry.Name, entry.Version, entry.ID,
			ui.Colorize(string(entry.Category), ui.CategoryColor(entry.Category)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
	addPushFlags(pushCmd.Flags())
}

func addPushFlags(fs *pflag.FlagSet) {
	fs.String("name", "", "display name (defaults to the file name)")
	fs.String("description", "", "description, at least 10 characters")
	fs.String("version", "1.0", "version string")
	fs.String("category", string(catalog.CategoryUtilities), "one of: "+categoryList())
	fs.String("size", "", "human-readable size (derived from the file when empty)")
	fs.String("features", "", "comma-separated feature tags")
	fs.String("icon", "", "optional icon image")
}

func pushRequestFromFlags(flags *pflag.FlagSet, apkPath string) (client.UploadRequest, error) {
	name, _ := flags.GetString("name")
	description, _ := flags.GetString("description")
	version, _ := flags.GetString("version")
	rawCategory, _ := flags.GetString("category")
	size, _ := flags.GetString("size")
	rawFeatures, _ := flags.GetString("features")
	icon, _ := flags.GetString("icon")

	category, err := catalog.ParseCategory(rawCategory)
	if err != nil {
		return client.UploadRequest{}, err
	}
	features, err := parseFeatureList(rawFeatures)
	if err != nil {
		return client.UploadRequest{}, err
	}
	if name == "" {
		name = displayName(apkPath)
	}
	if description == "" {
		description = fmt.Sprintf("%s uploaded from %s", name, filepath.Base(apkPath))
	}

	return client.UploadRequest{
		Name:        name,
		Description: description,
		Version:     version,
		Category:    category,
		Size:        size,
		Features:    features,
		APKPath:     apkPath,
		IconPath:    icon,
	}, nil
}

// displayName turns "my_cool-app.apk" into "my cool app".
func displayName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := strings.Join(strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	}), " ")
	if len(name) < 3 {
		name = base + " app"
	}
	return name
}

func categoryList() string {
	names := make([]string, len(catalog.Categories))
	for i, c := range catalog.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
