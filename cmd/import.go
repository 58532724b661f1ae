package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"apk-catalog/catalog"
	"apk-catalog/client"
	"apk-catalog/logger"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Publish every APK found under a directory",
	Long: `Walks a directory and uploads each .apk file to a running catalog server.
Files whose SHA-256 checksum is already in the catalog are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := bootstrapClient()
		if err != nil {
			return err
		}
		defer logger.Sync()

		opts, err := importOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		plain, _ := cmd.Flags().GetBool("plain")
		if plain {
			progress := make(chan ImportProgressMsg, 16)
			go func() {
				defer close(progress)
				runImport(cmd.Context(), c, args[0], opts, progress)
			}()
			for msg := range progress {
				if msg.Type == "error" {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", msg.File, msg.Message)
				} else if msg.Message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), msg.Message)
				}
			}
			return nil
		}

		p := tea.NewProgram(initialImportModel(cmd.Context(), c, args[0], opts))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("failed to run import UI: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("version", "1.0", "version recorded for every imported file")
	importCmd.Flags().String("category", string(catalog.CategoryUtilities), "category for every imported file")
	importCmd.Flags().String("features", "", "comma-separated feature tags for every imported file")
	importCmd.Flags().Bool("plain", false, "print progress lines instead of the interactive view")
}

type importOptions struct {
	Version  string
	Category catalog.Category
	Features []catalog.Feature
}

func importOptionsFromFlags(cmd *cobra.Command) (importOptions, error) {
	version, _ := cmd.Flags().GetString("version")
	rawCategory, _ := cmd.Flags().GetString("category")
	rawFeatures, _ := cmd.Flags().GetString("features")

	category, err := catalog.ParseCategory(rawCategory)
	if err != nil {
		return importOptions{}, err
	}
	features, err := parseFeatureList(rawFeatures)
	if err != nil {
		return importOptions{}, err
	}
	return importOptions{Version: version, Category: category, Features: features}, nil
}

// collectAPKs lists .apk files under dir, skipping hidden directories. The
// extension must be lowercase, as the server rejects anything else.
func collectAPKs(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".apk" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan '%s': %w", dir, err)
	}
	return files, nil
}

// runImport uploads every new APK under dir, reporting on progress. It
// returns the number of files published.
func runImport(ctx context.Context, c *client.Client, dir string, opts importOptions, progress chan<- ImportProgressMsg) int {
	send := func(msg ImportProgressMsg) {
		select {
		case progress <- msg:
		case <-ctx.Done():
		}
	}

	send(ImportProgressMsg{Type: "status", Message: fmt.Sprintf("Scanning %s...", dir)})
	files, err := collectAPKs(dir)
	if err != nil {
		send(ImportProgressMsg{Type: "error", File: dir, Message: err.Error()})
		return 0
	}

	existing, err := c.ListAll(ctx)
	if err != nil {
		send(ImportProgressMsg{Type: "error", File: dir, Message: err.Error()})
		return 0
	}
	known := make(map[string]bool, len(existing))
	for _, e := range existing {
		if e.Checksum != "" {
			known[e.Checksum] = true
		}
	}

	published, skipped, failed := 0, 0, 0
	for _, path := range files {
		name := filepath.Base(path)
		hash, err := calculateSHA256(path)
		if err != nil {
			logger.Log.Warnw("Failed to calculate hash", zap.String("file", name), zap.Error(err))
			send(ImportProgressMsg{Type: "error", File: name, Message: err.Error()})
			failed++
			continue
		}
		if known[hash] {
			skipped++
			send(ImportProgressMsg{Type: "skip", File: name, Message: fmt.Sprintf("Skipped %s (already published)", name)})
			continue
		}

		send(ImportProgressMsg{Type: "upload_start", File: name})
		display := displayName(path)
		entry, err := c.Upload(ctx, client.UploadRequest{
			Name:        display,
			Description: fmt.Sprintf("%s imported from %s", display, name),
			Version:     opts.Version,
			Category:    opts.Category,
			Features:    opts.Features,
			APKPath:     path,
		})
		if err != nil {
			logger.Log.Errorw("Failed to import APK", zap.String("file", name), zap.Error(err))
			send(ImportProgressMsg{Type: "error", File: name, Message: err.Error()})
			failed++
			continue
		}
		known[hash] = true
		published++
		logger.Log.Infow("Imported APK", zap.String("file", name), zap.Int("id", entry.ID))
		send(ImportProgressMsg{Type: "upload_success", File: name, Message: fmt.Sprintf("Published %s as #%d", name, entry.ID)})
	}

	send(ImportProgressMsg{
		Type:    "summary",
		Message: fmt.Sprintf("%d published, %d skipped, %d failed", published, skipped, failed),
	})
	return published
}

func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
