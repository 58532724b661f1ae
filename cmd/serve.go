package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"apk-catalog/config"
	"apk-catalog/ingest"
	"apk-catalog/logger"
	"apk-catalog/server"
	"apk-catalog/storage"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the catalog HTTP server",
	Long: `Serves the catalog API under /api, uploaded files under /api/uploads,
plus /healthz and /metrics. Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg config.Config) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	disk, err := storage.NewDisk(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	srv := server.New(server.Options{
		Store:      store,
		Disk:       disk,
		Ingestor:   ingest.NewIngestor(store, disk, cfg.MaxAPKSize, logger.Log),
		Log:        logger.Log,
		MaxAPKSize: cfg.MaxAPKSize,
	})
	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}
