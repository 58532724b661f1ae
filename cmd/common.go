package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"apk-catalog/catalog"
	"apk-catalog/client"
	"apk-catalog/config"
	"apk-catalog/db"
	"apk-catalog/logger"

	"go.uber.org/zap"
)

// loadConfig reads the configuration and starts the logger it describes.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.InitLogger(logger.Options{File: cfg.LogFile, Level: cfg.LogLevel}); err != nil {
		return config.Config{}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// openStore selects the catalog backend: SQLite when DATABASE_PATH is set,
// memory otherwise. The returned close function is always non-nil.
func openStore(ctx context.Context, cfg config.Config) (catalog.Store, func(), error) {
	var (
		store   catalog.Store
		closeFn = func() {}
	)

	if cfg.DatabasePath == "" {
		store = catalog.NewMemoryStore()
		logger.Log.Info("Using in-memory catalog store")
	} else {
		gdb, err := db.Open(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		store = db.NewStore(gdb)
		closeFn = func() {
			if err := db.Close(gdb); err != nil {
				logger.Log.Warnw("Failed to close database", zap.Error(err))
			}
		}
		logger.Log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))
	}

	if cfg.SeedDemoData {
		n, err := catalog.Seed(ctx, store, time.Now())
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
		if n > 0 {
			logger.Log.Infow("Seeded demo catalog", zap.Int("entries", n))
		}
	}
	return store, closeFn, nil
}

// bootstrapClient handles shared initialization for commands that talk to
// a running server.
func bootstrapClient() (config.Config, *client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}
	c, err := client.NewClient(cfg)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return cfg, c, nil
}

// parseFeatureList parses a comma-separated feature flag.
func parseFeatureList(raw string) ([]catalog.Feature, error) {
	var features []catalog.Feature
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		f, err := catalog.ParseFeature(item)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}
