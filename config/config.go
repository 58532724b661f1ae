package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

const (
	DefaultListenAddr = ":5000"
	DefaultUploadDir  = "uploads"
	DefaultAPIURL     = "http://localhost:5000"
	DefaultUserAgent  = "apk-catalog/dev"
	DefaultLogLevel   = "info"

	// DefaultMaxAPKSize is 1 GiB.
	DefaultMaxAPKSize int64 = 1 << 30
)

// Config holds all configuration for the application.
// Values are loaded by Viper from a config file and/or environment variables.
type Config struct {
	ListenAddr   string `mapstructure:"LISTEN_ADDR"`
	UploadDir    string `mapstructure:"UPLOAD_DIR"`
	DatabasePath string `mapstructure:"DATABASE_PATH"` // empty selects the in-memory store
	SeedDemoData bool   `mapstructure:"SEED_DEMO_DATA"`
	MaxAPKSize   int64  `mapstructure:"MAX_APK_SIZE"`
	LogFile      string `mapstructure:"LOG_FILE"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`
	APIURL       string `mapstructure:"API_URL"`
	UserAgent    string `mapstructure:"USERAGENT"`
}

var envKeys = []string{
	"LISTEN_ADDR",
	"UPLOAD_DIR",
	"DATABASE_PATH",
	"SEED_DEMO_DATA",
	"MAX_APK_SIZE",
	"LOG_FILE",
	"LOG_LEVEL",
	"API_URL",
	"USERAGENT",
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	vipErr := viper.ReadInConfig()
	if _, ok := vipErr.(viper.ConfigFileNotFoundError); ok {
		slog.Debug("Config file (.env) not found, relying on environment variables.")
	} else if vipErr != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vipErr)
	}

	viper.AutomaticEnv()
	for _, key := range envKeys {
		if err := viper.BindEnv(key, key); err != nil {
			slog.Warn("Unable to bind env var", "key", key, "error", err)
		}
	}

	// SEED_DEMO_DATA and MAX_APK_SIZE are parsed in processConfigDefaults so
	// that an unset value can be told apart from false/0.
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", err)
	}

	processConfigDefaults(&config)
	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

func processConfigDefaults(config *Config) {
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}
	if config.UploadDir == "" {
		config.UploadDir = DefaultUploadDir
	}
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}

	seedStr := viper.GetString("SEED_DEMO_DATA")
	if seedStr == "" {
		config.SeedDemoData = true
	} else if seed, err := strconv.ParseBool(seedStr); err != nil {
		slog.Warn("Invalid value for SEED_DEMO_DATA, defaulting to true", "value", seedStr, "error", err)
		config.SeedDemoData = true
	} else {
		config.SeedDemoData = seed
	}

	if config.MaxAPKSize <= 0 {
		config.MaxAPKSize = DefaultMaxAPKSize
	}
}

func validateAndEnsureDirectories(config *Config) error {
	if config.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if _, err := os.Stat(config.UploadDir); os.IsNotExist(err) {
		slog.Info("Upload directory does not exist, creating it", "path", config.UploadDir)
		if err := os.MkdirAll(config.UploadDir, 0755); err != nil {
			return fmt.Errorf("failed to create upload directory '%s': %w", config.UploadDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check upload directory '%s': %w", config.UploadDir, err)
	}
	return nil
}
