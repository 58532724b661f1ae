package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestProcessConfigDefaults(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		viper.Reset()
		cfg := Config{}
		processConfigDefaults(&cfg)

		if cfg.ListenAddr != ":5000" {
			t.Errorf("Expected ListenAddr to be :5000, got %s", cfg.ListenAddr)
		}
		if cfg.UploadDir != "uploads" {
			t.Errorf("Expected UploadDir to be uploads, got %s", cfg.UploadDir)
		}
		if !cfg.SeedDemoData {
			t.Error("Expected SeedDemoData to default to true")
		}
		if cfg.MaxAPKSize != 1<<30 {
			t.Errorf("Expected MaxAPKSize to be 1 GiB, got %d", cfg.MaxAPKSize)
		}
		if cfg.UserAgent == "" || cfg.APIURL == "" || cfg.LogLevel == "" {
			t.Errorf("Expected client and log defaults, got %+v", cfg)
		}
	})

	t.Run("respects existing values", func(t *testing.T) {
		viper.Reset()
		viper.Set("SEED_DEMO_DATA", "false")
		cfg := Config{
			ListenAddr: "127.0.0.1:8080",
			UploadDir:  "/srv/apks",
			MaxAPKSize: 1024,
			UserAgent:  "custom-agent",
		}
		processConfigDefaults(&cfg)

		if cfg.ListenAddr != "127.0.0.1:8080" {
			t.Errorf("Expected ListenAddr to stay, got %s", cfg.ListenAddr)
		}
		if cfg.UploadDir != "/srv/apks" {
			t.Errorf("Expected UploadDir to stay, got %s", cfg.UploadDir)
		}
		if cfg.SeedDemoData {
			t.Error("Expected SeedDemoData false")
		}
		if cfg.MaxAPKSize != 1024 {
			t.Errorf("Expected MaxAPKSize to stay 1024, got %d", cfg.MaxAPKSize)
		}
		if cfg.UserAgent != "custom-agent" {
			t.Errorf("Expected UserAgent to stay custom-agent, got %s", cfg.UserAgent)
		}
	})

	t.Run("invalid seed flag", func(t *testing.T) {
		viper.Reset()
		viper.Set("SEED_DEMO_DATA", "maybe")
		cfg := Config{}
		processConfigDefaults(&cfg)
		if !cfg.SeedDemoData {
			t.Error("Expected invalid SEED_DEMO_DATA to fall back to true")
		}
	})
}

func TestValidateAndEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing upload dir", func(t *testing.T) {
		cfg := Config{UploadDir: ""}
		if err := validateAndEnsureDirectories(&cfg); err == nil {
			t.Error("Expected error for missing UploadDir")
		}
	})

	t.Run("creates directory", func(t *testing.T) {
		dir := filepath.Join(tmpDir, "nested", "uploads")
		cfg := Config{UploadDir: dir}
		if err := validateAndEnsureDirectories(&cfg); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("Directory %s was not created", dir)
		}
	})
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	uploads := filepath.Join(dir, "files")
	env := "LISTEN_ADDR=:9000\nUPLOAD_DIR=" + uploads + "\nSEED_DEMO_DATA=false\nMAX_APK_SIZE=2048\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.UploadDir != uploads {
		t.Errorf("UploadDir = %q", cfg.UploadDir)
	}
	if cfg.SeedDemoData {
		t.Error("SeedDemoData should be false")
	}
	if cfg.MaxAPKSize != 2048 {
		t.Errorf("MaxAPKSize = %d", cfg.MaxAPKSize)
	}
	if _, err := os.Stat(uploads); err != nil {
		t.Errorf("upload dir not created: %v", err)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	uploads := filepath.Join(t.TempDir(), "env-uploads")
	t.Setenv("UPLOAD_DIR", uploads)
	t.Setenv("DATABASE_PATH", "/tmp/catalog.db")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.UploadDir != uploads || cfg.DatabasePath != "/tmp/catalog.db" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.ListenAddr != DefaultListenAddr || !cfg.SeedDemoData {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
