package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/notevault/notevault/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
[database]
name = "notevault"
user = "notevault"
`)

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Limits.MaxDocumentsPerOwner != 100 {
		t.Errorf("Limits.MaxDocumentsPerOwner = %d, want default 100", cfg.Limits.MaxDocumentsPerOwner)
	}
	if cfg.Limits.RateWindowDuration() != time.Hour {
		t.Errorf("Limits.RateWindowDuration() = %v, want 1h", cfg.Limits.RateWindowDuration())
	}
	if cfg.Watermark.GridColumns != 4 || cfg.Watermark.GridRows != 5 {
		t.Errorf("Watermark grid = %dx%d, want 4x5",
			cfg.Watermark.GridColumns, cfg.Watermark.GridRows)
	}
	if cfg.ShutdownTimeoutDuration() != 30*time.Second {
		t.Errorf("ShutdownTimeoutDuration() = %v, want 30s", cfg.ShutdownTimeoutDuration())
	}
}

func TestLoadFile_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
shutdown_timeout = "10s"

[server]
port = 9090

[database]
name = "notevault"
user = "notevault"

[limits]
max_upload_size = "25MB"
uploads_per_window = 5

[watermark]
opacity = 0.5
`)

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Limits.MaxUploadSizeBytes() != 25_000_000 {
		t.Errorf("Limits.MaxUploadSizeBytes() = %d, want 25000000", cfg.Limits.MaxUploadSizeBytes())
	}
	if cfg.Limits.UploadsPerWindow != 5 {
		t.Errorf("Limits.UploadsPerWindow = %d, want 5", cfg.Limits.UploadsPerWindow)
	}
	if cfg.Watermark.Opacity != 0.5 {
		t.Errorf("Watermark.Opacity = %g, want 0.5", cfg.Watermark.Opacity)
	}
}

func TestFinalize_EnvOverrides(t *testing.T) {
	t.Setenv(config.EnvServerPort, "7070")
	t.Setenv(config.EnvLimitsDownloadsPerWindow, "9")
	t.Setenv(config.EnvDatabaseHost, "db.internal")

	path := writeConfig(t, `
[database]
name = "notevault"
user = "notevault"
`)

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Limits.DownloadsPerWindow != 9 {
		t.Errorf("Limits.DownloadsPerWindow = %d, want env override 9", cfg.Limits.DownloadsPerWindow)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want env override db.internal", cfg.Database.Host)
	}
}

func TestFinalize_InvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad port", "[server]\nport = 99999\n[database]\nname = \"n\"\nuser = \"u\"\n"},
		{"missing database name", "[database]\nuser = \"u\"\n"},
		{"bad upload size", "[limits]\nmax_upload_size = \"lots\"\n[database]\nname = \"n\"\nuser = \"u\"\n"},
		{"bad opacity", "[watermark]\nopacity = 1.5\n[database]\nname = \"n\"\nuser = \"u\"\n"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeConfig(t, c.content)
			cfg, err := config.LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() failed: %v", err)
			}
			if err := cfg.Finalize(); err == nil {
				t.Error("Finalize() succeeded with invalid configuration")
			}
		})
	}
}

func TestMerge_Overlay(t *testing.T) {
	base, err := config.LoadFile(writeConfig(t, `
[server]
port = 8080

[database]
name = "notevault"
user = "notevault"
password = "base"
`))
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	overlay, err := config.LoadFile(writeConfig(t, `
[database]
password = "production"

[logging]
level = "warn"
`))
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	base.Merge(overlay)

	if base.Database.Password != "production" {
		t.Errorf("Database.Password = %q, want overlay value", base.Database.Password)
	}
	if base.Database.Name != "notevault" {
		t.Errorf("Database.Name = %q, overlay clobbered base value", base.Database.Name)
	}
	if base.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, overlay clobbered base value", base.Server.Port)
	}
	if string(base.Logging.Level) != "warn" {
		t.Errorf("Logging.Level = %q, want overlay value", base.Logging.Level)
	}
}
