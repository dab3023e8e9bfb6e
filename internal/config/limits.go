package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/docker/go-units"
)

const (
	// EnvLimitsMaxUploadSize overrides the maximum upload size.
	EnvLimitsMaxUploadSize = "LIMITS_MAX_UPLOAD_SIZE"

	// EnvLimitsMaxDocumentsPerOwner overrides the per-owner quota.
	EnvLimitsMaxDocumentsPerOwner = "LIMITS_MAX_DOCUMENTS_PER_OWNER"

	// EnvLimitsUploadsPerWindow overrides the upload rate limit.
	EnvLimitsUploadsPerWindow = "LIMITS_UPLOADS_PER_WINDOW"

	// EnvLimitsDownloadsPerWindow overrides the download rate limit.
	EnvLimitsDownloadsPerWindow = "LIMITS_DOWNLOADS_PER_WINDOW"

	// EnvLimitsRateWindow overrides the sliding rate window.
	EnvLimitsRateWindow = "LIMITS_RATE_WINDOW"
)

// LimitsConfig contains upload quotas and rate limiting settings.
// MaxUploadSize accepts human-readable sizes such as "10MB".
type LimitsConfig struct {
	MaxUploadSize        string `toml:"max_upload_size"`
	MaxDocumentsPerOwner int    `toml:"max_documents_per_owner"`
	UploadsPerWindow     int    `toml:"uploads_per_window"`
	DownloadsPerWindow   int    `toml:"downloads_per_window"`
	RateWindow           string `toml:"rate_window"`
}

// MaxUploadSizeBytes parses the maximum upload size into bytes.
func (c *LimitsConfig) MaxUploadSizeBytes() int64 {
	n, _ := units.FromHumanSize(c.MaxUploadSize)
	return n
}

// RateWindowDuration parses the sliding rate window.
func (c *LimitsConfig) RateWindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.RateWindow)
	return d
}

// Finalize applies defaults, loads environment overrides, and
// validates the limits configuration.
func (c *LimitsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from
// zero values.
func (c *LimitsConfig) Merge(overlay *LimitsConfig) {
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	if overlay.MaxDocumentsPerOwner != 0 {
		c.MaxDocumentsPerOwner = overlay.MaxDocumentsPerOwner
	}
	if overlay.UploadsPerWindow != 0 {
		c.UploadsPerWindow = overlay.UploadsPerWindow
	}
	if overlay.DownloadsPerWindow != 0 {
		c.DownloadsPerWindow = overlay.DownloadsPerWindow
	}
	if overlay.RateWindow != "" {
		c.RateWindow = overlay.RateWindow
	}
}

func (c *LimitsConfig) loadDefaults() {
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "10MB"
	}
	if c.MaxDocumentsPerOwner == 0 {
		c.MaxDocumentsPerOwner = 100
	}
	if c.UploadsPerWindow == 0 {
		c.UploadsPerWindow = 20
	}
	if c.DownloadsPerWindow == 0 {
		c.DownloadsPerWindow = 50
	}
	if c.RateWindow == "" {
		c.RateWindow = "1h"
	}
}

func (c *LimitsConfig) loadEnv() {
	if v := os.Getenv(EnvLimitsMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
	if v := os.Getenv(EnvLimitsMaxDocumentsPerOwner); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxDocumentsPerOwner = n
		}
	}
	if v := os.Getenv(EnvLimitsUploadsPerWindow); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.UploadsPerWindow = n
		}
	}
	if v := os.Getenv(EnvLimitsDownloadsPerWindow); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DownloadsPerWindow = n
		}
	}
	if v := os.Getenv(EnvLimitsRateWindow); v != "" {
		c.RateWindow = v
	}
}

func (c *LimitsConfig) validate() error {
	n, err := units.FromHumanSize(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	if c.MaxDocumentsPerOwner < 1 {
		return fmt.Errorf("max_documents_per_owner must be positive")
	}
	if c.UploadsPerWindow < 1 || c.UploadsPerWindow > 1000 {
		return fmt.Errorf("uploads_per_window must be between 1 and 1000")
	}
	if c.DownloadsPerWindow < 1 || c.DownloadsPerWindow > 1000 {
		return fmt.Errorf("downloads_per_window must be between 1 and 1000")
	}
	if _, err := time.ParseDuration(c.RateWindow); err != nil {
		return fmt.Errorf("invalid rate_window: %w", err)
	}
	return nil
}
