package logging

import "os"

// Environment variable names for logging configuration.
const (
	EnvLoggingLevel  = "LOGGING_LEVEL"
	EnvLoggingFormat = "LOGGING_FORMAT"
)

// Config holds logging settings.
type Config struct {
	Level  Level  `toml:"level"`
	Format Format `toml:"format"`
}

// Finalize applies defaults, loads environment overrides, and
// validates the configuration.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.Level.Validate(); err != nil {
		return err
	}
	return c.Format.Validate()
}

// Merge applies non-zero values from overlay onto the receiver.
func (c *Config) Merge(overlay *Config) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
}

func (c *Config) loadDefaults() {
	if c.Level == "" {
		c.Level = LevelInfo
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvLoggingLevel); v != "" {
		c.Level = Level(v)
	}
	if v := os.Getenv(EnvLoggingFormat); v != "" {
		c.Format = Format(v)
	}
}
