package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// EnvWatermarkOpacity overrides the grid watermark opacity.
	EnvWatermarkOpacity = "WATERMARK_OPACITY"

	// EnvWatermarkFontSize overrides the grid watermark font size.
	EnvWatermarkFontSize = "WATERMARK_FONT_SIZE"
)

// WatermarkConfig contains overlay rendering settings: opacity,
// font sizes, color, and grid density.
type WatermarkConfig struct {
	Opacity       float64 `toml:"opacity"`
	FontSize      int     `toml:"font_size"`
	SmallFontSize int     `toml:"small_font_size"`
	ColorRed      float64 `toml:"color_red"`
	ColorGreen    float64 `toml:"color_green"`
	ColorBlue     float64 `toml:"color_blue"`
	GridColumns   int     `toml:"grid_columns"`
	GridRows      int     `toml:"grid_rows"`
}

// Finalize applies defaults, loads environment overrides, and
// validates the watermark configuration.
func (c *WatermarkConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from
// zero values.
func (c *WatermarkConfig) Merge(overlay *WatermarkConfig) {
	if overlay.Opacity != 0 {
		c.Opacity = overlay.Opacity
	}
	if overlay.FontSize != 0 {
		c.FontSize = overlay.FontSize
	}
	if overlay.SmallFontSize != 0 {
		c.SmallFontSize = overlay.SmallFontSize
	}
	if overlay.ColorRed != 0 {
		c.ColorRed = overlay.ColorRed
	}
	if overlay.ColorGreen != 0 {
		c.ColorGreen = overlay.ColorGreen
	}
	if overlay.ColorBlue != 0 {
		c.ColorBlue = overlay.ColorBlue
	}
	if overlay.GridColumns != 0 {
		c.GridColumns = overlay.GridColumns
	}
	if overlay.GridRows != 0 {
		c.GridRows = overlay.GridRows
	}
}

func (c *WatermarkConfig) loadDefaults() {
	if c.Opacity == 0 {
		c.Opacity = 0.3
	}
	if c.FontSize == 0 {
		c.FontSize = 24
	}
	if c.SmallFontSize == 0 {
		c.SmallFontSize = 12
	}
	if c.ColorRed == 0 {
		c.ColorRed = 0.7
	}
	if c.ColorGreen == 0 {
		c.ColorGreen = 0.7
	}
	if c.ColorBlue == 0 {
		c.ColorBlue = 0.7
	}
	if c.GridColumns == 0 {
		c.GridColumns = 4
	}
	if c.GridRows == 0 {
		c.GridRows = 5
	}
}

func (c *WatermarkConfig) loadEnv() {
	if v := os.Getenv(EnvWatermarkOpacity); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Opacity = f
		}
	}
	if v := os.Getenv(EnvWatermarkFontSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FontSize = n
		}
	}
}

func (c *WatermarkConfig) validate() error {
	if c.Opacity <= 0 || c.Opacity >= 1 {
		return fmt.Errorf("opacity must be between 0 and 1 exclusive")
	}
	if c.FontSize < 8 || c.FontSize > 72 {
		return fmt.Errorf("font_size must be between 8 and 72")
	}
	if c.SmallFontSize < 6 || c.SmallFontSize > 24 {
		return fmt.Errorf("small_font_size must be between 6 and 24")
	}
	for name, v := range map[string]float64{
		"color_red":   c.ColorRed,
		"color_green": c.ColorGreen,
		"color_blue":  c.ColorBlue,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if c.GridColumns < 1 || c.GridRows < 1 {
		return fmt.Errorf("grid density must be positive")
	}
	return nil
}
