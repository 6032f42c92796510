// Package config loads application settings with viper.
package config

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Workspace    WorkspaceConfig    `mapstructure:"workspace"`
	Segmentation SegmentationConfig `mapstructure:"segmentation"`
	Display      DisplayConfig      `mapstructure:"display"`
	Log          LogConfig          `mapstructure:"log"`
}

type WorkspaceConfig struct {
	Thickness        int     `mapstructure:"thickness"`
	EraserFactor     int     `mapstructure:"eraser_factor"`
	MinMove          float64 `mapstructure:"min_move"`
	MaxPixels        int     `mapstructure:"max_pixels"`
	AllowRotation    bool    `mapstructure:"allow_rotation"`
	SingleFingerDrag bool    `mapstructure:"single_finger_drag"`
}

type SegmentationConfig struct {
	Engine    string `mapstructure:"engine"`    // native or opencv
	Highlight string `mapstructure:"highlight"` // #rrggbbaa
}

type DisplayConfig struct {
	Width         int    `mapstructure:"width"`
	Height        int    `mapstructure:"height"`
	Interpolation string `mapstructure:"interpolation"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// Load reads the config file at path on top of the defaults. An empty path
// yields the defaults. CUTOUT_* environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("cutout")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in settings.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults always validate.
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workspace.thickness", 8)
	v.SetDefault("workspace.eraser_factor", 4)
	v.SetDefault("workspace.min_move", 10.0)
	v.SetDefault("workspace.max_pixels", 40_000_000)
	v.SetDefault("workspace.allow_rotation", false)
	v.SetDefault("workspace.single_finger_drag", true)

	v.SetDefault("segmentation.engine", "native")
	v.SetDefault("segmentation.highlight", "#ff000080")

	v.SetDefault("display.width", 1024)
	v.SetDefault("display.height", 768)
	v.SetDefault("display.interpolation", "bilinear")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Workspace.Thickness < 1:
		return fmt.Errorf("workspace.thickness must be at least 1, got %d", c.Workspace.Thickness)
	case c.Workspace.EraserFactor < 1:
		return fmt.Errorf("workspace.eraser_factor must be at least 1, got %d", c.Workspace.EraserFactor)
	case c.Workspace.MinMove < 0:
		return fmt.Errorf("workspace.min_move must not be negative, got %v", c.Workspace.MinMove)
	case c.Display.Width < 1 || c.Display.Height < 1:
		return fmt.Errorf("display size must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	}
	switch strings.ToLower(c.Segmentation.Engine) {
	case "native", "opencv":
	default:
		return fmt.Errorf("unknown segmentation.engine %q", c.Segmentation.Engine)
	}
	return nil
}

// Apply configures the standard logrus logger.
func (c LogConfig) Apply() error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	switch strings.ToLower(c.Format) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	return nil
}
