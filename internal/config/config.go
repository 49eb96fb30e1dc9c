// Package config defines the configuration shared by markview and markedit.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Viewer   ViewerConfig   `mapstructure:"viewer"`
	Launcher LauncherConfig `mapstructure:"launcher"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Viewer.Validate(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	if err := c.Launcher.Validate(); err != nil {
		return fmt.Errorf("launcher: %w", err)
	}
	return nil
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate validates the logging configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.Required, validation.By(func(any) error {
			_, err := c.SlogLevel()
			return err
		})),
		validation.Field(&c.Format, validation.Required, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// SlogLevel parses Level into a slog.Level.
func (c *LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown level %q", c.Level)
	}
	return lvl, nil
}

// ViewerConfig holds configuration of the markview window.
type ViewerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	OpenBrowser  bool          `mapstructure:"open_browser"`
	CloseGrace   time.Duration `mapstructure:"close_grace"`
}

// Address returns the listen address of the window server.
func (c *ViewerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the viewer configuration.
func (c *ViewerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PollInterval, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.Host, validation.Required),
		// Port 0 picks an ephemeral port.
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.CloseGrace, validation.Min(time.Duration(0))),
	)
}

// LauncherConfig holds configuration of the markedit session.
type LauncherConfig struct {
	Editor        string        `mapstructure:"editor"`
	Viewer        string        `mapstructure:"viewer"`
	CreateMissing bool          `mapstructure:"create_missing"`
	Debounce      time.Duration `mapstructure:"debounce"`
}

// Validate validates the launcher configuration.
func (c *LauncherConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0)), validation.Max(5*time.Second)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
		Viewer: ViewerConfig{
			PollInterval: 100 * time.Millisecond,
			Host:         "127.0.0.1",
			Port:         0,
			OpenBrowser:  true,
			CloseGrace:   1500 * time.Millisecond,
		},
		Launcher: LauncherConfig{
			CreateMissing: true,
			Debounce:      50 * time.Millisecond,
		},
	}
}
