package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables overriding configuration keys.
// MARKVIEW_VIEWER_PORT overrides viewer.port.
const EnvPrefix = "MARKVIEW"

// NewViper returns a viper instance seeded with the defaults of NewDefaultConfig,
// reading MARKVIEW_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	d := NewDefaultConfig()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("viewer.poll_interval", d.Viewer.PollInterval)
	v.SetDefault("viewer.host", d.Viewer.Host)
	v.SetDefault("viewer.port", d.Viewer.Port)
	v.SetDefault("viewer.open_browser", d.Viewer.OpenBrowser)
	v.SetDefault("viewer.close_grace", d.Viewer.CloseGrace)
	v.SetDefault("launcher.editor", d.Launcher.Editor)
	v.SetDefault("launcher.viewer", d.Launcher.Viewer)
	v.SetDefault("launcher.create_missing", d.Launcher.CreateMissing)
	v.SetDefault("launcher.debounce", d.Launcher.Debounce)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// ReadFile points v at cfgFile, or at markview.yaml in the working directory
// or ~/.config/markview when cfgFile is empty. A missing default file is not
// an error; a missing explicit file is.
func ReadFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("markview")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "markview"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Dump writes cfg as YAML. Durations are written in their string form so
// the output can be fed back as a config file.
func Dump(w io.Writer, cfg *Config) error {
	doc := map[string]any{
		"log": map[string]any{
			"level":  cfg.Log.Level,
			"format": cfg.Log.Format,
		},
		"viewer": map[string]any{
			"poll_interval": cfg.Viewer.PollInterval.String(),
			"host":          cfg.Viewer.Host,
			"port":          cfg.Viewer.Port,
			"open_browser":  cfg.Viewer.OpenBrowser,
			"close_grace":   cfg.Viewer.CloseGrace.String(),
		},
		"launcher": map[string]any{
			"editor":         cfg.Launcher.Editor,
			"viewer":         cfg.Launcher.Viewer,
			"create_missing": cfg.Launcher.CreateMissing,
			"debounce":       cfg.Launcher.Debounce.String(),
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
