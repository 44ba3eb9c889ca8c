// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Storage StorageConfig `yaml:"storage"`
	Player  PlayerConfig  `yaml:"player"`
	Engine  EngineConfig  `yaml:"engine"`
	Log     LogConfig     `yaml:"log"`
}

// CatalogConfig represents the catalog service client configuration.
type CatalogConfig struct {
	BaseURL    string `yaml:"base_url" validate:"required,url"`
	TimeoutSec int    `yaml:"timeout_sec" default:"10" validate:"gte=1,lte=120"`
	PageSize   int    `yaml:"page_size" default:"20" validate:"gte=1,lte=50"`
}

// StorageConfig represents persistent storage configuration.
type StorageConfig struct {
	Dir string `yaml:"dir"` // empty selects the XDG default
}

// PlayerConfig represents playback configuration.
type PlayerConfig struct {
	QualityPreference []string `yaml:"quality_preference"`
	PollIntervalMs    int      `yaml:"poll_interval_ms" default:"500" validate:"gte=50,lte=5000"`
}

// EngineConfig represents the audio engine selection and its settings.
// Settings are engine specific and decoded by the engine factory.
type EngineConfig struct {
	Type     string         `yaml:"type" default:"beep"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Output string `yaml:"output" default:"stdout"`
	File   string `yaml:"file"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns a configuration usable without a config file.
func Default() (*Config, error) {
	cfg := &Config{
		Catalog: CatalogConfig{BaseURL: "https://saavn.sumit.co"},
	}
	cfg.overrideFromEnv()
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("RAAGA_CATALOG_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv("RAAGA_DATA_DIR"); v != "" {
		c.Storage.Dir = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}
