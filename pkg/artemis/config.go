// config.go defines module configuration and its file and environment
// loading.

package artemis

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultLogDir is used when Config.LogDir is empty.
const DefaultLogDir = "data/kharon/artemis"

// Config is read once by Initialize and never mutated afterwards.
type Config struct {
	// Enabled turns the module on. Default false.
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// LogDir is the directory reports are written to. It must exist and be
	// writable when Initialize runs.
	LogDir string `yaml:"log_dir" toml:"log_dir"`

	// APIKey is copied into every report when non-empty.
	APIKey string `yaml:"api_key" toml:"api_key"`

	// HiddenFields lists request data keys whose values are masked.
	// Default: password.
	HiddenFields []string `yaml:"hide_fields" toml:"hide_fields"`

	// Mask replaces hidden values. Default "*".
	Mask string `yaml:"mask" toml:"mask"`

	// LegacyParseSeverity reports parse errors (kind 4) as notices, the way
	// older deployments classified them.
	LegacyParseSeverity bool `yaml:"legacy_parse_severity" toml:"legacy_parse_severity"`
}

// DefaultConfig returns the defaults applied before file and environment
// values.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		LogDir:       DefaultLogDir,
		HiddenFields: []string{"password"},
		Mask:         DefaultMask,
	}
}

// withDefaults fills unset fields from DefaultConfig. A nil HiddenFields
// gets the default list; an empty non-nil one hides nothing.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.LogDir == "" {
		c.LogDir = def.LogDir
	}
	if c.Mask == "" {
		c.Mask = def.Mask
	}
	if c.HiddenFields == nil {
		c.HiddenFields = def.HiddenFields
	}
	return c
}

// Policy returns the redaction policy described by c.
func (c Config) Policy() RedactionPolicy {
	return NewRedactionPolicy(c.Mask, c.HiddenFields...)
}

// Validate checks the settings that do not touch the file system.
func (c Config) Validate() error {
	if c.LogDir == "" {
		return fmt.Errorf("%w: log_dir is empty", ErrConfiguration)
	}
	if c.Mask == "" {
		return fmt.Errorf("%w: mask is empty", ErrConfiguration)
	}
	for _, f := range c.HiddenFields {
		if f == c.Mask {
			return fmt.Errorf("%w: mask %q is also a hidden field", ErrConfiguration, c.Mask)
		}
	}
	return nil
}

// fileConfig mirrors the on-disk layout, which nests settings under an
// "artemis" key so the section can live in a shared application config.
type fileConfig struct {
	Artemis *Config `yaml:"artemis" toml:"artemis"`
}

// LoadConfig reads the artemis section of a YAML file (TOML when the name
// ends in .toml), applies environment overrides and validates the result. A
// missing section yields defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	fc := fileConfig{Artemis: &cfg}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = yaml.Unmarshal(data, &fc)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides applies ARTEMIS_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("ARTEMIS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ARTEMIS_ENABLED: %w", err)
		}
		cfg.Enabled = enabled
	}
	if v := os.Getenv("ARTEMIS_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("ARTEMIS_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("ARTEMIS_HIDE_FIELDS"); v != "" {
		var fields []string
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
		cfg.HiddenFields = fields
	}
	return nil
}
