package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/bussim/core/metrics"
	"github.com/kilianp07/bussim/infra/mqtt"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use "__",
// e.g. BUSSIM_MQTT__BROKER=tcp://emqx:1883.
const EnvPrefix = "BUSSIM_"

// ErrInvalid is returned when the configuration is rejected.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	MQTT       mqtt.Config      `json:"mqtt"`
	Simulation SimulationConfig `json:"simulation"`
	Metrics    metrics.Config   `json:"metrics"`
	Logging    LoggingConfig    `json:"logging"`
}

// Default returns the configuration used when no file or override is given.
func Default() *Config {
	cfg := &Config{Simulation: DefaultSimulation()}
	cfg.MQTT.SetDefaults()
	return cfg
}

// Load reads the configuration like Read and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads the optional configuration file at path and applies BUSSIM_
// environment overrides on top of the defaults. The result is not validated,
// so callers can apply further overrides before calling Validate.
// An empty path only applies defaults and environment overrides.
func Read(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// SetDefaults applies section defaults.
func (c *Config) SetDefaults() {
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("%w: mqtt: %v", ErrInvalid, err)
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("%w: simulation: %w", ErrInvalid, err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: logging: %v", ErrInvalid, err)
	}
	return nil
}
