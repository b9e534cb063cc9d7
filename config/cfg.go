package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v11"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"bookview/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TouchConfig struct {
		MaxDuration time.Duration `yaml:"max_duration" validate:"gt=0"`
		MaxMovement float64       `yaml:"max_movement" validate:"gte=0"`
	}

	ReaderConfig struct {
		LocationsBudget int                   `yaml:"locations_budget" env:"BOOKVIEW_LOCATIONS_BUDGET" validate:"min=100"`
		Debounce        time.Duration         `yaml:"debounce" validate:"gte=0"`
		NavigationMode  common.NavigationMode `yaml:"navigation_mode" env:"BOOKVIEW_NAVIGATION_MODE" validate:"oneof=auto pointer touch"`
		NarrowWidth     int                   `yaml:"narrow_width" validate:"gt=0"`
		EdgeZone        int                   `yaml:"edge_zone" validate:"gt=0"`
		Touch           TouchConfig           `yaml:"touch"`
	}

	LayoutConfig struct {
		Flow    common.FlowMode `yaml:"flow" validate:"oneof=paginated scrolled"`
		Columns int             `yaml:"columns" validate:"oneof=1 2"`
	}

	StoreConfig struct {
		Path string `yaml:"path" env:"BOOKVIEW_STORE_PATH" validate:"omitempty,filepath"`
	}

	Config struct {
		Version int           `yaml:"version" validate:"eq=1"`
		Reader  ReaderConfig  `yaml:"reader"`
		Layout  LayoutConfig  `yaml:"layout"`
		Store   StoreConfig   `yaml:"store"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := env.Parse(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
		}
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults, applies environment overrides and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
