package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	KindHCI      = "hci"
	KindH4Uart   = "h4uart"
	KindH4Socket = "h4socket"
)

type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
}

type TransportConfig struct {
	Kind    string        `yaml:"kind"`
	Device  int           `yaml:"device"` // -1 selects the first enumerated controller
	Path    string        `yaml:"path"`
	Baud    uint          `yaml:"baud"`
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind:    KindHCI,
			Device:  -1,
			Baud:    1000000,
			Timeout: 2 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// The result is not validated, callers apply overrides and then Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "can't parse %s", path)
	}

	return cfg, nil
}

// Validate checks the transport settings are usable.
func (c *Config) Validate() error {
	t := c.Transport
	if t.Device < -1 || t.Device > 0xfffe {
		return errors.Errorf("device %d out of range", t.Device)
	}

	switch t.Kind {
	case KindHCI:
	case KindH4Uart:
		if t.Path == "" {
			return errors.New("h4uart needs a path")
		}
		if t.Baud == 0 {
			return errors.New("h4uart needs a baud rate")
		}
	case KindH4Socket:
		if t.Addr == "" {
			return errors.New("h4socket needs an addr")
		}
	default:
		return errors.Errorf("unknown transport kind %q", t.Kind)
	}
	return nil
}
