package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// TomlLog configures the logrus output
type TomlLog struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Proxy        string        `toml:"proxy"`
	UserAgent    string        `toml:"user_agent"`
	LoadTimeout  time.Duration `toml:"load_timeout"`
	PollDelay    time.Duration `toml:"poll_delay"`
	PollInterval time.Duration `toml:"poll_interval"`
	IDs          string        `toml:"ids"` // counter or uuid
	Listen       string        `toml:"listen"`
	Feeds        []string      `toml:"feeds"`
	Log          TomlLog       `toml:"log"`
}

// Default returns the configuration used when no file is given
func Default() *TomlConfig {
	return &TomlConfig{
		Proxy:        "https://allorigins.hexlet.app",
		UserAgent:    "rssagg/1.0",
		LoadTimeout:  10 * time.Second,
		PollDelay:    5 * time.Second,
		PollInterval: 5 * time.Second,
		IDs:          "counter",
		Listen:       ":3000",
		Log: TomlLog{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults. Keys missing from the
// file keep their default value.
func LoadConfig(path string) (*TomlConfig, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return config, nil
}

func (c *TomlConfig) Validate() error {
	if c.LoadTimeout <= 0 {
		return fmt.Errorf("load_timeout must be positive, got %s", c.LoadTimeout)
	}
	if c.PollDelay < 0 {
		return fmt.Errorf("poll_delay must not be negative, got %s", c.PollDelay)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	switch c.IDs {
	case "counter", "uuid":
	default:
		return fmt.Errorf("ids must be counter or uuid, got %q", c.IDs)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
