// Package config loads monitor configuration from a yaml file and the
// environment. Environment variables win over the file; the credential and
// channel id are the only required values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the default config file name, looked up in the current
// directory.
const ConfigFileName = ".chanwatch.yaml"

// Config holds everything the monitor needs to run.
type Config struct {
	Token          string        `mapstructure:"token"`
	ChannelID      string        `mapstructure:"channel_id"`
	SoundPath      string        `mapstructure:"sound_path"`
	APIBase        string        `mapstructure:"api_base"`
	GatewayURL     string        `mapstructure:"gateway_url"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// Load reads configuration from the optional file at path (empty means
// look for ConfigFileName in the current directory, missing is fine) and
// from the environment. Returns an error only for an unreadable or invalid
// file; completeness is checked separately by Validate.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("sound_path", defaultSoundPath())
	v.SetDefault("poll_interval", "1500ms")
	v.SetDefault("reconnect_delay", "5s")

	// The env names predate the config file and are kept for
	// compatibility with existing deployments.
	v.BindEnv("token", "DISCORD_TOKEN")
	v.BindEnv("channel_id", "CHANNEL_ID")
	v.BindEnv("sound_path", "SOUND_PATH")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(ConfigFileName)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the required values are present. This is the one
// fatal startup condition; everything after startup retries forever.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is not set")
	}
	if c.ChannelID == "" {
		return fmt.Errorf("CHANNEL_ID is not set")
	}
	return nil
}

// defaultSoundPath looks for boom.mp3 next to the executable, falling back
// to the current directory.
func defaultSoundPath() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "boom.mp3")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "boom.mp3"
}
