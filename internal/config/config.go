// Package config loads the daemon's configuration from a YAML file plus
// environment variable overrides, using github.com/spf13/viper. Only
// cmd/smsgwd depends on this package; the core library packages configure
// themselves through plain Go constructor options instead.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config is the daemon's full configuration tree.
type Config struct {
	Serial      SerialConfig      `mapstructure:"serial"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
}

// SerialConfig describes the modem's serial port.
type SerialConfig struct {
	Port    string `mapstructure:"port"`
	BaudRate int   `mapstructure:"baud_rate"`
	SimPIN  string `mapstructure:"sim_pin"`
}

// ServerConfig describes the daemon's HTTP ingress.
type ServerConfig struct {
	BindAddress string `mapstructure:"bind_address"`
}

// LogConfig controls the zap logger's level.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// GeolocationConfig controls whether and how the geoloc collaborator is
// wired into LocationInfo.
type GeolocationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	Region  string `mapstructure:"region"`
}

// Load reads configPath (a YAML file) and overlays environment variable
// overrides (SERIAL_PORT, SERVER_BIND_ADDRESS, LOG_LEVEL, and so on — "."
// in a key's dotted path becomes "_"), then decodes into a Config. A
// missing file is not an error: defaults plus environment variables still
// apply, matching the teacher's "warn and continue" behavior for an
// optional config file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "/dev/ttyUSB0")
	v.SetDefault("serial.baud_rate", 115200)
	v.SetDefault("server.bind_address", "0.0.0.0:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("geolocation.enabled", false)
	v.SetDefault("geolocation.region", "us")
}
