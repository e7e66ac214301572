// Package config loads diffcfg settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. DIFFCFG_DATABASE.
const EnvPrefix = "DIFFCFG"

// Setting keys, shared with the flag names.
const (
	KeyDatabase  = "database"
	KeyCheckPath = "check-path"
	KeyTimeout   = "timeout"
	KeyMaxOutput = "max-output"
	KeyLogLevel  = "log-level"
	KeyLogFormat = "log-format"
)

// Config holds the settings shared by all commands.
type Config struct {
	Database  string        // SQLite database path
	CheckPath string        // external check executable
	Timeout   time.Duration // per check run
	MaxOutput int64         // bytes of check output kept
	LogLevel  string
	LogFormat string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabase, "/var/lib/diffcfg/diffcfg.db")
	v.SetDefault(KeyCheckPath, "check_diffcfg")
	v.SetDefault(KeyTimeout, "60s")
	v.SetDefault(KeyMaxOutput, "64KiB")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// New returns a viper instance reading DIFFCFG_* variables, bound to flags.
func New(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}
	return v, nil
}

// ReadFile reads path, or the default config file when path is empty.
// A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "diffcfg"))
	}
	v.AddConfigPath("/etc/diffcfg")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load builds a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	timeout, err := time.ParseDuration(v.GetString(KeyTimeout))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyTimeout, err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid %s: must be positive", KeyTimeout)
	}

	maxOutput, err := units.RAMInBytes(v.GetString(KeyMaxOutput))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyMaxOutput, err)
	}

	cfg := &Config{
		Database:  v.GetString(KeyDatabase),
		CheckPath: v.GetString(KeyCheckPath),
		Timeout:   timeout,
		MaxOutput: maxOutput,
		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyDatabase)
	}
	return cfg, nil
}
