// Package config loads syncedhp settings from a config file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys understood in the config file and as SYNCEDHP_* environment variables.
const (
	KeyDatabase     = "db"
	KeyPollInterval = "poll_interval"
	KeyLogLevel     = "log_level"
	KeyLogFormat    = "log_format"
	KeyMetricsAddr  = "metrics_addr"
	KeySession      = "session"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "SYNCEDHP"

// Config holds resolved settings.
type Config struct {
	Database     string        `mapstructure:"db"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFormat    string        `mapstructure:"log_format"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
	Session      string        `mapstructure:"session"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database:     "syncedhp.db",
		PollInterval: 50 * time.Millisecond,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load resolves settings. cfgFile names an explicit config file; when empty,
// syncedhp.yaml is looked up in the working directory and $HOME/.syncedhp,
// and a missing file is not an error. Flags in fs whose names match a key
// override everything else when set.
func Load(cfgFile string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault(KeyDatabase, def.Database)
	v.SetDefault(KeyPollInterval, def.PollInterval)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyLogFormat, def.LogFormat)
	v.SetDefault(KeyMetricsAddr, def.MetricsAddr)
	v.SetDefault(KeySession, def.Session)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("syncedhp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".syncedhp"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for _, key := range []string{KeyDatabase, KeyPollInterval, KeyLogLevel, KeyLogFormat, KeyMetricsAddr, KeySession} {
			flag := fs.Lookup(strings.ReplaceAll(key, "_", "-"))
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", flag.Name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("config: %s must not be empty", KeyDatabase)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: %s must be positive, got %s", KeyPollInterval, c.PollInterval)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: %s must be text or json, got %q", KeyLogFormat, c.LogFormat)
	}
	return nil
}
