package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix is the prefix of environment variables read by cqpctl,
// e.g. CQP_REGISTRY or CQP_POLL_INTERVAL.
const envPrefix = "CQP"

// Config holds the cqpctl settings.
type Config struct {
	Bin          string        `mapstructure:"bin"`
	Args         string        `mapstructure:"args"`
	Registry     string        `mapstructure:"registry"`
	Multiplier   float64       `mapstructure:"multiplier"`
	Deadline     time.Duration `mapstructure:"deadline"`
	PollInterval time.Duration `mapstructure:"poll-interval"`
	Verbose      bool          `mapstructure:"verbose"`
	Metrics      bool          `mapstructure:"metrics"`
}

// LoadConfig merges flags, CQP_* environment variables and the optional
// config file, in that order of precedence.
func LoadConfig(flags *pflag.FlagSet, file string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Multiplier <= 0 {
		return nil, fmt.Errorf("multiplier must be positive, got %v", cfg.Multiplier)
	}

	return cfg, nil
}
