// Package config loads service configuration from environment variables
// and, optionally, a config file, via viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every configuration value the service reads at startup.
type Config struct {
	Addr      string `mapstructure:"addr"`
	DSN       string `mapstructure:"dsn"`
	MasterKey string `mapstructure:"master_key"`
	JWTSecret string `mapstructure:"jwt_secret"`

	Anomaly AnomalyConfig `mapstructure:"anomaly"`
}

// AnomalyConfig mirrors internal/anomaly.Thresholds in primitive,
// viper-friendly types so it can be overridden per deployment.
type AnomalyConfig struct {
	WindowSeconds               int     `mapstructure:"window_seconds"`
	MaxOpsPerWindow             int     `mapstructure:"max_ops_per_window"`
	FailureRatioThreshold       float64 `mapstructure:"failure_ratio_threshold"`
	RevokedKeyAttemptsThreshold int     `mapstructure:"revoked_key_attempts_threshold"`
	WorkingHoursStart           int     `mapstructure:"working_hours_start"`
	WorkingHoursEnd             int     `mapstructure:"working_hours_end"`
}

// Load reads configuration from environment variables prefixed
// PRIVACYCORE_ (e.g. PRIVACYCORE_MASTER_KEY), and from a config file at
// path if one is given. Env vars always win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRIVACYCORE")
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("dsn", "privacycore.db")
	v.SetDefault("master_key", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("anomaly.window_seconds", 60)
	v.SetDefault("anomaly.max_ops_per_window", 20)
	v.SetDefault("anomaly.failure_ratio_threshold", 0.30)
	v.SetDefault("anomaly.revoked_key_attempts_threshold", 2)
	v.SetDefault("anomaly.working_hours_start", 7)
	v.SetDefault("anomaly.working_hours_end", 22)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// AnomalyThresholds converts the config's viper-friendly fields into
// internal/anomaly.Thresholds' duration-typed form.
func (c *Config) AnomalyThresholds() (window time.Duration, maxOps int, failureRatio float64, revokedAttempts, hoursStart, hoursEnd int) {
	a := c.Anomaly
	return time.Duration(a.WindowSeconds) * time.Second, a.MaxOpsPerWindow, a.FailureRatioThreshold, a.RevokedKeyAttemptsThreshold, a.WorkingHoursStart, a.WorkingHoursEnd
}
