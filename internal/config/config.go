package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port           int      `mapstructure:"port"`
	DatabasePath   string   `mapstructure:"database_path"`
	LogLevel       string   `mapstructure:"log_level"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	KubeconfigPath string   `mapstructure:"kubeconfig_path"`
	KubeContext    string   `mapstructure:"kube_context"`

	ScaleTimeoutSec       int `mapstructure:"scale_timeout_sec"`        // Reconcile window before an in-flight scale is dropped
	ScaleCheckIntervalSec int `mapstructure:"scale_check_interval_sec"` // Timeout sweep cadence
	LogTailDefault        int `mapstructure:"log_tail_default"`         // Default tail lines for log endpoints
	RequestTimeoutSec     int `mapstructure:"request_timeout_sec"`      // HTTP read/write; 0 = server default
	ShutdownTimeoutSec    int `mapstructure:"shutdown_timeout_sec"`     // Graceful shutdown wait

	OTLPEndpoint      string  `mapstructure:"otlp_endpoint"`       // Empty = tracing disabled
	TraceSamplingRate float64 `mapstructure:"trace_sampling_rate"` // 0..1
}

// Default returns a usable configuration when no config file or environment
// is available.
func Default() *Config {
	return &Config{
		Port:                  8080,
		DatabasePath:          "./kubedeck.db",
		LogLevel:              "info",
		AllowedOrigins:        []string{"*"},
		ScaleTimeoutSec:       15,
		ScaleCheckIntervalSec: 1,
		LogTailDefault:        100,
		RequestTimeoutSec:     30,
		ShutdownTimeoutSec:    15,
		TraceSamplingRate:     1.0,
	}
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/kubedeck/")
	viper.AddConfigPath("$HOME/.kubedeck")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("port", 8080)
	viper.SetDefault("database_path", "./kubedeck.db")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("allowed_origins", []string{"*"})
	viper.SetDefault("kubeconfig_path", "")
	viper.SetDefault("kube_context", "")
	viper.SetDefault("scale_timeout_sec", 15)
	viper.SetDefault("scale_check_interval_sec", 1)
	viper.SetDefault("log_tail_default", 100)
	viper.SetDefault("request_timeout_sec", 30)
	viper.SetDefault("shutdown_timeout_sec", 15)
	viper.SetDefault("otlp_endpoint", "")
	viper.SetDefault("trace_sampling_rate", 1.0)

	// Environment variables
	viper.SetEnvPrefix("KUBEDECK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
