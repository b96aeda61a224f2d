package config

// Package config provides a reusable loader for broker configuration
// files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/juagargi/esdx-scion/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a broker process. It mirrors
// the structure of the YAML files under cmd/broker/config.
type Config struct {
	Server struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"server" json:"server"`

	Broker struct {
		CertificateFile string `mapstructure:"certificate_file" json:"certificate_file"`
		KeyFile         string `mapstructure:"key_file" json:"key_file"`
	} `mapstructure:"broker" json:"broker"`

	Fixtures struct {
		ManifestFile string `mapstructure:"manifest_file" json:"manifest_file"`
	} `mapstructure:"fixtures" json:"fixtures"`

	Topology struct {
		File         string `mapstructure:"file" json:"file"`
		InternalAddr string `mapstructure:"internal_addr" json:"internal_addr"`
		MinPort      int    `mapstructure:"min_port" json:"min_port"`
		MaxPort      int    `mapstructure:"max_port" json:"max_port"`
		LockAttempts int    `mapstructure:"lock_attempts" json:"lock_attempts"`
		LockSleepMS  int    `mapstructure:"lock_sleep_ms" json:"lock_sleep_ms"`
	} `mapstructure:"topology" json:"topology"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded.
func Load(env string) (*Config, error) {
	viper.SetDefault("topology.min_port", utils.EnvOrDefaultInt("ESDX_TOPOLOGY_MIN_PORT", 50000))
	viper.SetDefault("topology.max_port", utils.EnvOrDefaultInt("ESDX_TOPOLOGY_MAX_PORT", 51000))
	viper.SetDefault("topology.lock_attempts", utils.EnvOrDefaultInt("ESDX_TOPOLOGY_LOCK_ATTEMPTS", 10))
	viper.SetDefault("topology.lock_sleep_ms", utils.EnvOrDefaultInt("ESDX_TOPOLOGY_LOCK_SLEEP_MS", 100))
	viper.SetDefault("server.listen_addr", utils.EnvOrDefault("ESDX_SERVER_LISTEN_ADDR", "127.0.0.1:9090"))
	viper.SetDefault("logging.level", utils.EnvOrDefault("ESDX_LOGGING_LEVEL", "info"))

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/broker/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("ESDX")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the ESDX_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("ESDX_ENV", ""))
}
