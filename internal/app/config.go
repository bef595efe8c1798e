package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the queryhub backend.
type Config struct {
	Server      ServerConfig             `mapstructure:"server"`
	Database    DatabaseConfig           `mapstructure:"database"`
	Vault       VaultConfig              `mapstructure:"vault"`
	Query       QueryConfig              `mapstructure:"query"`
	Registry    RegistryConfig           `mapstructure:"registry"`
	Connections []StaticConnectionConfig `mapstructure:"connections"`
	Monitoring  MonitoringConfig         `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// VaultConfig controls how connection payloads are protected and where static connections come from.
type VaultConfig struct {
	Passphrase      string               `mapstructure:"passphrase"`
	PayloadEncoding string               `mapstructure:"payload_encoding"`
	SecretsManager  SecretsManagerConfig `mapstructure:"secrets_manager"`
}

// SecretsManagerConfig points at an AWS Secrets Manager secret holding static connections.
type SecretsManagerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Region   string        `mapstructure:"region"`
	SecretID string        `mapstructure:"secret_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// QueryConfig holds limits reported alongside every connection.
type QueryConfig struct {
	ResultMaxRows int64 `mapstructure:"result_max_rows"`
}

// RegistryConfig selects whether connections can be edited through the API.
type RegistryConfig struct {
	Mode string `mapstructure:"mode"`
}

// StaticConnectionConfig declares an immutable connection in the config file.
type StaticConnectionConfig struct {
	ID                               string         `mapstructure:"id"`
	Name                             string         `mapstructure:"name"`
	Description                      string         `mapstructure:"description"`
	Driver                           string         `mapstructure:"driver"`
	MultiStatementTransactionEnabled bool           `mapstructure:"multi_statement_transaction_enabled"`
	IdleTimeoutSeconds               int            `mapstructure:"idle_timeout_seconds"`
	Data                             map[string]any `mapstructure:"data"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("QUERYHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/queryhub.sqlite")

	v.SetDefault("vault.payload_encoding", "plain")
	v.SetDefault("vault.secrets_manager.enabled", false)
	v.SetDefault("vault.secrets_manager.timeout", "10s")

	v.SetDefault("query.result_max_rows", 10000)

	v.SetDefault("registry.mode", "read_only")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
