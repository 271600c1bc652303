package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"means-server/src/helpers"
	"means-server/src/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "MEANS"

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file, then applies
// .env / MEANS_* environment overrides and defaults
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, configError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, configError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Environment overrides (optional .env first)
	_ = godotenv.Load()
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	config.ApplyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, configError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default returns a validated config with every field at its default value
func Default() *Config {
	c := &Config{MConfig: &models.MConfig{}}
	c.ApplyDefaults()
	return c
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides fields from MEANS_* environment variables
// (e.g. MEANS_PORT, MEANS_STORAGE_DB_TYPE)
func (c *Config) ApplyEnv() error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	strFields := map[string]*string{
		"name":                         &c.Name,
		"host":                         &c.Host,
		"overflow_policy":              &c.OverflowPolicy,
		"log_level":                    &c.LogLevel,
		"log_format":                   &c.LogFormat,
		"grpc_host":                    &c.GrpcHost,
		"admin.host":                   &c.Admin.Host,
		"storage.db_type":              &c.Storage.DBType,
		"storage.db_path":              &c.Storage.DBPath,
		"storage.db_connection_string": &c.Storage.DBConnectionString,
		"storage.redis_addr":           &c.Storage.RedisAddr,
		"storage.redis_password":       &c.Storage.RedisPassword,
	}
	intFields := map[string]*int{
		"port":                             &c.Port,
		"max_connections":                  &c.MaxConnections,
		"grpc_port":                        &c.GrpcPort,
		"admin.port":                       &c.Admin.Port,
		"admin.event_buffer_size":          &c.Admin.EventBufferSize,
		"session.idle_timeout_seconds":     &c.Session.IdleTimeoutSeconds,
		"session.write_timeout_seconds":    &c.Session.WriteTimeoutSeconds,
		"session.read_buffer_size":         &c.Session.ReadBufferSize,
		"storage.redis_db":                 &c.Storage.RedisDB,
		"storage.retention_days":           &c.Storage.RetentionDays,
		"storage.cleanup_interval_minutes": &c.Storage.CleanupIntervalMin,
	}

	for key, dst := range strFields {
		if err := v.BindEnv(key); err != nil {
			return configError(fmt.Sprintf("could not bind env for %s", key), err)
		}
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	for key, dst := range intFields {
		if err := v.BindEnv(key); err != nil {
			return configError(fmt.Sprintf("could not bind env for %s", key), err)
		}
		if !v.IsSet(key) {
			continue
		}
		val, err := parseInt(v.GetString(key))
		if err != nil {
			return configError(fmt.Sprintf("invalid value for %s_%s", envPrefix, envName(key)), err)
		}
		*dst = val
	}

	return nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero-valued fields
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "means-server"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 3030
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = 5
	}
	if c.OverflowPolicy == "" {
		c.OverflowPolicy = "defer"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	if c.GrpcHost == "" {
		c.GrpcHost = "127.0.0.1"
	}
	if c.Session.WriteTimeoutSeconds == 0 {
		c.Session.WriteTimeoutSeconds = 10
	}
	if c.Session.ReadBufferSize == 0 {
		c.Session.ReadBufferSize = 4096
	}
	if c.Admin.Host == "" {
		c.Admin.Host = "127.0.0.1"
	}
	if c.Admin.EventBufferSize == 0 {
		c.Admin.EventBufferSize = 128
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "memory"
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = 7
	}
	if c.Storage.CleanupIntervalMin == 0 {
		c.Storage.CleanupIntervalMin = 60
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Listener
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("max connections must be greater than 0")
	}
	if c.OverflowPolicy != "defer" && c.OverflowPolicy != "reject" {
		return fmt.Errorf("overflow policy must be 'defer' or 'reject', got '%s'", c.OverflowPolicy)
	}

	// Side servers (0 disables)
	if err := validateOptionalPort("grpc", c.GrpcPort); err != nil {
		return err
	}
	if err := validateOptionalPort("admin", c.Admin.Port); err != nil {
		return err
	}

	// Session
	if c.Session.IdleTimeoutSeconds < 0 {
		return fmt.Errorf("idle timeout cannot be negative")
	}
	if c.Session.WriteTimeoutSeconds < 0 {
		return fmt.Errorf("write timeout cannot be negative")
	}
	if c.Session.ReadBufferSize < 9 {
		return fmt.Errorf("read buffer size must hold at least one frame (9 bytes)")
	}

	// Storage
	switch c.Storage.DBType {
	case "memory":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty for redis")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}
	if c.Storage.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// ListenAddr is the host:port of the TCP listener
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// -----------------------------------------------------------------------------

func validateOptionalPort(name string, port int) error {
	if port == 0 {
		return nil
	}
	if port <= 1024 || port > 65535 {
		return fmt.Errorf("invalid %s port number: %d (must be 0 or between 1025 and 65535)", name, port)
	}
	return nil
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func configError(msg string, cause error) error {
	return &helpers.ConfigurationError{MeansError: helpers.MeansError{Message: msg, Cause: cause}}
}
