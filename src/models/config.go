package models

// MConfig Structure
type MConfig struct {
	Name           string         `yaml:"name"`
	Host           string         `yaml:"host"`
	Port           int            `yaml:"port"`
	MaxConnections int            `yaml:"max_connections"`
	OverflowPolicy string         `yaml:"overflow_policy"` // "defer" or "reject"
	LogLevel       string         `yaml:"log_level"`
	LogFormat      string         `yaml:"log_format"` // "console" or "json"
	GrpcHost       string         `yaml:"grpc_host"`
	GrpcPort       int            `yaml:"grpc_port"`
	Session        MSessionConfig `yaml:"session"`
	Admin          MAdminConfig   `yaml:"admin"`
	Storage        MStorageConfig `yaml:"storage"`
}

type MSessionConfig struct {
	IdleTimeoutSeconds  int `yaml:"idle_timeout_seconds" json:"idle_timeout_seconds"`   // 0 disables
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds" json:"write_timeout_seconds"` // 0 means 10s; writes always have a deadline
	ReadBufferSize      int `yaml:"read_buffer_size" json:"read_buffer_size"`
}

type MAdminConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"` // 0 disables the admin API
	EventBufferSize int    `yaml:"event_buffer_size"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite, postgres, redis, memory
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RedisAddr          string `yaml:"redis_addr"`
	RedisPassword      string `yaml:"redis_password"`
	RedisDB            int    `yaml:"redis_db"`
	RetentionDays      int    `yaml:"retention_days"`
	CleanupIntervalMin int    `yaml:"cleanup_interval_minutes"`
}
