// Package config defines service configuration structures and loading hooks.
package config

import (
	"strings"
	"time"
)

// Remote drivers.
const (
	DriverNone     = ""
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is json or console.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// LocalStorePath is the SQLite file backing the local store.
	// Empty keeps local state in memory only.
	LocalStorePath string `koanf:"local_store_path"`

	// RemoteDriver selects the remote backend: redis, postgres, s3 or empty.
	RemoteDriver string `koanf:"remote_driver"`

	RedisAddr      string `koanf:"redis_addr"`
	RedisNamespace string `koanf:"redis_namespace"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`

	PostgresDSN   string `koanf:"postgres_dsn"`
	PostgresTable string `koanf:"postgres_table"`

	S3Endpoint  string `koanf:"s3_endpoint"`
	S3AccessKey string `koanf:"s3_access_key"`
	S3SecretKey string `koanf:"s3_secret_key"`
	S3Bucket    string `koanf:"s3_bucket"`
	S3UseSSL    bool   `koanf:"s3_use_ssl"`
	S3Region    string `koanf:"s3_region"`

	// RemoteTimeoutMS bounds every remote call, bootstrap fetches included.
	RemoteTimeoutMS int `koanf:"remote_timeout_ms"`

	// PushQueueSize bounds pending push jobs.
	PushQueueSize int `koanf:"push_queue_size"`
	// PushWorkerCount sets the number of push workers.
	PushWorkerCount int `koanf:"push_worker_count"`

	// DefaultAdminPassword applies until one is set locally or fetched remotely.
	DefaultAdminPassword string `koanf:"default_admin_password"`

	// LegacyMemberAverage reports 0 instead of null for unscored members.
	LegacyMemberAverage bool `koanf:"legacy_member_average"`

	// NoticeCapacity is how many recent sync notices are kept for clients.
	NoticeCapacity int `koanf:"notice_capacity"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "json",
		Addr:                 ":9080",
		LocalStorePath:       "avalia.db",
		RemoteTimeoutMS:      10_000,
		PushQueueSize:        1024,
		PushWorkerCount:      4,
		DefaultAdminPassword: "admin",
		NoticeCapacity:       50,
	}
}

// RemoteTimeout returns RemoteTimeoutMS as a duration.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutMS) * time.Millisecond
}

// RemoteConfigured reports whether the selected driver has the parameters it
// needs. Flat backends need two, the hierarchical one needs all four.
func (c *Config) RemoteConfigured() bool {
	switch c.driver() {
	case DriverRedis:
		return c.RedisAddr != "" && c.RedisNamespace != ""
	case DriverPostgres:
		return c.PostgresDSN != "" && c.PostgresTable != ""
	case DriverS3:
		return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.S3Bucket != ""
	default:
		return false
	}
}

func (c *Config) driver() string {
	return strings.ToLower(strings.TrimSpace(c.RemoteDriver))
}

// Driver returns the normalized remote driver name.
func (c *Config) Driver() string {
	return c.driver()
}
