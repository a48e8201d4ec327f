// Package models - Service configuration.
// This file defines the configuration tree for every service component.
//
// Configuration Philosophy:
// - Hierarchical grouping (server, storage, security, logging, metrics, observability)
// - Defaults that start a working development server with no file at all
// - Validation that catches structural mistakes early
// - Secrets are optional at load time: a missing admin password or session
//   secret disables login with a 500 instead of refusing to start
package models

import (
	"errors"
	"fmt"
	"net/netip"
	"time"
)

// Storage type constants
const (
	StorageTypeJSON     = "json"
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
	StorageTypeSQLite   = "sqlite"
)

// Attempt store constants
const (
	AttemptStoreMemory = "memory"
	AttemptStoreRedis  = "redis"
)

// EnvironmentProduction enables the Secure attribute on the session cookie.
const EnvironmentProduction = "production"

// MinSessionSecretLength is the recommended minimum length of the signing key.
const MinSessionSecretLength = 32

// Config is the root configuration structure.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	CORS         CORSConfig    `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

type StorageConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Path     string         `yaml:"path" json:"path"`
	Database DatabaseConfig `yaml:"database" json:"database"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// SecurityConfig groups the admin credential, the session signing key and the
// rate limits applied to sensitive endpoints.
type SecurityConfig struct {
	AdminPassword     string             `yaml:"admin_password" json:"-"`
	AdminPasswordHash string             `yaml:"admin_password_hash" json:"-"`
	SessionSecret     string             `yaml:"session_secret" json:"-"`
	Environment       string             `yaml:"environment" json:"environment"`
	LoginLimit        AttemptLimitConfig `yaml:"login_limit" json:"login_limit"`
	ContactLimit      AttemptLimitConfig `yaml:"contact_limit" json:"contact_limit"`
	SweepInterval     time.Duration      `yaml:"sweep_interval" json:"sweep_interval"`
	AttemptStore      string             `yaml:"attempt_store" json:"attempt_store"`
	Redis             RedisConfig        `yaml:"redis" json:"redis"`
	RateLimit         RateLimitConfig    `yaml:"rate_limit" json:"rate_limit"`
	// TrustedProxies lists reverse proxies (CIDRs or addresses) whose
	// X-Forwarded-For and X-Real-IP headers are believed. Empty trusts none.
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`
}

// AttemptLimitConfig bounds a sensitive operation per client within a window.
type AttemptLimitConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	Window      time.Duration `yaml:"window" json:"window"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"-"`
	DB        int    `yaml:"db" json:"db"`
	PoolSize  int    `yaml:"pool_size" json:"pool_size"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// RateLimitConfig configures the token-bucket throttle applied to every API request.
type RateLimitConfig struct {
	Enabled                        bool          `yaml:"enabled" json:"enabled"`
	RequestsPerMinute              int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize                      int           `yaml:"burst_size" json:"burst_size"`
	AuthenticatedRequestsPerMinute int           `yaml:"authenticated_requests_per_minute" json:"authenticated_requests_per_minute"`
	AuthenticatedBurstSize         int           `yaml:"authenticated_burst_size" json:"authenticated_burst_size"`
	CleanupInterval                time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration suitable for local development.
//
// Defaults worth knowing:
// - Login: 5 attempts per 15 minutes per client
// - Contact form: 5 submissions per hour per client
// - Attempt records are swept every 5 minutes
// - JSON file storage under ./data
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORS: CORSConfig{
				Enabled:        false,
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type"},
				MaxAge:         86400,
			},
		},
		Storage: StorageConfig{
			Type: StorageTypeJSON,
			Path: "./data/content.json",
			Database: DatabaseConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Security: SecurityConfig{
			Environment: "development",
			LoginLimit: AttemptLimitConfig{
				MaxAttempts: 5,
				Window:      15 * time.Minute,
			},
			ContactLimit: AttemptLimitConfig{
				MaxAttempts: 5,
				Window:      time.Hour,
			},
			SweepInterval: 5 * time.Minute,
			AttemptStore:  AttemptStoreMemory,
			Redis: RedisConfig{
				PoolSize:  10,
				KeyPrefix: "caucus:attempts:",
			},
			RateLimit: RateLimitConfig{
				Enabled:                        true,
				RequestsPerMinute:              120,
				BurstSize:                      30,
				AuthenticatedRequestsPerMinute: 600,
				AuthenticatedBurstSize:         100,
				CleanupInterval:                5 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "caucus",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}
	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}
	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}
	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}
	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}
	return nil
}

func (stc *StorageConfig) Validate() error {
	switch stc.Type {
	case StorageTypeMemory:
		return nil
	case StorageTypeJSON:
		if stc.Path == "" {
			return errors.New("path is required for JSON storage")
		}
	case StorageTypePostgres, StorageTypeSQLite:
		if stc.Database.DSN == "" {
			return errors.New("database DSN is required for database storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}
	return nil
}

func (sec *SecurityConfig) Validate() error {
	if err := sec.LoginLimit.Validate(); err != nil {
		return fmt.Errorf("login limit: %w", err)
	}
	if err := sec.ContactLimit.Validate(); err != nil {
		return fmt.Errorf("contact limit: %w", err)
	}
	if sec.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	for _, entry := range sec.TrustedProxies {
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			return fmt.Errorf("invalid trusted proxy: %q", entry)
		}
	}

	switch sec.AttemptStore {
	case AttemptStoreMemory:
	case AttemptStoreRedis:
		if sec.Redis.Addr == "" {
			return errors.New("redis address is required when attempt store is redis")
		}
	default:
		return fmt.Errorf("invalid attempt store: %s", sec.AttemptStore)
	}

	if sec.RateLimit.Enabled {
		if sec.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("requests per minute must be positive")
		}
		if sec.RateLimit.BurstSize <= 0 {
			return errors.New("burst size must be positive")
		}
		if sec.RateLimit.AuthenticatedRequestsPerMinute <= 0 || sec.RateLimit.AuthenticatedBurstSize <= 0 {
			return errors.New("authenticated limits must be positive")
		}
		if sec.RateLimit.CleanupInterval <= 0 {
			return errors.New("cleanup interval must be positive")
		}
	}
	return nil
}

// SecureCookies reports whether session cookies must carry the Secure attribute.
func (sec *SecurityConfig) SecureCookies() bool {
	return sec.Environment == EnvironmentProduction
}

func (al *AttemptLimitConfig) Validate() error {
	if al.MaxAttempts <= 0 {
		return errors.New("max attempts must be positive")
	}
	if al.Window <= 0 {
		return errors.New("window must be positive")
	}
	return nil
}

func (lc *LoggingConfig) Validate() error {
	switch lc.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}
	switch lc.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}
	switch lc.Output {
	case "stdout", "stderr":
	case "file":
		if lc.FilePath == "" {
			return errors.New("file path is required when output is file")
		}
	default:
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}
	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}
	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}
	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}
	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if oc.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}
	if !oc.Tracing.Enabled {
		return nil
	}
	switch oc.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if oc.Tracing.OTLPEndpoint == "" {
			return errors.New("otlp endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("invalid trace exporter: %s", oc.Tracing.Exporter)
	}
	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("sample rate must be between 0 and 1")
	}
	return nil
}
