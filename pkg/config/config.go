/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package config handles agent configuration loading and validation.
// Configuration is merged from three layers in order of precedence:
// built-in defaults, a TOML file, and TASKP_AGENT_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment variables used to configure the sync agent
const EnvPrefix = "TASKP_AGENT_"

// Config holds all configuration for the sync agent
type Config struct {
	Agent     AgentConfig     `koanf:"agent"`
	Backend   BackendConfig   `koanf:"backend"`
	Realtime  RealtimeConfig  `koanf:"realtime"`
	Session   SessionConfig   `koanf:"session"`
	Storage   StorageConfig   `koanf:"storage"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// AgentConfig holds settings for the local HTTP API server
type AgentConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// BackendConfig holds settings for the upstream task service
type BackendConfig struct {
	// BaseURL is the service root including any path prefix,
	// e.g. http://localhost:8000/api
	BaseURL            string        `koanf:"base_url"`
	RequestTimeout     time.Duration `koanf:"request_timeout"`
	InsecureSkipVerify bool          `koanf:"insecure_skip_verify"`
}

// RealtimeConfig holds settings for websocket channel connections
type RealtimeConfig struct {
	// Channels are connected automatically at startup
	Channels          []string      `koanf:"channels"`
	ReconnectInitial  time.Duration `koanf:"reconnect_initial"`
	ReconnectMax      time.Duration `koanf:"reconnect_max"`
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
	HandshakeTimeout  time.Duration `koanf:"handshake_timeout"`
}

// SessionConfig holds settings for session credential handling
type SessionConfig struct {
	// LogoutWindow suppresses credential renewal for this long after a logout begins
	LogoutWindow time.Duration `koanf:"logout_window"`
}

// StorageConfig holds settings for the durable agent store
type StorageConfig struct {
	// Type selects the storage backend: sqlite or memory
	Type   string       `koanf:"type"`
	SQLite SQLiteConfig `koanf:"sqlite"`
}

// SQLiteConfig holds SQLite-specific settings
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// MetricsConfig holds Prometheus metrics server configuration
type MetricsConfig struct {
	// Enabled indicates whether the metrics server should be started
	Enabled bool `koanf:"enabled"`

	// Port is the port for the metrics HTTP server
	Port int `koanf:"port"`
}

// TelemetryConfig holds settings for Loki log shipping
type TelemetryConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	App     string        `koanf:"app"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaultConfig returns the built-in defaults applied before the file and
// environment layers are merged
func defaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Host:            "127.0.0.1",
			Port:            8460,
			ShutdownTimeout: 10 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL:            "http://localhost:8000/api",
			RequestTimeout:     15 * time.Second,
			InsecureSkipVerify: false,
		},
		Realtime: RealtimeConfig{
			Channels:          []string{"tasks"},
			ReconnectInitial:  1 * time.Second,
			ReconnectMax:      10 * time.Second,
			HeartbeatInterval: 30 * time.Second,
			HandshakeTimeout:  10 * time.Second,
		},
		Session: SessionConfig{
			LogoutWindow: 5 * time.Second,
		},
		Storage: StorageConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "data/sync-agent.db",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    8461,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
			URL:     "http://localhost:3100/loki/api/v1/push",
			App:     "task-sync-agent",
			Timeout: 1 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from defaults, an optional TOML file, and
// environment variables. An empty path skips the file layer.
func LoadConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Environment variables override file values,
	// e.g. TASKP_AGENT_METRICS_PORT=9100 becomes metrics.port
	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			WeaklyTypedInput: true,
			Result:           cfg,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// envKeyMapper translates an environment variable name into a koanf key.
// Compound keys that would be ambiguous under the generic rule are mapped
// explicitly; the fallback turns single underscores into dots and double
// underscores into literal underscores.
func envKeyMapper(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))

	switch s {
	case "agent_shutdown_timeout":
		return "agent.shutdown_timeout"
	case "backend_base_url":
		return "backend.base_url"
	case "backend_request_timeout":
		return "backend.request_timeout"
	case "backend_insecure_skip_verify":
		return "backend.insecure_skip_verify"
	case "realtime_reconnect_initial":
		return "realtime.reconnect_initial"
	case "realtime_reconnect_max":
		return "realtime.reconnect_max"
	case "realtime_heartbeat_interval":
		return "realtime.heartbeat_interval"
	case "realtime_handshake_timeout":
		return "realtime.handshake_timeout"
	case "session_logout_window":
		return "session.logout_window"
	case "storage_sqlite_path":
		return "storage.sqlite.path"
	default:
		s = strings.ReplaceAll(s, "__", "\x00")
		s = strings.ReplaceAll(s, "_", ".")
		return strings.ReplaceAll(s, "\x00", "_")
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if err := c.validateAgent(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateRealtime(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	if err := c.validateTelemetry(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAgent() error {
	if c.Agent.Port < 1 || c.Agent.Port > 65535 {
		return fmt.Errorf("agent port must be between 1 and 65535, got: %d", c.Agent.Port)
	}
	if c.Agent.ShutdownTimeout <= 0 {
		return fmt.Errorf("agent shutdown_timeout must be positive, got: %s", c.Agent.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend base_url scheme must be http or https, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("backend base_url is missing a host")
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("backend request_timeout must be positive, got: %s", c.Backend.RequestTimeout)
	}
	return nil
}

func (c *Config) validateRealtime() error {
	if c.Realtime.ReconnectInitial <= 0 {
		return fmt.Errorf("realtime reconnect_initial must be positive, got: %s", c.Realtime.ReconnectInitial)
	}
	if c.Realtime.ReconnectMax < c.Realtime.ReconnectInitial {
		return fmt.Errorf("realtime reconnect_max must be >= reconnect_initial, got: %s < %s",
			c.Realtime.ReconnectMax, c.Realtime.ReconnectInitial)
	}
	if c.Realtime.HeartbeatInterval <= 0 {
		return fmt.Errorf("realtime heartbeat_interval must be positive, got: %s", c.Realtime.HeartbeatInterval)
	}
	if c.Realtime.HandshakeTimeout <= 0 {
		return fmt.Errorf("realtime handshake_timeout must be positive, got: %s", c.Realtime.HandshakeTimeout)
	}
	for _, channel := range c.Realtime.Channels {
		if channel == "" {
			return fmt.Errorf("realtime channels must not contain empty names")
		}
		if strings.ContainsAny(channel, "/ ") {
			return fmt.Errorf("realtime channel name must not contain slashes or spaces, got: %q", channel)
		}
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.LogoutWindow <= 0 {
		return fmt.Errorf("session logout_window must be positive, got: %s", c.Session.LogoutWindow)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage sqlite path is required when type is sqlite")
		}
	case "memory":
		// No further settings
	default:
		return fmt.Errorf("storage type must be sqlite or memory, got: %s", c.Storage.Type)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if !c.Metrics.Enabled {
		return nil
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics port must be between 1 and 65535, got: %d", c.Metrics.Port)
	}
	if c.Metrics.Port == c.Agent.Port {
		return fmt.Errorf("metrics port must differ from agent port, got: %d", c.Metrics.Port)
	}
	return nil
}

func (c *Config) validateTelemetry() error {
	if !c.Telemetry.Enabled {
		return nil
	}
	if c.Telemetry.URL == "" {
		return fmt.Errorf("telemetry url is required when telemetry is enabled")
	}
	u, err := url.Parse(c.Telemetry.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("telemetry url is not a valid URL: %s", c.Telemetry.URL)
	}
	if c.Telemetry.Timeout <= 0 {
		return fmt.Errorf("telemetry timeout must be positive, got: %s", c.Telemetry.Timeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging level must be one of debug, info, warn, error, got: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging format must be json or console, got: %s", c.Logging.Format)
	}
	return nil
}

// IsPersistentMode returns true when credentials and snapshots survive restarts
func (c *Config) IsPersistentMode() bool {
	return c.Storage.Type == "sqlite"
}

// IsMemoryOnlyMode returns true when the agent keeps no durable state
func (c *Config) IsMemoryOnlyMode() bool {
	return c.Storage.Type == "memory"
}

// WebSocketBaseURL derives the websocket root from the backend base URL,
// preserving any path prefix. http maps to ws and https to wss.
func (b *BackendConfig) WebSocketBaseURL() (string, error) {
	u, err := url.Parse(b.BaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse backend base_url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported backend scheme: %s", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}
