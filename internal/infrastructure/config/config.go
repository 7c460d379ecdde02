package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for pairgen.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Transport TransportConfig `yaml:"transport"`
	WiFi      WiFiConfig      `yaml:"wifi"`
	Export    ExportConfig    `yaml:"export"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TransportConfig configures the libimobiledevice tool adapter.
type TransportConfig struct {
	// Tools holds the binary names (or absolute paths) of the helper tools.
	Tools ToolsConfig `yaml:"tools"`

	// LockdownDir is the host directory holding pairing records,
	// one <udid>.plist per paired device.
	// Default: /var/lib/lockdown
	LockdownDir string `yaml:"lockdown_dir"`

	// CommandTimeout bounds every tool invocation. A timeout is a terminal
	// failure of the operation that issued it.
	// Default: 30s
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// NameConcurrency limits parallel device-name lookups during enumeration.
	// Default: 4
	NameConcurrency int `yaml:"name_concurrency"`

	// SetValueCommand is the argument template used to write a lockdown value.
	// Placeholders: {udid} {domain} {key} {value}. The first element is the binary.
	SetValueCommand []string `yaml:"set_value_command"`

	// PreconditionMarkers are case-insensitive substrings of tool output that
	// identify a device-side precondition failure (e.g. no passcode set).
	PreconditionMarkers []string `yaml:"precondition_markers"`
}

// ToolsConfig names the libimobiledevice binaries.
type ToolsConfig struct {
	DeviceID   string `yaml:"idevice_id"`
	DeviceInfo string `yaml:"ideviceinfo"`
	DeviceName string `yaml:"idevicename"`
	DevicePair string `yaml:"idevicepair"`
}

// WiFiConfig contains the network-sync settings.
type WiFiConfig struct {
	// Domain and Key name the lockdown value toggled by "enable WiFi sync".
	Domain string `yaml:"domain"`
	Key    string `yaml:"key"`

	// HeartbeatPort is used when the operator enters an address without a port.
	// Default: 62078 (lockdown)
	HeartbeatPort int `yaml:"heartbeat_port"`

	// HeartbeatTimeout bounds a single heartbeat attempt.
	// Default: 5s
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
}

// ExportConfig contains pairing-file export settings.
type ExportConfig struct {
	// Directory is the destination used by non-interactive callers when no
	// directory is given explicitly. Empty means "ask" (or fail when no
	// prompt is available).
	Directory string `yaml:"directory"`

	// Extension is appended to the device identity to form the file name.
	// Default: plist
	Extension string `yaml:"extension"`
}

// DatabaseConfig contains SQLite operation-history settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings used by "pairgen serve".
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PAIRGEN_SECTION_KEY
// For example: PAIRGEN_LOCKDOWN_DIR, PAIRGEN_EXPORT_DIR
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOptional behaves like Load but falls back to defaults (plus
// environment overrides) when the file does not exist.
// Used for the default config path, which most installations never create.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("validating config: %w", err)
		}
		return cfg, nil
	}
	return Load(path)
}

// LoadDotEnv loads environment variables from path. Missing files are ignored.
// Variables already present in the environment are not overwritten.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Transport: TransportConfig{
			Tools: ToolsConfig{
				DeviceID:   "idevice_id",
				DeviceInfo: "ideviceinfo",
				DeviceName: "idevicename",
				DevicePair: "idevicepair",
			},
			LockdownDir:     "/var/lib/lockdown",
			CommandTimeout:  30 * time.Second,
			NameConcurrency: 4,
			SetValueCommand: []string{
				"pymobiledevice3", "lockdown", "set",
				"--udid", "{udid}", "--domain", "{domain}", "{value}", "{key}",
			},
			PreconditionMarkers: []string{
				"passcode",
				"PasswordProtected",
				"trust dialog",
			},
		},
		WiFi: WiFiConfig{
			Domain:           "com.apple.mobile.wireless_lockdown",
			Key:              "EnableWifiDebugging",
			HeartbeatPort:    62078,
			HeartbeatTimeout: 5 * time.Second,
		},
		Export: ExportConfig{
			Extension: "plist",
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/pairgen.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "pairgen",
			},
			QoS:         1,
			TopicPrefix: "pairgen",
		},
		InfluxDB: InfluxDBConfig{
			Org:    "pairgen",
			Bucket: "pairgen",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8765,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 120,
				Idle:  60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PAIRGEN_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Logging
	if v := os.Getenv("PAIRGEN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Transport
	if v := os.Getenv("PAIRGEN_LOCKDOWN_DIR"); v != "" {
		cfg.Transport.LockdownDir = v
	}
	if v := os.Getenv("PAIRGEN_COMMAND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Transport.CommandTimeout = d
		}
	}

	// Export
	if v := os.Getenv("PAIRGEN_EXPORT_DIR"); v != "" {
		cfg.Export.Directory = v
	}

	// Database
	if v := os.Getenv("PAIRGEN_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("PAIRGEN_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PAIRGEN_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PAIRGEN_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("PAIRGEN_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// API
	if v := os.Getenv("PAIRGEN_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Transport.Tools.DeviceID == "" || c.Transport.Tools.DevicePair == "" {
		errs = append(errs, "transport.tools.idevice_id and transport.tools.idevicepair are required")
	}
	if c.Transport.LockdownDir == "" {
		errs = append(errs, "transport.lockdown_dir is required")
	}
	if c.Transport.CommandTimeout <= 0 {
		errs = append(errs, "transport.command_timeout must be positive")
	}
	if c.Transport.NameConcurrency < 1 {
		errs = append(errs, "transport.name_concurrency must be at least 1")
	}
	if len(c.Transport.SetValueCommand) == 0 {
		errs = append(errs, "transport.set_value_command must name a binary")
	}

	if c.WiFi.Domain == "" || c.WiFi.Key == "" {
		errs = append(errs, "wifi.domain and wifi.key are required")
	}
	if c.WiFi.HeartbeatPort < 1 || c.WiFi.HeartbeatPort > 65535 {
		errs = append(errs, "wifi.heartbeat_port must be between 1 and 65535")
	}

	if c.Export.Extension == "" || strings.ContainsAny(c.Export.Extension, `/\.`) {
		errs = append(errs, "export.extension must be a bare extension such as \"plist\"")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the database is enabled")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the API read timeout as a Duration.
func (c APIConfig) ReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// WriteTimeout returns the API write timeout as a Duration.
func (c APIConfig) WriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// IdleTimeout returns the API idle timeout as a Duration.
func (c APIConfig) IdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
