package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Literal connection defaults, used when neither the config file nor the environment set a value
const (
	DefaultHost      = "your.influxdb.hostname"
	DefaultPort      = 8086
	DefaultUsername  = "influxdb_username"
	DefaultPassword  = "influxdb_access_password"
	DefaultDatabase  = "GarminStats"
	DefaultOutputDir = "/tmp"
	DefaultHistoryDB = "exports.db"
	DefaultMQTTTopic = "garminexport"
)

// Environment variables read by ApplyEnv
const (
	EnvHost           = "INFLUXDB_HOST"
	EnvPort           = "INFLUXDB_PORT"
	EnvUsername       = "INFLUXDB_USERNAME"
	EnvPassword       = "INFLUXDB_PASSWORD"
	EnvDatabase       = "INFLUXDB_DATABASE"
	EnvEndpointIsHTTP = "INFLUXDB_ENDPOINT_IS_HTTP"
)

// ErrInvalidConfig is returned when a setting cannot be used to connect
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration
type Config struct {
	InfluxDB     InfluxDBConfig `yaml:"influxdb"`
	MQTT         MQTTConfig     `yaml:"mqtt,omitempty"`
	OutputDir    string         `yaml:"output_dir,omitempty"`
	HistoryDB    string         `yaml:"history_db,omitempty"`
	QueryTimeout time.Duration  `yaml:"query_timeout,omitempty"` // 0 means no timeout
}

// InfluxDBConfig holds the connection parameters for the source database
type InfluxDBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	UseTLS   bool   `yaml:"use_tls"` // https with certificate verification
}

// MQTTConfig holds the optional broker used to announce finished exports
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // e.g., "localhost:1883"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix"` // default "garminexport"
}

// Default returns a config populated with the literal defaults
func Default() Config {
	return Config{
		InfluxDB: InfluxDBConfig{
			Host:     DefaultHost,
			Port:     DefaultPort,
			Username: DefaultUsername,
			Password: DefaultPassword,
			Database: DefaultDatabase,
			UseTLS:   true,
		},
		OutputDir: DefaultOutputDir,
		HistoryDB: DefaultHistoryDB,
	}
}

// Load reads the config file over the defaults
func Load(configPath string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults only if the file doesn't exist
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays the INFLUXDB_* environment variables, looked up through lookup
func (c Config) ApplyEnv(lookup func(string) (string, bool)) (Config, error) {
	if v, ok := lookup(EnvHost); ok {
		c.InfluxDB.Host = v
	}
	if v, ok := lookup(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q is not a port number", ErrInvalidConfig, EnvPort, v)
		}
		c.InfluxDB.Port = port
	}
	if v, ok := lookup(EnvUsername); ok {
		c.InfluxDB.Username = v
	}
	if v, ok := lookup(EnvPassword); ok {
		c.InfluxDB.Password = v
	}
	if v, ok := lookup(EnvDatabase); ok {
		c.InfluxDB.Database = v
	}
	if v, ok := lookup(EnvEndpointIsHTTP); ok {
		c.InfluxDB.UseTLS = ParseEndpointIsHTTP(v)
	}
	return c, nil
}

// falseyTokens are the values of INFLUXDB_ENDPOINT_IS_HTTP that select plain http
var falseyTokens = map[string]struct{}{
	"False": {}, "false": {}, "FALSE": {},
	"f": {}, "F": {},
	"no": {}, "No": {}, "NO": {},
	"0": {},
}

// ParseEndpointIsHTTP reports whether TLS should be used for the given
// INFLUXDB_ENDPOINT_IS_HTTP value. Only the falsey tokens turn TLS off.
func ParseEndpointIsHTTP(v string) bool {
	_, falsey := falseyTokens[v]
	return !falsey
}

// Validate checks the settings needed to open a connection
func (c Config) Validate() error {
	if c.InfluxDB.Host == "" {
		return fmt.Errorf("%w: influxdb host is empty", ErrInvalidConfig)
	}
	if c.InfluxDB.Port <= 0 || c.InfluxDB.Port > 65535 {
		return fmt.Errorf("%w: influxdb port %d out of range", ErrInvalidConfig, c.InfluxDB.Port)
	}
	if c.InfluxDB.Database == "" {
		return fmt.Errorf("%w: influxdb database is empty", ErrInvalidConfig)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("%w: query timeout must not be negative", ErrInvalidConfig)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: MQTT broker address is required when enabled", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the base URL of the InfluxDB HTTP endpoint
func (c InfluxDBConfig) Addr() string {
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// GetTopicPrefix returns the MQTT topic prefix with a default of "garminexport"
func (c MQTTConfig) GetTopicPrefix() string {
	if c.TopicPrefix == "" {
		return DefaultMQTTTopic
	}
	return c.TopicPrefix
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}
