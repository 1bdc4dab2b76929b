package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ponytojas/go-parking-monitor/internal/occupancy"
)

// Config holds all configuration for the application
type Config struct {
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	Store       StoreConfig       `mapstructure:"store"`
	Zones       []occupancy.Zone  `mapstructure:"zones"`
	Display     DisplayConfig     `mapstructure:"display"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Log         LogConfig         `mapstructure:"log"`
}

// MQTTConfig holds MQTT connection configuration
type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	Port        int    `mapstructure:"port"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	QoS         byte   `mapstructure:"qos"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

// StoreConfig holds the realtime store path being monitored
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// DisplayConfig holds screen configuration
type DisplayConfig struct {
	Headless        bool          `mapstructure:"headless"`
	NotificationTTL time.Duration `mapstructure:"notification_ttl"`
}

// HTTPConfig holds the status endpoint configuration. An empty address
// disables it.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig holds Postgres connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DiagnosticsConfig holds the reading diagnostics sink configuration
type DiagnosticsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	TableName  string `mapstructure:"table_name"`
	BufferSize int    `mapstructure:"buffer_size"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`
}

// envBindings maps configuration keys to environment variables
var envBindings = map[string]string{
	"mqtt.broker":       "MQTT_BROKER",
	"mqtt.port":         "MQTT_PORT",
	"mqtt.client_id":    "MQTT_CLIENT_ID",
	"mqtt.topic_prefix": "MQTT_TOPIC_PREFIX",
	"mqtt.qos":          "MQTT_QOS",
	"mqtt.username":     "MQTT_USERNAME",
	"mqtt.password":     "MQTT_PASSWORD",

	"store.path": "STORE_PATH",

	"display.headless":         "DISPLAY_HEADLESS",
	"display.notification_ttl": "DISPLAY_NOTIFICATION_TTL",

	"http.addr": "HTTP_ADDR",

	"database.host":     "DATABASE_HOST",
	"database.port":     "DATABASE_PORT",
	"database.user":     "DATABASE_USER",
	"database.password": "DATABASE_PASSWORD",
	"database.dbname":   "DATABASE_DBNAME",
	"database.sslmode":  "DATABASE_SSLMODE",

	"diagnostics.enabled":     "DIAGNOSTICS_ENABLED",
	"diagnostics.table_name":  "DIAGNOSTICS_TABLE_NAME",
	"diagnostics.buffer_size": "DIAGNOSTICS_BUFFER_SIZE",

	"log.level":  "LOG_LEVEL",
	"log.file":   "LOG_FILE",
	"log.format": "LOG_FORMAT",
}

// LoadConfig loads configuration from file and/or environment variables.
// path is a directory searched for config.yaml, or a path to a config file.
func LoadConfig(path string, logger *slog.Logger) (*Config, error) {
	v := viper.New()

	// Defaults first (lowest precedence)
	d := GetDefaultConfig()
	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.port", d.MQTT.Port)
	v.SetDefault("mqtt.client_id", d.MQTT.ClientID)
	v.SetDefault("mqtt.topic_prefix", d.MQTT.TopicPrefix)
	v.SetDefault("mqtt.qos", d.MQTT.QoS)
	v.SetDefault("mqtt.username", d.MQTT.Username)
	v.SetDefault("mqtt.password", d.MQTT.Password)

	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("zones", zonesToMaps(d.Zones))

	v.SetDefault("display.headless", d.Display.Headless)
	v.SetDefault("display.notification_ttl", d.Display.NotificationTTL)
	v.SetDefault("http.addr", d.HTTP.Addr)

	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.dbname", d.Database.DBName)
	v.SetDefault("database.sslmode", d.Database.SSLMode)

	v.SetDefault("diagnostics.enabled", d.Diagnostics.Enabled)
	v.SetDefault("diagnostics.table_name", d.Diagnostics.TableName)
	v.SetDefault("diagnostics.buffer_size", d.Diagnostics.BufferSize)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.format", d.Log.Format)

	// Config file (medium precedence)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables (highest precedence), e.g. mqtt.broker -> MQTT_BROKER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// A missing config file is fine; we continue with env and defaults
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Info("no config file found, using environment variables and defaults")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		logger.Info("loaded config file", "file", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost",
			Port:        1883,
			ClientID:    "",
			TopicPrefix: "",
			QoS:         1,
		},
		Store: StoreConfig{
			Path: occupancy.DefaultPath,
		},
		Zones: occupancy.DefaultZones(),
		Display: DisplayConfig{
			Headless:        false,
			NotificationTTL: 2 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			DBName:   "iot_data",
			SSLMode:  "disable",
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:    false,
			TableName:  "sensor_readings",
			BufferSize: 256,
		},
		Log: LogConfig{
			Level:  "info",
			File:   "parking-monitor.log",
			Format: "text",
		},
	}
}

// Validate reports every invalid setting
func (c *Config) Validate() error {
	var errs []error
	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if err := occupancy.ValidateZones(c.Zones); err != nil {
		errs = append(errs, fmt.Errorf("zones: %w", err))
	}
	if c.Display.NotificationTTL <= 0 {
		errs = append(errs, errors.New("display.notification_ttl must be positive"))
	}
	if c.Diagnostics.Enabled && c.Diagnostics.BufferSize <= 0 {
		errs = append(errs, errors.New("diagnostics.buffer_size must be positive"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel converts a level name into a slog level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	brokerURL := c.MQTT.Broker

	// If the URL already has a protocol, use it as is
	for _, scheme := range []string{"tcp://", "ssl://", "ws://", "wss://"} {
		if strings.HasPrefix(brokerURL, scheme) {
			// If there's no port in the URL, add the default port
			if !strings.Contains(brokerURL[len(scheme):], ":") {
				brokerURL = fmt.Sprintf("%s:%d", brokerURL, c.MQTT.Port)
			}
			return brokerURL
		}
	}

	// Handle http:// and https:// by converting to mqtt protocols
	if host, ok := strings.CutPrefix(brokerURL, "http://"); ok {
		return "tcp://" + withPort(host, c.MQTT.Port)
	}
	if host, ok := strings.CutPrefix(brokerURL, "https://"); ok {
		return "ssl://" + withPort(host, c.MQTT.Port)
	}

	// No protocol, use tcp:// with the configured port
	return "tcp://" + withPort(brokerURL, c.MQTT.Port)
}

// Topic returns the MQTT topic carrying snapshots of a store path
func (c *Config) Topic(path string) string {
	return c.MQTT.TopicPrefix + path
}

func withPort(host string, port int) string {
	if strings.Contains(host, ":") {
		return host
	}
	return fmt.Sprintf("%s:%d", host, port)
}

func zonesToMaps(zones []occupancy.Zone) []map[string]interface{} {
	out := make([]map[string]interface{}, len(zones))
	for i, zone := range zones {
		out[i] = map[string]interface{}{"id": zone.ID, "keys": zone.Keys}
	}
	return out
}
