package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Config holds the configuration for a Sentra agent
type Config struct {
	// MQTT configuration
	MQTTBroker   string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	MQTTClientID string

	// Redis configuration
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Postgres configuration
	PostgresHost               string
	PostgresPort               int
	PostgresUser               string
	PostgresPassword           string
	PostgresDB                 string
	PostgresSSLMode            string
	PostgresMaxConnections     int
	PostgresMaxIdleConnections int
	PostgresConnMaxLifetime    time.Duration

	// Service configuration
	ServiceName string
	HealthPort  int
	LogLevel    string

	// Monitor agent configuration
	SensorTopics         []string
	MovementHistoryHours int
	AutoTriggerEnabled   bool
	AutoTriggerMinConf   float64
	AutoTriggerCountdown int

	// Guardian agent configuration
	DefaultSosCountdownSec int
	DefaultCheckInSec      int
	EscalationPolicyPath   string
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		MQTTBroker:    "localhost",
		MQTTPort:      1883,
		MQTTUser:      "",
		MQTTPassword:  "",
		MQTTClientID:  "",
		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,
		PostgresHost:               "localhost",
		PostgresPort:               5432,
		PostgresUser:               "sentra",
		PostgresPassword:           "",
		PostgresDB:                 "sentra",
		PostgresSSLMode:            "disable",
		PostgresMaxConnections:     10,
		PostgresMaxIdleConnections: 5,
		PostgresConnMaxLifetime:    30 * time.Minute,
		ServiceName: "sentra-agent",
		HealthPort:  8080,
		LogLevel:    "info",
		// Monitor agent defaults
		SensorTopics:         []string{"safety/raw/+/+"},
		MovementHistoryHours: 24,
		AutoTriggerEnabled:   true,
		AutoTriggerMinConf:   0.85,
		AutoTriggerCountdown: 30,
		// Guardian agent defaults
		DefaultSosCountdownSec: 10,
		DefaultCheckInSec:      1800,
		EscalationPolicyPath:   "",
	}
}

// LoadFromEnv loads configuration from environment variables with SENTRA_ prefix
func (c *Config) LoadFromEnv() {
	// MQTT configuration
	if v := os.Getenv("SENTRA_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("SENTRA_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MQTTPort = port
		}
	}
	if v := os.Getenv("SENTRA_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("SENTRA_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("SENTRA_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}

	// Redis configuration
	if v := os.Getenv("SENTRA_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("SENTRA_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("SENTRA_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("SENTRA_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// Postgres configuration
	if v := os.Getenv("SENTRA_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("SENTRA_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.PostgresPort = port
		}
	}
	if v := os.Getenv("SENTRA_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("SENTRA_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("SENTRA_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}
	if v := os.Getenv("SENTRA_POSTGRES_SSL_MODE"); v != "" {
		c.PostgresSSLMode = v
	}

	// Service configuration
	if v := os.Getenv("SENTRA_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("SENTRA_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HealthPort = port
		}
	}
	if v := os.Getenv("SENTRA_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// Monitor agent configuration
	if v := os.Getenv("SENTRA_MOVEMENT_HISTORY_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.MovementHistoryHours = hours
		}
	}
	if v := os.Getenv("SENTRA_AUTO_TRIGGER_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.AutoTriggerEnabled = enabled
		}
	}
	if v := os.Getenv("SENTRA_AUTO_TRIGGER_MIN_CONF"); v != "" {
		if conf, err := strconv.ParseFloat(v, 64); err == nil {
			c.AutoTriggerMinConf = conf
		}
	}
	if v := os.Getenv("SENTRA_AUTO_TRIGGER_COUNTDOWN"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			c.AutoTriggerCountdown = sec
		}
	}

	// Guardian agent configuration
	if v := os.Getenv("SENTRA_DEFAULT_SOS_COUNTDOWN_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			c.DefaultSosCountdownSec = sec
		}
	}
	if v := os.Getenv("SENTRA_DEFAULT_CHECKIN_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			c.DefaultCheckInSec = sec
		}
	}
	if v := os.Getenv("SENTRA_ESCALATION_POLICY_PATH"); v != "" {
		c.EscalationPolicyPath = v
	}
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	// MQTT flags
	pflag.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	pflag.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	pflag.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	pflag.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	pflag.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")

	// Redis flags
	pflag.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	pflag.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	pflag.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	pflag.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// Postgres flags
	pflag.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	pflag.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	pflag.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres username")
	pflag.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	pflag.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database name")
	pflag.StringVar(&c.PostgresSSLMode, "postgres-ssl-mode", c.PostgresSSLMode, "Postgres SSL mode")

	// Service flags
	pflag.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	pflag.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port")
	pflag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	// Monitor agent flags
	pflag.IntVar(&c.MovementHistoryHours, "movement-history-hours", c.MovementHistoryHours, "Hours of movement events kept in Redis")
	pflag.BoolVar(&c.AutoTriggerEnabled, "auto-trigger-enabled", c.AutoTriggerEnabled, "Start an SOS countdown on high-confidence abnormal movement")
	pflag.Float64Var(&c.AutoTriggerMinConf, "auto-trigger-min-conf", c.AutoTriggerMinConf, "Minimum classifier confidence for auto-trigger")
	pflag.IntVar(&c.AutoTriggerCountdown, "auto-trigger-countdown", c.AutoTriggerCountdown, "Countdown duration in seconds for auto-triggered SOS")

	// Guardian agent flags
	pflag.IntVar(&c.DefaultSosCountdownSec, "default-sos-countdown", c.DefaultSosCountdownSec, "Default SOS countdown duration in seconds")
	pflag.IntVar(&c.DefaultCheckInSec, "default-checkin-sec", c.DefaultCheckInSec, "Default check-in timer duration in seconds")
	pflag.StringVar(&c.EscalationPolicyPath, "escalation-policy", c.EscalationPolicyPath, "Path to escalation policy YAML file")

	pflag.Parse()
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT broker is required")
	}
	if c.MQTTPort <= 0 || c.MQTTPort > 65535 {
		return fmt.Errorf("MQTT port must be between 1 and 65535")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("Redis host is required")
	}
	if c.RedisPort <= 0 || c.RedisPort > 65535 {
		return fmt.Errorf("Redis port must be between 1 and 65535")
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 1 and 65535")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}
	if c.AutoTriggerMinConf < 0.6 || c.AutoTriggerMinConf > 1.0 {
		return fmt.Errorf("auto-trigger confidence must be between 0.6 and 1.0, got %v", c.AutoTriggerMinConf)
	}
	if c.DefaultSosCountdownSec <= 0 {
		return fmt.Errorf("default SOS countdown must be positive")
	}
	if c.DefaultCheckInSec <= 0 {
		return fmt.Errorf("default check-in duration must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns a lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}
