package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store drivers
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Delivery modes
const (
	DeliveryModeSimulated = "simulated"
	DeliveryModeAMQP      = "amqp"
)

// Config holds all application configuration
type Config struct {
	ServiceName  string
	Store        StoreConfig
	RabbitMQ     RabbitMQConfig
	Sync         SyncConfig
	Connectivity ConnectivityConfig
	Validation   ValidationConfig
	Anomaly      AnomalyConfig
}

// StoreConfig holds durable record store settings
type StoreConfig struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

// RabbitMQConfig holds RabbitMQ connection and exchange settings
type RabbitMQConfig struct {
	URL              string
	IngestExchange   string
	IngestRoutingKey string
}

// SyncConfig holds sync engine and orchestrator settings
type SyncConfig struct {
	DeliveryMode    string
	ItemDelay       time.Duration
	SuccessRate     float64
	RequestTimeout  time.Duration
	HardCutoff      time.Duration
	AutoSync        bool
	DeviceID        string
	DeliveryTimeout time.Duration
}

// ConnectivityConfig holds reachability probe settings
type ConnectivityConfig struct {
	ProbeAddress    string
	ProbeTimeout    time.Duration
	PollInterval    time.Duration
	Debounce        time.Duration
	RecheckInterval time.Duration
}

// ValidationConfig holds reading validation settings
type ValidationConfig struct {
	RequireMonotonic bool
}

// AnomalyConfig holds consumption anomaly settings
type AnomalyConfig struct {
	MaxConsumption  float64
	MaxGrowthFactor float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "meter-reading-sync"),
		Store: StoreConfig{
			Driver:      getEnv("STORE_DRIVER", StoreDriverSQLite),
			SQLitePath:  getEnv("STORE_SQLITE_PATH", "readings.db"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:              getEnv("RABBITMQ_URL", ""),
			IngestExchange:   getEnv("RABBITMQ_INGEST_EXCHANGE", "energy-metering.ingest.exchange"),
			IngestRoutingKey: getEnv("RABBITMQ_INGEST_ROUTING_KEY", "meter.reading.raw"),
		},
		Sync: SyncConfig{
			DeliveryMode:    getEnv("SYNC_DELIVERY_MODE", DeliveryModeSimulated),
			ItemDelay:       getEnvAsDuration("SYNC_ITEM_DELAY", 300*time.Millisecond),
			SuccessRate:     getEnvAsFloat("SYNC_SIMULATED_SUCCESS_RATE", 0.9),
			RequestTimeout:  getEnvAsDuration("SYNC_REQUEST_TIMEOUT", 8*time.Second),
			HardCutoff:      getEnvAsDuration("SYNC_HARD_CUTOFF", 10*time.Second),
			AutoSync:        getEnvAsBool("SYNC_AUTO_ON_RECONNECT", true),
			DeviceID:        getEnv("SYNC_DEVICE_ID", hostname()),
			DeliveryTimeout: getEnvAsDuration("SYNC_DELIVERY_TIMEOUT", 2*time.Second),
		},
		Connectivity: ConnectivityConfig{
			ProbeAddress:    getEnv("CONNECTIVITY_PROBE_ADDRESS", "1.1.1.1:443"),
			ProbeTimeout:    getEnvAsDuration("CONNECTIVITY_PROBE_TIMEOUT", 3*time.Second),
			PollInterval:    getEnvAsDuration("CONNECTIVITY_POLL_INTERVAL", 5*time.Second),
			Debounce:        getEnvAsDuration("CONNECTIVITY_DEBOUNCE", 300*time.Millisecond),
			RecheckInterval: getEnvAsDuration("CONNECTIVITY_RECHECK_INTERVAL", 30*time.Second),
		},
		Validation: ValidationConfig{
			RequireMonotonic: getEnvAsBool("VALIDATION_REQUIRE_MONOTONIC", true),
		},
		Anomaly: AnomalyConfig{
			MaxConsumption:  getEnvAsFloat("ANOMALY_MAX_CONSUMPTION", 300),
			MaxGrowthFactor: getEnvAsFloat("ANOMALY_MAX_GROWTH_FACTOR", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the fields required by the selected store driver and delivery mode
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("STORE_SQLITE_PATH is required when STORE_DRIVER=%s", StoreDriverSQLite)
		}
	case StoreDriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required but not set in environment variables")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Sync.DeliveryMode {
	case DeliveryModeSimulated:
		if c.Sync.SuccessRate < 0 || c.Sync.SuccessRate > 1 {
			return fmt.Errorf("SYNC_SIMULATED_SUCCESS_RATE must be within [0,1], got %v", c.Sync.SuccessRate)
		}
	case DeliveryModeAMQP:
		if c.RabbitMQ.URL == "" {
			return fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
		}
	default:
		return fmt.Errorf("unknown SYNC_DELIVERY_MODE %q", c.Sync.DeliveryMode)
	}

	if c.Sync.RequestTimeout <= 0 || c.Sync.HardCutoff <= 0 {
		return fmt.Errorf("sync timeouts must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "field-device"
	}
	return name
}
