package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Sync     SyncConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Database DatabaseConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type SyncConfig struct {
	OrderServiceURL string
	RefreshInterval time.Duration
	UrgencyTick     time.Duration
	RequestTimeout  time.Duration
	TaxRate         float64
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topic   string
	Enabled bool
}

type RedisConfig struct {
	Addr string
}

type DatabaseConfig struct {
	Path string
}

// Load reads configuration from the environment with sensible defaults. The
// kafka group id should differ per surface so every terminal sees every push
// event; main.go passes its service name as the default.
func Load(service string) *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Sync: SyncConfig{
			OrderServiceURL: getEnv("ORDER_SERVICE_URL", "http://localhost:5000/api"),
			RefreshInterval: time.Duration(getEnvInt("SYNC_REFRESH_SECONDS", 5)) * time.Second,
			UrgencyTick:     time.Duration(getEnvInt("URGENCY_TICK_SECONDS", 15)) * time.Second,
			RequestTimeout:  time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
			TaxRate:         getEnvFloat("TAX_RATE", 0.10),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			GroupID: getEnv("KAFKA_GROUP_ID", service),
			Topic:   getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Database: DatabaseConfig{
			Path: getEnv("SQLITE_PATH", "file:pos.db?cache=shared"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
