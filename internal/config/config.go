package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Tracking TrackingConfig
	Queue    QueueConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	HubLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// TrackingConfig tunes the per-session pipelines.
type TrackingConfig struct {
	ScrollSettle       time.Duration
	TrajectoryInterval time.Duration
	PersistInterval    time.Duration
	SessionTTL         time.Duration
	ContextTTL         time.Duration
	// ContextStore selects where emotional contexts live: "redis" or "memory".
	ContextStore string
}

type QueueConfig struct {
	InteractionTopic string
	EmotionTopic     string
	SinkBuffer       int
	ArchiveDurable   string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			HubLogFilePath:     getEnv("HUB_LOG_FILE_PATH", "logs/hub.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvAsDuration("SESSION_TOKEN_TTL", 24*time.Hour),
		},
		Tracking: TrackingConfig{
			ScrollSettle:       getEnvAsDuration("TRACKING_SCROLL_SETTLE", 150*time.Millisecond),
			TrajectoryInterval: getEnvAsDuration("TRACKING_TRAJECTORY_INTERVAL", 5*time.Second),
			PersistInterval:    getEnvAsDuration("TRACKING_PERSIST_INTERVAL", 30*time.Second),
			SessionTTL:         getEnvAsDuration("TRACKING_SESSION_TTL", 30*time.Minute),
			ContextTTL:         getEnvAsDuration("TRACKING_CONTEXT_TTL", 30*24*time.Hour),
			ContextStore:       getEnv("TRACKING_CONTEXT_STORE", "redis"),
		},
		Queue: QueueConfig{
			InteractionTopic: getEnv("QUEUE_INTERACTION_TOPIC", "behavioral.interactions"),
			EmotionTopic:     getEnv("QUEUE_EMOTION_TOPIC", "emotional.events"),
			SinkBuffer:       getEnvAsInt("QUEUE_SINK_BUFFER", 1024),
			ArchiveDurable:   getEnv("ARCHIVE_DURABLE_NAME", "behavior-archiver"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("150ms", "30s").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
