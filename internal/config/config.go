package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers understood by store.Open.
const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Remote modes understood by gateway.New.
const (
	ModeRemote   = "remote"
	ModeFallback = "fallback"
	ModeLocal    = "local"
)

type Config struct {
	App struct {
		ENV             string
		SupportUsername string
		ListingTTL      time.Duration
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	Store struct {
		Driver    string
		Namespace string
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	HTTP struct {
		Host        string
		Port        string
		Maintenance bool
	}

	Remote struct {
		BaseURL string
		Mode    string
		Timeout time.Duration
	}

	Poll struct {
		Listings time.Duration
		Chats    time.Duration
		Messages time.Duration
		Reviews  time.Duration
	}

	Jobs struct {
		ListingExpirySchedule string
	}
}

// New builds the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	// App
	cfg.App.ENV = getEnvDefault("APP_ENV", "development")
	cfg.App.SupportUsername = getEnvDefault("SUPPORT_USERNAME", "RoTradeAc")
	cfg.App.ListingTTL = getEnvDuration("LISTING_TTL", 24*24*time.Hour)

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "rotrade")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Persisted store
	cfg.Store.Driver = strings.ToLower(getEnvDefault("STORE_DRIVER", DriverRedis))
	cfg.Store.Namespace = getEnvDefault("STORE_NAMESPACE", "rotrade:")

	// Database (sqlite / mysql drivers)
	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.DSN == "" {
		if cfg.Store.Driver == DriverSQLite {
			cfg.DB.DSN = getEnvDefault("SQLITE_PATH", "rotrade.db")
		} else {
			cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
			cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
			cfg.DB.User = getEnvDefault("DB_USER", "root")
			cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
			cfg.DB.Name = getEnvDefault("DB_NAME", "rotrade")

			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// gRPC change feed
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// HTTP action API
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")
	cfg.HTTP.Maintenance = isTruthy(os.Getenv("HTTP_MAINTENANCE"))

	// Remote endpoint
	cfg.Remote.BaseURL = getEnvDefault("REMOTE_URL", "")
	cfg.Remote.Mode = strings.ToLower(getEnvDefault("REMOTE_MODE", ModeFallback))
	cfg.Remote.Timeout = getEnvDuration("REMOTE_TIMEOUT", 5*time.Second)

	// Polling periods
	cfg.Poll.Listings = getEnvDuration("POLL_LISTINGS", time.Second)
	cfg.Poll.Chats = getEnvDuration("POLL_CHATS", 2*time.Second)
	cfg.Poll.Messages = getEnvDuration("POLL_MESSAGES", 3*time.Second)
	cfg.Poll.Reviews = getEnvDuration("POLL_REVIEWS", 5*time.Second)

	cfg.Jobs.ListingExpirySchedule = getEnvDefault("LISTING_EXPIRY_JOB_SCHEDULE", "@hourly")

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// getEnvDuration accepts Go duration strings ("3s", "24h").
func getEnvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
