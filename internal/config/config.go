package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
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

	HTTP struct {
		Host string
		Port string
	}

	Auth struct {
		// Secret verifies tokens issued by the external auth service.
		// The engine never issues tokens itself.
		Secret string
	}

	Engine struct {
		ViewFameWeight int
		LikeFameWeight int
		TxRetries      int
		RetryBackoff   time.Duration
	}

	Gateway struct {
		WriteWait      time.Duration
		PongWait       time.Duration
		MaxMessageSize int64
		SendBuffer     int
		MalformedLimit int
	}
}

func New() *Config {
	// Optional .env for local development, ignored when absent.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "interaction_engine")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "matcha")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// HTTP / websocket listener
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "127.0.0.1")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")

	// Auth handoff
	cfg.Auth.Secret = getEnvDefault("AUTH_SECRET", "dev-secret")

	// Interaction engine
	cfg.Engine.ViewFameWeight = getEnvInt("FAME_VIEW_WEIGHT", 1)
	cfg.Engine.LikeFameWeight = getEnvInt("FAME_LIKE_WEIGHT", 5)
	cfg.Engine.TxRetries = getEnvInt("ENGINE_TX_RETRIES", 3)
	cfg.Engine.RetryBackoff = getEnvDuration("ENGINE_RETRY_BACKOFF", 25*time.Millisecond)

	// Gateway
	cfg.Gateway.WriteWait = getEnvDuration("WS_WRITE_WAIT", 10*time.Second)
	cfg.Gateway.PongWait = getEnvDuration("WS_PONG_WAIT", 60*time.Second)
	cfg.Gateway.MaxMessageSize = int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 4096))
	cfg.Gateway.SendBuffer = getEnvInt("WS_SEND_BUFFER", 256)
	cfg.Gateway.MalformedLimit = getEnvInt("WS_MALFORMED_LIMIT", 5)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
