package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host  string
	Port  int
	DBDSN string

	JWTSecret     string
	TokenTTL      time.Duration
	AdminKeyHash  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// rabbitMQ
	RabbitURL         string
	RabbitQueue       string
	WorkerConcurrency int

	// narrative content
	ContentPath  string
	StartChapter string

	// reminders
	DefaultTimezone     string
	ReminderLocale      string
	ReminderDefaultHour int
	AlexaTimeout        time.Duration

	LogLevel string
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "err", err)
	}

	// DSN demo:
	// app:apppass@tcp(127.0.0.1:3306)/storyvoice?charset=utf8mb4&parseTime=true&loc=UTC
	dsn := envStr("DB_DSN", "file:storyvoice.db?_pragma=busy_timeout(5000)")

	return Config{
		Host:  envStr("HOST", "127.0.0.1"),
		Port:  envInt("PORT", 7070),
		DBDSN: dsn,

		JWTSecret:     envStr("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:      time.Duration(envInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		AdminKeyHash:  os.Getenv("ADMIN_KEY_HASH"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		RabbitURL:         os.Getenv("RABBIT_URL"),
		RabbitQueue:       envStr("RABBIT_QUEUE", "session_events"),
		WorkerConcurrency: clamp(envInt("WORKER_CONCURRENCY", 2), 1, 50),

		ContentPath:  envStr("CONTENT_PATH", "content/chapters.json"),
		StartChapter: envStr("START_CHAPTER", "c01"),

		DefaultTimezone:     envStr("DEFAULT_TIMEZONE", "UTC"),
		ReminderLocale:      envStr("REMINDER_LOCALE", "es-US"),
		ReminderDefaultHour: envInt("REMINDER_DEFAULT_HOUR", 9),
		AlexaTimeout:        time.Duration(envInt("ALEXA_TIMEOUT_SECONDS", 10)) * time.Second,

		LogLevel: strings.ToLower(envStr("LOG_LEVEL", "info")),
	}
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN must not be empty")
	}
	if c.ReminderDefaultHour < 0 || c.ReminderDefaultHour > 23 {
		return fmt.Errorf("REMINDER_DEFAULT_HOUR must be between 0 and 23, got %d", c.ReminderDefaultHour)
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE %q: %w", c.DefaultTimezone, err)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be positive")
	}
	return nil
}

// Location returns the default zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
