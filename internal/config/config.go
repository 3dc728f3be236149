package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Admin        AdminConfig
	Telegram     TelegramConfig
	Work         WorkConfig
	Geocoding    GeocodingConfig
	Holiday      HolidayConfig
	Notification NotificationConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port          int
	Env           string
	LogLevel      string
	PublicBaseURL string
	Timezone      string
	RosterFile    string
	// InMemory keeps every store in process memory (development only)
	InMemory bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration for the admin API
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AdminConfig holds the bcrypt hash of the supervisor API key
type AdminConfig struct {
	KeyHash string
}

type TelegramConfig struct {
	Token          string
	ReviewChatID   int64
	OperatorChatID int64
	PollTimeout    int
	Debug          bool
}

// WorkConfig holds the local work hours and the handshake wait
type WorkConfig struct {
	StartHour        int
	StartMinute      int
	EndHour          int
	EndMinute        int
	HandshakeTimeout time.Duration
}

type GeocodingConfig struct {
	APIKey   string
	Language string
}

type HolidayConfig struct {
	BaseURL string
}

type NotificationConfig struct {
	Workers   int
	QueueSize int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:          appPort,
		Env:           getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		Timezone:      getEnv("TIMEZONE", "Asia/Taipei"),
		RosterFile:    getEnv("ROSTER_FILE", "roster.yaml"),
		InMemory:      getEnvBool("IN_MEMORY", false),
	}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "attendance_bot"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// JWT configuration
	accessExpiration, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: accessExpiration,
	}

	config.Admin = AdminConfig{
		KeyHash: getEnv("ADMIN_KEY_HASH", ""),
	}

	// Telegram configuration
	reviewChatID, err := getEnvInt64("REVIEW_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}
	operatorChatID, err := getEnvInt64("OPERATOR_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}
	pollTimeout, err := strconv.Atoi(getEnv("TELEGRAM_POLL_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_POLL_TIMEOUT: %w", err)
	}

	config.Telegram = TelegramConfig{
		Token:          getEnv("TELEGRAM_BOT_TOKEN", ""),
		ReviewChatID:   reviewChatID,
		OperatorChatID: operatorChatID,
		PollTimeout:    pollTimeout,
		Debug:          getEnvBool("TELEGRAM_DEBUG", false),
	}

	// Work hours
	startHour, startMinute, err := parseClock(getEnv("WORK_START", "09:30"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORK_START: %w", err)
	}
	endHour, endMinute, err := parseClock(getEnv("WORK_END", "17:30"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORK_END: %w", err)
	}
	handshakeTimeout, err := time.ParseDuration(getEnv("HANDSHAKE_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HANDSHAKE_TIMEOUT: %w", err)
	}

	config.Work = WorkConfig{
		StartHour:        startHour,
		StartMinute:      startMinute,
		EndHour:          endHour,
		EndMinute:        endMinute,
		HandshakeTimeout: handshakeTimeout,
	}

	config.Geocoding = GeocodingConfig{
		APIKey:   getEnv("GOOGLE_MAPS_API_KEY", ""),
		Language: getEnv("GEOCODING_LANGUAGE", "zh-TW"),
	}

	config.Holiday = HolidayConfig{
		BaseURL: getEnv("HOLIDAY_API_URL", "https://api.pin-yi.me/taiwan-calendar"),
	}

	workers, err := strconv.Atoi(getEnv("NOTIFICATION_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATION_WORKERS: %w", err)
	}
	queueSize, err := strconv.Atoi(getEnv("NOTIFICATION_QUEUE_SIZE", "256"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATION_QUEUE_SIZE: %w", err)
	}

	config.Notification = NotificationConfig{
		Workers:   workers,
		QueueSize: queueSize,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.App.InMemory && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.App.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL is required")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	start := c.Work.StartHour*60 + c.Work.StartMinute
	end := c.Work.EndHour*60 + c.Work.EndMinute
	if start >= end {
		return fmt.Errorf("WORK_START must be before WORK_END")
	}
	if c.Work.HandshakeTimeout <= 0 {
		return fmt.Errorf("HANDSHAKE_TIMEOUT must be positive")
	}
	if c.Telegram.Token != "" && c.Telegram.ReviewChatID == 0 {
		return fmt.Errorf("REVIEW_CHAT_ID is required with TELEGRAM_BOT_TOKEN")
	}
	return nil
}

// Location returns the organization timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		slog.Warn("Unknown timezone, using UTC", "timezone", c.App.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
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

// parseClock reads an "HH:MM" wall-clock time
func parseClock(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
