// Package config loads server configuration from the environment.
// A .env file is picked up when present (local development); real
// deployments set the variables directly.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Значения по умолчанию для необязательных параметров
const (
	DefaultServerAddress   = ":8080"
	DefaultDatabasePath    = "taskdeck.db"
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultTokenIssuer     = "taskdeck"
	DefaultTokenAudience   = "taskdeck-api"
)

// Config содержит конфигурацию сервера
type Config struct {
	ServerAddress   string        // адрес HTTP сервера, например ":8080"
	DatabasePath    string        // путь до файла SQLite
	JWTSecret       string        // секрет для подписи access token (обязателен)
	TokenIssuer     string        // claim iss
	TokenAudience   string        // claim aud
	AccessTokenTTL  time.Duration // время жизни access token
	RefreshTokenTTL time.Duration // время жизни refresh token
	LogLevel        string        // debug/info/warn/error
	LogFormat       string        // text/json
}

// Load читает конфигурацию из переменных окружения.
// Отсутствие TASKDECK_JWT_SECRET — фатальная ошибка конфигурации:
// падаем на старте, а не на первом запросе.
func Load() (*Config, error) {
	// .env загружаем best-effort: его отсутствие не ошибка
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress:   getEnv("TASKDECK_SERVER_ADDRESS", DefaultServerAddress),
		DatabasePath:    getEnv("TASKDECK_DATABASE_PATH", DefaultDatabasePath),
		JWTSecret:       os.Getenv("TASKDECK_JWT_SECRET"),
		TokenIssuer:     getEnv("TASKDECK_TOKEN_ISSUER", DefaultTokenIssuer),
		TokenAudience:   getEnv("TASKDECK_TOKEN_AUDIENCE", DefaultTokenAudience),
		AccessTokenTTL:  DefaultAccessTokenTTL,
		RefreshTokenTTL: DefaultRefreshTokenTTL,
		LogLevel:        getEnv("TASKDECK_LOG_LEVEL", DefaultLogLevel),
		LogFormat:       getEnv("TASKDECK_LOG_FORMAT", DefaultLogFormat),
	}

	var err error
	if cfg.AccessTokenTTL, err = getEnvDuration("TASKDECK_ACCESS_TOKEN_TTL", DefaultAccessTokenTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getEnvDuration("TASKDECK_REFRESH_TOKEN_TTL", DefaultRefreshTokenTTL); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("TASKDECK_JWT_SECRET is required")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("access token TTL must be positive")
	}
	if c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("refresh token TTL must be positive")
	}
	return nil
}

// getEnv возвращает значение переменной окружения или дефолт
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvDuration парсит duration из переменной окружения
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
