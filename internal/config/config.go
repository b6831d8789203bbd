// Пакет config — загрузка и валидация конфигурации сервиса каталога
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации сервиса каталога.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории данных (файл SQLite каталога)
	DataDir string

	// B2AccountID — идентификатор аккаунта Backblaze B2 (обязательный)
	B2AccountID string
	// B2ApplicationKey — ключ приложения B2 (обязательный)
	B2ApplicationKey string
	// B2BucketID — идентификатор bucket (обязательный)
	B2BucketID string
	// B2BucketName — имя bucket для публичных URL (обязательный)
	B2BucketName string
	// B2APIURL — базовый URL API B2
	B2APIURL string
	// B2Timeout — таймаут HTTP-запросов к B2
	B2Timeout time.Duration
	// B2AuthTTL — срок жизни закэшированного auth-токена B2
	B2AuthTTL time.Duration

	// CacheSize — максимальное количество записей в LRU-кэше метаданных
	CacheSize int
	// CacheTTL — время жизни записи кэша
	CacheTTL time.Duration

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// ACERVO_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("ACERVO_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("ACERVO_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("ACERVO_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// ACERVO_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("ACERVO_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// B2_ACCOUNT_ID — обязательный
	cfg.B2AccountID, err = getEnvRequired("B2_ACCOUNT_ID")
	if err != nil {
		return nil, err
	}

	// B2_APPLICATION_KEY — обязательный
	cfg.B2ApplicationKey, err = getEnvRequired("B2_APPLICATION_KEY")
	if err != nil {
		return nil, err
	}

	// B2_BUCKET_ID — обязательный
	cfg.B2BucketID, err = getEnvRequired("B2_BUCKET_ID")
	if err != nil {
		return nil, err
	}

	// B2_BUCKET_NAME — обязательный
	cfg.B2BucketName, err = getEnvRequired("B2_BUCKET_NAME")
	if err != nil {
		return nil, err
	}

	// B2_API_URL — базовый URL API (по умолчанию api005)
	cfg.B2APIURL = getEnvDefault("B2_API_URL", "https://api005.backblazeb2.com")

	// B2_TIMEOUT — таймаут запросов к B2 (по умолчанию 30s)
	cfg.B2Timeout, err = getEnvDuration("B2_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("B2_TIMEOUT: %w", err)
	}

	// B2_AUTH_TTL — срок жизни auth-токена (по умолчанию 23h,
	// токен B2 действует 24 часа)
	cfg.B2AuthTTL, err = getEnvDuration("B2_AUTH_TTL", 23*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("B2_AUTH_TTL: %w", err)
	}

	// ACERVO_CACHE_SIZE — размер LRU-кэша метаданных (по умолчанию 1000)
	cfg.CacheSize, err = getEnvInt("ACERVO_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("ACERVO_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("ACERVO_CACHE_SIZE: значение должно быть положительным")
	}

	// ACERVO_CACHE_TTL — TTL записи кэша (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("ACERVO_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("ACERVO_CACHE_TTL: %w", err)
	}

	// ACERVO_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("ACERVO_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("ACERVO_LOG_LEVEL: %w", err)
	}

	// ACERVO_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("ACERVO_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("ACERVO_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// Таймауты HTTP-сервера
	cfg.HTTPReadTimeout, err = getEnvDuration("ACERVO_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ACERVO_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("ACERVO_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ACERVO_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("ACERVO_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ACERVO_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// ACERVO_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("ACERVO_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ACERVO_SHUTDOWN_TIMEOUT: %w", err)
	}

	// ACERVO_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("ACERVO_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ACERVO_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// ACERVO_DEPHEALTH_GROUP — имя группы в метриках topologymetrics
	cfg.DephealthGroup = getEnvDefault("ACERVO_DEPHEALTH_GROUP", "acervo")

	return cfg, nil
}

// DatabasePath возвращает путь к файлу SQLite каталога.
func (c *Config) DatabasePath() string {
	return c.DataDir + "/acervo.db"
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 23h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
