// Pacote config — carregamento e validação da configuração do módulo
// de bonificação a partir de variáveis de ambiente.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Versão da aplicação, definida no build via -ldflags.
var Version = "dev"

// Config contém todos os parâmetros de configuração do serviço.
type Config struct {
	// --- Servidor ---

	// Porta do servidor HTTP
	Port int
	// Nível de log (debug, info, warn, error)
	LogLevel slog.Level
	// Formato dos logs (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Host do PostgreSQL
	DBHost string
	// Porta do PostgreSQL
	DBPort int
	// Nome do banco de dados
	DBName string
	// Usuário do PostgreSQL
	DBUser string
	// Senha do usuário do PostgreSQL
	DBPassword string
	// Modo SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Cálculo de bonificação ---

	// Token compartilhado exigido no endpoint de cleanup (Bearer)
	CleanupToken string
	// Duração do lease da trava por dt_referencia
	LockLease time.Duration
	// Idade máxima do heartbeat antes de a sessão ser considerada abandonada
	HeartbeatStale time.Duration
	// Intervalo do sweep periódico interno (0 desativa o ticker)
	SweepInterval time.Duration

	// --- Cache de prévia ---

	// TTL das prévias em memória
	PreviaTTL time.Duration
	// Número máximo de prévias retidas simultaneamente
	PreviaCacheSize int

	// --- Graceful shutdown ---

	// Timeout do graceful shutdown do servidor HTTP
	ShutdownTimeout time.Duration
}

// Load carrega a configuração das variáveis de ambiente, valida os
// campos obrigatórios e retorna Config ou erro.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Servidor ---

	// BA_PORT — porta do servidor HTTP (padrão 8080)
	cfg.Port, err = getEnvInt("BA_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("BA_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("BA_PORT: valor %d fora do intervalo válido 1-65535", cfg.Port)
	}

	// BA_LOG_LEVEL — nível de log (padrão info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("BA_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("BA_LOG_LEVEL: %w", err)
	}

	// BA_LOG_FORMAT — formato dos logs (padrão json)
	cfg.LogFormat = getEnvDefault("BA_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("BA_LOG_FORMAT: valor inválido %q, válidos: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// BA_DB_HOST — obrigatório
	cfg.DBHost, err = getEnvRequired("BA_DB_HOST")
	if err != nil {
		return nil, err
	}

	// BA_DB_PORT — porta do PostgreSQL (padrão 5432)
	cfg.DBPort, err = getEnvInt("BA_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("BA_DB_PORT: %w", err)
	}

	// BA_DB_NAME — obrigatório
	cfg.DBName, err = getEnvRequired("BA_DB_NAME")
	if err != nil {
		return nil, err
	}

	// BA_DB_USER — obrigatório
	cfg.DBUser, err = getEnvRequired("BA_DB_USER")
	if err != nil {
		return nil, err
	}

	// BA_DB_PASSWORD — obrigatório
	cfg.DBPassword, err = getEnvRequired("BA_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// BA_DB_SSL_MODE — modo SSL (padrão disable)
	cfg.DBSSLMode = getEnvDefault("BA_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("BA_DB_SSL_MODE: valor inválido %q, válidos: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Cálculo de bonificação ---

	// BA_CLEANUP_TOKEN — obrigatório (protege o endpoint de cleanup)
	cfg.CleanupToken, err = getEnvRequired("BA_CLEANUP_TOKEN")
	if err != nil {
		return nil, err
	}

	// BA_LOCK_LEASE — duração do lease da trava (padrão 2h)
	cfg.LockLease, err = getEnvDuration("BA_LOCK_LEASE", 2*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("BA_LOCK_LEASE: %w", err)
	}

	// BA_HEARTBEAT_STALE — idade máxima do heartbeat (padrão 30m)
	cfg.HeartbeatStale, err = getEnvDuration("BA_HEARTBEAT_STALE", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("BA_HEARTBEAT_STALE: %w", err)
	}

	// BA_SWEEP_INTERVAL — intervalo do sweep interno (padrão 15m)
	cfg.SweepInterval, err = getEnvDuration("BA_SWEEP_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("BA_SWEEP_INTERVAL: %w", err)
	}

	// --- Cache de prévia ---

	// BA_PREVIA_TTL — TTL das prévias (padrão 30m)
	cfg.PreviaTTL, err = getEnvDuration("BA_PREVIA_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("BA_PREVIA_TTL: %w", err)
	}

	// BA_PREVIA_CACHE_SIZE — capacidade do cache de prévias (padrão 128)
	cfg.PreviaCacheSize, err = getEnvInt("BA_PREVIA_CACHE_SIZE", 128)
	if err != nil {
		return nil, fmt.Errorf("BA_PREVIA_CACHE_SIZE: %w", err)
	}
	if cfg.PreviaCacheSize < 1 {
		return nil, fmt.Errorf("BA_PREVIA_CACHE_SIZE: valor %d deve ser positivo", cfg.PreviaCacheSize)
	}

	// --- Graceful shutdown ---

	// BA_SHUTDOWN_TIMEOUT — timeout do graceful shutdown (padrão 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("BA_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BA_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN retorna a string de conexão do PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// SetupLogger configura o slog global a partir da configuração.
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

// --- Funções auxiliares ---

// getEnvRequired retorna o valor da variável de ambiente ou erro se ausente.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: variável de ambiente obrigatória não definida", key)
	}
	return val, nil
}

// getEnvDefault retorna o valor da variável de ambiente ou o padrão.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt retorna o valor inteiro da variável de ambiente ou o padrão.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("inteiro inválido: %q", val)
	}
	return n, nil
}

// getEnvDuration retorna um time.Duration da variável de ambiente ou o padrão.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("duração inválida: %q (use o formato Go: 30s, 15m, 2h)", val)
	}
	return d, nil
}

// parseLogLevel converte a string de nível de log em slog.Level.
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
		return slog.LevelInfo, fmt.Errorf("nível inválido %q, válidos: debug, info, warn, error", level)
	}
}
