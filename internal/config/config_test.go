package config

import (
	"log/slog"
	"testing"
	"time"
)

// setEnvs define variáveis de ambiente com limpeza automática.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs retorna o conjunto mínimo de variáveis obrigatórias.
func minimalEnvs() map[string]string {
	return map[string]string{
		"BA_DB_HOST":       "localhost",
		"BA_DB_NAME":       "bonifica",
		"BA_DB_USER":       "bonifica",
		"BA_DB_PASSWORD":   "secret",
		"BA_CLEANUP_TOKEN": "token-de-teste",
	}
}

func TestLoad_ConfiguracaoMinima(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() retornou erro: %v", err)
	}

	// Verifica os valores padrão
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, esperado 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, esperado Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, esperado json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, esperado 5432", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, esperado disable", cfg.DBSSLMode)
	}
	if cfg.LockLease != 2*time.Hour {
		t.Errorf("LockLease = %v, esperado 2h", cfg.LockLease)
	}
	if cfg.HeartbeatStale != 30*time.Minute {
		t.Errorf("HeartbeatStale = %v, esperado 30m", cfg.HeartbeatStale)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Errorf("SweepInterval = %v, esperado 15m", cfg.SweepInterval)
	}
	if cfg.PreviaTTL != 30*time.Minute {
		t.Errorf("PreviaTTL = %v, esperado 30m", cfg.PreviaTTL)
	}
	if cfg.PreviaCacheSize != 128 {
		t.Errorf("PreviaCacheSize = %d, esperado 128", cfg.PreviaCacheSize)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, esperado 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_VariaveisObrigatorias(t *testing.T) {
	obrigatorias := []string{
		"BA_DB_HOST", "BA_DB_NAME", "BA_DB_USER", "BA_DB_PASSWORD", "BA_CLEANUP_TOKEN",
	}

	for _, faltante := range obrigatorias {
		t.Run(faltante, func(t *testing.T) {
			envs := minimalEnvs()
			envs[faltante] = ""
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("Load() sem %s deveria falhar", faltante)
			}
		})
	}
}

func TestLoad_ValoresCustomizados(t *testing.T) {
	envs := minimalEnvs()
	envs["BA_PORT"] = "9090"
	envs["BA_LOG_LEVEL"] = "debug"
	envs["BA_LOG_FORMAT"] = "text"
	envs["BA_LOCK_LEASE"] = "1h"
	envs["BA_HEARTBEAT_STALE"] = "10m"
	envs["BA_SWEEP_INTERVAL"] = "5m"
	envs["BA_PREVIA_TTL"] = "15m"
	envs["BA_PREVIA_CACHE_SIZE"] = "32"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() retornou erro: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, esperado 9090", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, esperado Debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, esperado text", cfg.LogFormat)
	}
	if cfg.LockLease != time.Hour {
		t.Errorf("LockLease = %v, esperado 1h", cfg.LockLease)
	}
	if cfg.HeartbeatStale != 10*time.Minute {
		t.Errorf("HeartbeatStale = %v, esperado 10m", cfg.HeartbeatStale)
	}
	if cfg.PreviaCacheSize != 32 {
		t.Errorf("PreviaCacheSize = %d, esperado 32", cfg.PreviaCacheSize)
	}
}

// TestLoad_SweepDesativado verifica que intervalo zero é aceito: o valor
// desativa o sweep periódico no serviço.
func TestLoad_SweepDesativado(t *testing.T) {
	envs := minimalEnvs()
	envs["BA_SWEEP_INTERVAL"] = "0"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() retornou erro: %v", err)
	}
	if cfg.SweepInterval != 0 {
		t.Errorf("SweepInterval = %v, esperado 0", cfg.SweepInterval)
	}
}

func TestLoad_ValoresInvalidos(t *testing.T) {
	casos := []struct {
		nome  string
		chave string
		valor string
	}{
		{"porta não numérica", "BA_PORT", "abc"},
		{"porta fora do intervalo", "BA_PORT", "70000"},
		{"nível de log inválido", "BA_LOG_LEVEL", "verbose"},
		{"formato de log inválido", "BA_LOG_FORMAT", "xml"},
		{"modo SSL inválido", "BA_DB_SSL_MODE", "maybe"},
		{"lease inválido", "BA_LOCK_LEASE", "duas horas"},
		{"cache size zero", "BA_PREVIA_CACHE_SIZE", "0"},
	}

	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			envs := minimalEnvs()
			envs[c.chave] = c.valor
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("Load() com %s=%q deveria falhar", c.chave, c.valor)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost: "db.local", DBPort: 5433, DBName: "bonifica",
		DBUser: "app", DBPassword: "s3cr3t", DBSSLMode: "require",
	}

	dsn := cfg.DatabaseDSN()
	esperado := "host=db.local port=5433 dbname=bonifica user=app password=s3cr3t sslmode=require"
	if dsn != esperado {
		t.Errorf("DatabaseDSN() = %q, esperado %q", dsn, esperado)
	}
}
