// Ponto de entrada do módulo administrativo de bonificação.
// Carrega a configuração, aplica as migrações, conecta no PostgreSQL,
// monta repositórios, serviços e handlers, sobe o sweep periódico e o
// servidor HTTP com graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/brkseguros/bonifica/internal/api/handlers"
	"github.com/brkseguros/bonifica/internal/config"
	"github.com/brkseguros/bonifica/internal/database"
	"github.com/brkseguros/bonifica/internal/repository"
	"github.com/brkseguros/bonifica/internal/server"
	"github.com/brkseguros/bonifica/internal/service"
)

func main() {
	// 1. Configuração via variáveis de ambiente
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Erro ao carregar a configuração", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Logger
	logger := config.SetupLogger(cfg)
	logger.Info("Módulo de bonificação iniciando",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Migrações do banco
	logger.Info("Aplicando migrações do banco...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Erro nas migrações", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Conexão com o PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Erro ao conectar no PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Repositórios (escopo de pool; os serviços criam os de tx)
	txRunner := repository.NewTxRunner(pool)
	travaRepo := repository.NewTravaRepository(pool)
	sessaoRepo := repository.NewSessaoRepository(pool)
	descontoRepo := repository.NewDescontoRepository(pool)

	// 6. Serviços
	calculoSvc := service.NewCalculoService(
		txRunner, travaRepo, sessaoRepo, descontoRepo,
		cfg.LockLease, cfg.HeartbeatStale,
		logger,
	)
	cacheSvc := service.NewCacheService(cfg.PreviaCacheSize, cfg.PreviaTTL)
	previaSvc := service.NewPreviaService(sessaoRepo, descontoRepo, cacheSvc, logger)
	sweepSvc := service.NewSweepService(calculoSvc, cfg.SweepInterval, logger)

	// 7. Handlers
	pgChecker := database.NewReadinessChecker(pool)
	apiHandler := handlers.NewAPIHandler(
		handlers.NewHealthHandler(pgChecker),
		handlers.NewCalculoHandler(calculoSvc, logger),
		handlers.NewPreviaHandler(previaSvc, logger),
	)

	// 8. Sweep periódico
	sweepSvc.Start(ctx)

	// 9. Servidor HTTP
	srv := server.New(cfg, logger, apiHandler)
	if err := srv.Run(); err != nil {
		logger.Error("Erro no servidor", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 10. Encerramento das tarefas de fundo
	logger.Info("Encerrando tarefas de fundo...")
	sweepSvc.Stop()

	logger.Info("Módulo de bonificação encerrado")
}
