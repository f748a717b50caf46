// Pacote server — servidor HTTP com graceful shutdown.
// Sem TLS: HTTP dentro do cluster, terminação TLS no gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brkseguros/bonifica/internal/api/handlers"
	"github.com/brkseguros/bonifica/internal/api/middleware"
	"github.com/brkseguros/bonifica/internal/config"
)

// Server — servidor HTTP do módulo de bonificação.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New cria o servidor HTTP com as rotas e os middlewares configurados.
func New(cfg *config.Config, logger *slog.Logger, api *handlers.APIHandler) *Server {
	router := chi.NewRouter()

	// Middlewares globais (todas as rotas)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health e métricas — consultados pelo Kubernetes diretamente
	router.Get("/health/live", api.Health.HealthLive)
	router.Get("/health/ready", api.Health.HealthReady)
	router.Get("/metrics", api.Health.GetMetrics)

	router.Route("/api/v1/calculo", func(r chi.Router) {
		r.Post("/iniciar", api.Calculo.IniciarCalculo)
		r.Get("/status", api.Calculo.StatusCalculo)
		r.Post("/cancelar", api.Calculo.CancelarCalculo)
		r.Post("/descontos", api.Calculo.RegistrarDescontos)

		r.Post("/previa", api.Previa.GerarPrevia)
		r.Get("/previa/{execId}", api.Previa.ObterPrevia)

		// Cleanup exige o segredo compartilhado
		r.With(middleware.CleanupAuth(cfg.CleanupToken, logger)).
			Post("/cleanup", api.Calculo.CleanupCalculo)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run sobe o servidor e aguarda o sinal de término (SIGINT, SIGTERM).
// Ao receber o sinal executa o graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Servidor HTTP iniciado",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Sinal de término recebido", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("erro no servidor HTTP: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Executando graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("erro no graceful shutdown: %w", err)
	}

	s.logger.Info("Servidor HTTP encerrado")
	return nil
}
