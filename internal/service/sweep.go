// sweep.go — serviço de sweep periódico de execuções abandonadas.
//
// SweepService roda uma goroutine com ticker (BA_SWEEP_INTERVAL) que chama
// CalculoService.Sweep a cada intervalo. A primeira passada acontece logo
// no start, para não deixar lixo de um restart esperando o primeiro tick.
package service

import (
	"context"
	"log/slog"
	"time"
)

// SweepService — serviço de fundo que dispara o sweep periódico.
type SweepService struct {
	calculo  *CalculoService
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweepService cria o serviço de sweep periódico.
func NewSweepService(calculo *CalculoService, interval time.Duration, logger *slog.Logger) *SweepService {
	return &SweepService{
		calculo:  calculo,
		interval: interval,
		logger:   logger.With(slog.String("component", "sweep")),
	}
}

// Start inicia a goroutine de sweep periódico.
// Chamado uma vez no start da aplicação. Intervalo não positivo desativa
// o sweep interno (resta o endpoint de cleanup manual).
func (s *SweepService) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Sweep periódico desativado",
			slog.String("interval", s.interval.String()),
		)
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Sweep periódico de execuções abandonadas iniciado",
			slog.String("interval", s.interval.String()),
		)

		// Passada inicial: limpa restos de um eventual restart
		s.run(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Sweep periódico encerrado")
				return
			case <-ticker.C:
				s.run(ctx)
			}
		}
	}()
}

// Stop encerra a goroutine e aguarda a finalização.
func (s *SweepService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

func (s *SweepService) run(ctx context.Context) {
	if _, err := s.calculo.Sweep(ctx); err != nil {
		s.logger.Error("Erro no sweep periódico", slog.String("error", err.Error()))
	}
}
