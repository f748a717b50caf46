// calculo.go — coordenador das execuções de cálculo de bonificação.
//
// CalculoService implementa o protocolo de exclusão mútua por dt_referencia:
//   - Iniciar: adquire/renova o lease da data com upsert condicional
//     atômico, gera o run_id e registra a sessão — tudo em uma transação.
//   - Status: renova o heartbeat e reporta o progresso do staging.
//   - Cancelar: descarta as linhas staging, libera a trava e remove a
//     sessão. Idempotente.
//   - Sweep: recupera execuções abandonadas (heartbeat velho) e travas
//     cuja expiração nominal já passou.
//
// Todo o estado de coordenação vive no PostgreSQL; várias instâncias do
// serviço podem rodar simultaneamente.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brkseguros/bonifica/internal/domain/model"
	"github.com/brkseguros/bonifica/internal/repository"
)

// Métricas Prometheus do coordenador de cálculo.
var (
	calculosIniciados = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bonifica_calculos_iniciados_total",
		Help: "Total de execuções de cálculo iniciadas.",
	})
	calculosConflitos = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bonifica_calculos_conflitos_total",
		Help: "Total de starts rejeitados por trava de outro usuário.",
	})
	descontosRemovidos = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bonifica_descontos_staging_removidos_total",
		Help: "Total de linhas staging removidas, por origem da limpeza.",
	}, []string{"origem"}) // origem: cancel, sweep
	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bonifica_sweep_duration_seconds",
		Help:    "Duração do sweep de execuções abandonadas.",
		Buckets: prometheus.DefBuckets,
	})
)

// dtReferenciaRegex — formato exigido da data de referência.
var dtReferenciaRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// StatusCalculo — resposta da consulta de status de uma execução.
type StatusCalculo struct {
	RunID        string
	StagingCount int
	// Sessao é nil quando a execução não tem mais sessão registrada
	Sessao   *model.Sessao
	IsActive bool
}

// ResultadoSweep — totais de uma passada do sweep.
type ResultadoSweep struct {
	// SessoesRemovidas — sessões abandonadas limpas nesta passada
	SessoesRemovidas int
	// TotalRemovidos — linhas staging descartadas
	TotalRemovidos int64
	// TravasExpiradas — travas removidas pela segunda etapa (expires_at)
	TravasExpiradas int64
}

// CalculoService — coordenador das execuções de cálculo.
type CalculoService struct {
	txRunner  *repository.TxRunner
	travas    repository.TravaRepository
	sessoes   repository.SessaoRepository
	descontos repository.DescontoRepository

	lockLease      time.Duration
	heartbeatStale time.Duration
	logger         *slog.Logger
}

// NewCalculoService cria o coordenador de cálculo.
// Os repositórios recebidos operam sobre o pool; dentro das transações o
// serviço cria repositórios com escopo de tx.
func NewCalculoService(
	txRunner *repository.TxRunner,
	travas repository.TravaRepository,
	sessoes repository.SessaoRepository,
	descontos repository.DescontoRepository,
	lockLease time.Duration,
	heartbeatStale time.Duration,
	logger *slog.Logger,
) *CalculoService {
	return &CalculoService{
		txRunner:       txRunner,
		travas:         travas,
		sessoes:        sessoes,
		descontos:      descontos,
		lockLease:      lockLease,
		heartbeatStale: heartbeatStale,
		logger:         logger.With(slog.String("component", "calculo")),
	}
}

// ParseDtReferencia valida e converte a data de referência (YYYY-MM-DD).
func ParseDtReferencia(dtReferencia string) (time.Time, error) {
	if !dtReferenciaRegex.MatchString(dtReferencia) {
		return time.Time{}, fmt.Errorf("%w: dt_referencia deve estar no formato YYYY-MM-DD", ErrValidacao)
	}
	dt, err := time.ParseInLocation("2006-01-02", dtReferencia, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dt_referencia inválida: %q", ErrValidacao, dtReferencia)
	}
	return dt, nil
}

// validarRunID rejeita run_id vazio ou fora do formato UUID antes de
// qualquer acesso ao banco. As colunas run_id são UUID: um valor
// malformado estouraria como erro de cast do PostgreSQL.
func validarRunID(runID string) error {
	if runID == "" {
		return fmt.Errorf("%w: run_id é obrigatório", ErrValidacao)
	}
	if err := uuid.Validate(runID); err != nil {
		return fmt.Errorf("%w: run_id deve ser um UUID: %q", ErrValidacao, runID)
	}
	return nil
}

// Iniciar inicia uma execução de cálculo para a data de referência.
// Retorna o run_id gerado ou *ErrCalculoEmAndamento se a data estiver
// travada por outro usuário.
func (s *CalculoService) Iniciar(ctx context.Context, dtReferencia string, usuarioID int64, sessionID string) (string, error) {
	if usuarioID <= 0 {
		return "", fmt.Errorf("%w: usuario_id é obrigatório", ErrValidacao)
	}
	if sessionID == "" {
		return "", fmt.Errorf("%w: session_id é obrigatório", ErrValidacao)
	}
	dt, err := ParseDtReferencia(dtReferencia)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()

	err = s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
		travas := repository.NewTravaRepository(tx)
		sessoes := repository.NewSessaoRepository(tx)

		now := time.Now().UTC()

		// Aquisição atômica: starts concorrentes na mesma data serializam
		// no conflito de chave da trava, mesmo quando a linha ainda não
		// existe.
		adquirida, err := travas.TryAcquire(ctx, &model.Trava{
			DtReferencia: dt,
			LockedBy:     usuarioID,
			LockedAt:     now,
			ExpiresAt:    now.Add(s.lockLease),
		})
		if err != nil {
			return err
		}
		if !adquirida {
			// A linha perdedora fica bloqueada pela tentativa, então a
			// leitura da trava vencedora é estável dentro desta transação
			trava, err := travas.GetForUpdate(ctx, dt)
			if err != nil {
				return err
			}
			return &ErrCalculoEmAndamento{LockedBy: trava.LockedBy, LockedAt: trava.LockedAt}
		}

		return sessoes.Upsert(ctx, &model.Sessao{
			SessionID:    sessionID,
			RunID:        runID,
			UsuarioID:    usuarioID,
			DtReferencia: dt,
		})
	})
	if err != nil {
		var emAndamento *ErrCalculoEmAndamento
		if errors.As(err, &emAndamento) {
			calculosConflitos.Inc()
			s.logger.Warn("Start rejeitado: data travada por outro usuário",
				slog.String("dt_referencia", dtReferencia),
				slog.Int64("locked_by", emAndamento.LockedBy),
			)
		}
		return "", err
	}

	calculosIniciados.Inc()
	s.logger.Info("Execução de cálculo iniciada",
		slog.String("run_id", runID),
		slog.String("dt_referencia", dtReferencia),
		slog.Int64("usuario_id", usuarioID),
		slog.String("session_id", sessionID),
	)
	return runID, nil
}

// Status renova o heartbeat da execução e retorna o progresso do staging.
// O touch é incondicional: zero linhas afetadas não é erro, então a
// consulta é segura mesmo para execuções já encerradas.
func (s *CalculoService) Status(ctx context.Context, runID string) (*StatusCalculo, error) {
	if err := validarRunID(runID); err != nil {
		return nil, err
	}

	if err := s.sessoes.Touch(ctx, runID, time.Now().UTC()); err != nil {
		return nil, err
	}

	count, err := s.descontos.CountStaging(ctx, runID)
	if err != nil {
		return nil, err
	}

	sessao, err := s.sessoes.GetByRunID(ctx, runID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	return &StatusCalculo{
		RunID:        runID,
		StagingCount: count,
		Sessao:       sessao,
		IsActive:     sessao != nil,
	}, nil
}

// RegistrarDescontos insere as linhas staging produzidas pelo worker de
// cálculo para uma execução ativa. O run_id precisa ter sessão registrada;
// a dt_referencia das linhas é a da sessão.
func (s *CalculoService) RegistrarDescontos(ctx context.Context, runID string, itens []*model.Desconto) (int, error) {
	if err := validarRunID(runID); err != nil {
		return 0, err
	}
	if len(itens) == 0 {
		return 0, fmt.Errorf("%w: lista de descontos vazia", ErrValidacao)
	}
	for _, d := range itens {
		if d.CorretorID <= 0 {
			return 0, fmt.Errorf("%w: corretor_id é obrigatório", ErrValidacao)
		}
		if d.ValorDesconto < 0 {
			return 0, fmt.Errorf("%w: valor_desconto não pode ser negativo", ErrValidacao)
		}
	}

	sessao, err := s.sessoes.GetByRunID(ctx, runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrExecucaoNaoEncontrada
		}
		return 0, err
	}

	for _, d := range itens {
		rid := runID
		d.RunID = &rid
		d.DtReferencia = sessao.DtReferencia
	}

	total, err := s.descontos.InsertStaging(ctx, itens)
	if err != nil {
		return total, err
	}

	s.logger.Info("Descontos staging registrados",
		slog.String("run_id", runID),
		slog.Int("total", total),
	)
	return total, nil
}

// Cancelar descarta as linhas staging da execução, libera a trava e remove
// a sessão, em uma única transação. Idempotente: a segunda chamada para o
// mesmo run_id retorna zero removidos.
func (s *CalculoService) Cancelar(ctx context.Context, runID string) (int64, error) {
	if err := validarRunID(runID); err != nil {
		return 0, err
	}

	var removidos int64
	err := s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
		var err error
		removidos, err = s.limparExecucao(ctx, tx, runID)
		return err
	})
	if err != nil {
		return 0, err
	}

	descontosRemovidos.WithLabelValues("cancel").Add(float64(removidos))
	s.logger.Info("Execução de cálculo cancelada",
		slog.String("run_id", runID),
		slog.Int64("total_removidos", removidos),
	)
	return removidos, nil
}

// limparExecucao executa a limpeza de uma execução dentro da transação:
// remove as linhas staging, libera a trava e apaga a sessão.
// A dt_referencia da trava é resolvida pela sessão ou, se a sessão já foi
// removida por outro caminho, pela dt_referencia capturada das linhas
// staging antes da remoção.
func (s *CalculoService) limparExecucao(ctx context.Context, tx pgx.Tx, runID string) (int64, error) {
	travas := repository.NewTravaRepository(tx)
	sessoes := repository.NewSessaoRepository(tx)
	descontos := repository.NewDescontoRepository(tx)

	// Captura o fallback antes de apagar qualquer coisa
	dtFallback, err := descontos.FindDtReferencia(ctx, runID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return 0, err
	}

	removidos, err := descontos.DeleteStaging(ctx, runID)
	if err != nil {
		return 0, err
	}

	// Sessão primeiro; fallback cobre sessão já removida com trava órfã
	var dt *time.Time
	sessao, err := sessoes.GetByRunID(ctx, runID)
	switch {
	case err == nil:
		dt = &sessao.DtReferencia
	case errors.Is(err, repository.ErrNotFound):
		dt = dtFallback
	default:
		return 0, err
	}

	if dt != nil {
		if err := travas.Release(ctx, *dt); err != nil {
			return 0, err
		}
	}

	if err := sessoes.DeleteByRunID(ctx, runID); err != nil {
		return 0, err
	}

	return removidos, nil
}

// Sweep recupera recursos de execuções abandonadas em duas etapas:
//  1. Sessões com heartbeat mais velho que o limite — mesma limpeza do
//     cancel, uma transação por sessão.
//  2. Travas com expiração nominal no passado, independentemente de
//     sessão — fecha a janela em que uma trava sobrevive à sua sessão.
func (s *CalculoService) Sweep(ctx context.Context) (*ResultadoSweep, error) {
	start := time.Now()
	cutoff := time.Now().UTC().Add(-s.heartbeatStale)

	stale, err := s.sessoes.ListStale(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar sessões abandonadas: %w", err)
	}

	resultado := &ResultadoSweep{}
	for _, sessao := range stale {
		var removidos int64
		err := s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
			var err error
			removidos, err = s.limparExecucao(ctx, tx, sessao.RunID)
			return err
		})
		if err != nil {
			// Falha em uma sessão não impede as demais
			s.logger.Error("Erro ao limpar execução abandonada",
				slog.String("run_id", sessao.RunID),
				slog.String("error", err.Error()),
			)
			continue
		}
		resultado.SessoesRemovidas++
		resultado.TotalRemovidos += removidos

		s.logger.Info("Execução abandonada recuperada",
			slog.String("run_id", sessao.RunID),
			slog.String("session_id", sessao.SessionID),
			slog.Time("last_heartbeat", sessao.LastHeartbeat),
			slog.Int64("descontos_removidos", removidos),
		)
	}

	// Segunda etapa: travas expiradas sem sessão correspondente
	expiradas, err := s.travas.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("erro ao remover travas expiradas: %w", err)
	}
	resultado.TravasExpiradas = expiradas

	descontosRemovidos.WithLabelValues("sweep").Add(float64(resultado.TotalRemovidos))
	sweepDuration.Observe(time.Since(start).Seconds())

	if resultado.SessoesRemovidas > 0 || resultado.TravasExpiradas > 0 {
		s.logger.Info("Sweep concluído",
			slog.Int("sessoes_removidas", resultado.SessoesRemovidas),
			slog.Int64("descontos_removidos", resultado.TotalRemovidos),
			slog.Int64("travas_expiradas", resultado.TravasExpiradas),
		)
	}
	return resultado, nil
}
