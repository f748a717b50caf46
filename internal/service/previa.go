// previa.go — geração e consulta de prévias de cálculo.
//
// A prévia é um resumo agregado das linhas staging de uma execução ativa,
// identificada por um exec_id próprio e guardada apenas no cache
// in-process. A prévia nunca toca linhas finalizadas.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brkseguros/bonifica/internal/domain/model"
	"github.com/brkseguros/bonifica/internal/repository"
)

// PreviaService — gera e serve prévias do staging de uma execução.
type PreviaService struct {
	sessoes   repository.SessaoRepository
	descontos repository.DescontoRepository
	cache     *CacheService
	logger    *slog.Logger
}

// NewPreviaService cria o serviço de prévias.
func NewPreviaService(
	sessoes repository.SessaoRepository,
	descontos repository.DescontoRepository,
	cache *CacheService,
	logger *slog.Logger,
) *PreviaService {
	return &PreviaService{
		sessoes:   sessoes,
		descontos: descontos,
		cache:     cache,
		logger:    logger.With(slog.String("component", "previa")),
	}
}

// Gerar produz a prévia do staging da execução e a guarda no cache.
// Retorna ErrExecucaoNaoEncontrada quando o run_id não tem sessão ativa.
func (s *PreviaService) Gerar(ctx context.Context, runID string) (*model.Previa, error) {
	if err := validarRunID(runID); err != nil {
		return nil, err
	}

	sessao, err := s.sessoes.GetByRunID(ctx, runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExecucaoNaoEncontrada
		}
		return nil, err
	}

	linhas, err := s.descontos.ResumoStaging(ctx, runID)
	if err != nil {
		return nil, err
	}

	previa := &model.Previa{
		ExecID:       uuid.NewString(),
		RunID:        runID,
		DtReferencia: sessao.DtReferencia,
		GeradaEm:     time.Now().UTC(),
		Linhas:       linhas,
	}
	for _, l := range linhas {
		previa.Quantidade += l.Quantidade
		previa.ValorTotal += l.ValorTotal
	}

	s.cache.Set(previa.ExecID, previa)

	s.logger.Info("Prévia gerada",
		slog.String("exec_id", previa.ExecID),
		slog.String("run_id", runID),
		slog.Int("quantidade", previa.Quantidade),
	)
	return previa, nil
}

// Obter retorna a prévia do cache pelo exec_id.
// Retorna ErrNotFound para exec_id desconhecido ou prévia expirada.
func (s *PreviaService) Obter(execID string) (*model.Previa, error) {
	if execID == "" {
		return nil, fmt.Errorf("%w: exec_id é obrigatório", ErrValidacao)
	}
	previa, ok := s.cache.Get(execID)
	if !ok {
		return nil, ErrNotFound
	}
	return previa, nil
}

// Remover descarta a prévia do cache. No-op para exec_id desconhecido.
func (s *PreviaService) Remover(execID string) {
	s.cache.Delete(execID)
}
