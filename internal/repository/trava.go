package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/brkseguros/bonifica/internal/domain/model"
)

// TravaRepository — acesso à tabela calculo_locks (lease por dt_referencia).
type TravaRepository interface {
	// GetForUpdate lê a trava da data com bloqueio exclusivo de linha
	// (SELECT ... FOR UPDATE). Deve ser chamado dentro de uma transação.
	GetForUpdate(ctx context.Context, dtReferencia time.Time) (*model.Trava, error)
	// TryAcquire tenta adquirir ou renovar a trava da data em uma única
	// instrução atômica. A aquisição só acontece quando a data está livre,
	// a trava existente expirou ou já pertence ao mesmo usuário. Retorna
	// false quando outro usuário segura uma trava viva. Dois starts
	// concorrentes na mesma data serializam no conflito de chave: o
	// perdedor espera o commit do vencedor e então avalia a condição.
	TryAcquire(ctx context.Context, trava *model.Trava) (bool, error)
	// Release remove a trava da data. No-op se não existir.
	Release(ctx context.Context, dtReferencia time.Time) error
	// DeleteExpired remove travas com expires_at no passado,
	// independentemente do estado das sessões. Retorna o total removido.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// travaRepo — implementação de TravaRepository.
type travaRepo struct {
	db DBTX
}

// NewTravaRepository cria o repositório de travas de cálculo.
func NewTravaRepository(db DBTX) TravaRepository {
	return &travaRepo{db: db}
}

func (r *travaRepo) GetForUpdate(ctx context.Context, dtReferencia time.Time) (*model.Trava, error) {
	query := `
		SELECT dt_referencia, locked_by, locked_at, expires_at
		FROM calculo_locks
		WHERE dt_referencia = $1
		FOR UPDATE`

	t := &model.Trava{}
	err := r.db.QueryRow(ctx, query, dtReferencia).Scan(
		&t.DtReferencia, &t.LockedBy, &t.LockedAt, &t.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("erro ao ler trava: %w", err)
	}
	return t, nil
}

func (r *travaRepo) TryAcquire(ctx context.Context, trava *model.Trava) (bool, error) {
	// O DO UPDATE condicional mantém a linha bloqueada mesmo quando a
	// condição falha, então uma leitura subsequente na mesma transação
	// enxerga a trava vencedora de forma estável.
	query := `
		INSERT INTO calculo_locks (dt_referencia, locked_by, locked_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dt_referencia) DO UPDATE
		SET locked_by = EXCLUDED.locked_by,
			locked_at = EXCLUDED.locked_at,
			expires_at = EXCLUDED.expires_at
		WHERE calculo_locks.locked_by = EXCLUDED.locked_by
			OR calculo_locks.expires_at <= EXCLUDED.locked_at`

	tag, err := r.db.Exec(ctx, query,
		trava.DtReferencia, trava.LockedBy, trava.LockedAt, trava.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("erro ao adquirir trava: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *travaRepo) Release(ctx context.Context, dtReferencia time.Time) error {
	_, err := r.db.Exec(ctx, `DELETE FROM calculo_locks WHERE dt_referencia = $1`, dtReferencia)
	if err != nil {
		return fmt.Errorf("erro ao liberar trava: %w", err)
	}
	return nil
}

func (r *travaRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM calculo_locks WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("erro ao remover travas expiradas: %w", err)
	}
	return tag.RowsAffected(), nil
}
