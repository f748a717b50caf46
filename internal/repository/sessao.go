package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/brkseguros/bonifica/internal/domain/model"
)

// SessaoRepository — acesso à tabela calculo_sessoes (liveness das execuções).
type SessaoRepository interface {
	// Upsert cria a sessão ou, se session_id já existir, substitui o
	// run_id e reinicia o heartbeat. A sessão de UI sempre aponta para a
	// execução mais recente.
	Upsert(ctx context.Context, sessao *model.Sessao) error
	// Touch atualiza last_heartbeat da sessão do run_id.
	// Zero linhas afetadas não é erro.
	Touch(ctx context.Context, runID string, now time.Time) error
	// GetByRunID retorna a sessão da execução.
	GetByRunID(ctx context.Context, runID string) (*model.Sessao, error)
	// GetBySessionID retorna a sessão pelo identificador de UI.
	GetBySessionID(ctx context.Context, sessionID string) (*model.Sessao, error)
	// DeleteByRunID remove a sessão da execução. No-op se não existir.
	DeleteByRunID(ctx context.Context, runID string) error
	// ListStale retorna as sessões com heartbeat anterior ao corte.
	ListStale(ctx context.Context, cutoff time.Time) ([]*model.Sessao, error)
}

// sessaoRepo — implementação de SessaoRepository.
type sessaoRepo struct {
	db DBTX
}

// NewSessaoRepository cria o repositório de sessões de cálculo.
func NewSessaoRepository(db DBTX) SessaoRepository {
	return &sessaoRepo{db: db}
}

func (r *sessaoRepo) Upsert(ctx context.Context, sessao *model.Sessao) error {
	query := `
		INSERT INTO calculo_sessoes (session_id, run_id, usuario_id, dt_referencia, last_heartbeat)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (session_id) DO UPDATE
		SET run_id = EXCLUDED.run_id,
			usuario_id = EXCLUDED.usuario_id,
			dt_referencia = EXCLUDED.dt_referencia,
			last_heartbeat = now()
		RETURNING last_heartbeat, created_at`

	err := r.db.QueryRow(ctx, query,
		sessao.SessionID, sessao.RunID, sessao.UsuarioID, sessao.DtReferencia,
	).Scan(&sessao.LastHeartbeat, &sessao.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// run_id é UNIQUE; colisão de UUID v4 é tratada como conflito
			return fmt.Errorf("%w: run_id já registrado", ErrConflict)
		}
		return fmt.Errorf("erro ao gravar sessão: %w", err)
	}
	return nil
}

func (r *sessaoRepo) Touch(ctx context.Context, runID string, now time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE calculo_sessoes SET last_heartbeat = $2 WHERE run_id = $1`,
		runID, now,
	)
	if err != nil {
		return fmt.Errorf("erro ao atualizar heartbeat: %w", err)
	}
	return nil
}

func (r *sessaoRepo) GetByRunID(ctx context.Context, runID string) (*model.Sessao, error) {
	return r.get(ctx, `run_id`, runID)
}

func (r *sessaoRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Sessao, error) {
	return r.get(ctx, `session_id`, sessionID)
}

func (r *sessaoRepo) get(ctx context.Context, coluna, valor string) (*model.Sessao, error) {
	query := fmt.Sprintf(`
		SELECT session_id, run_id, usuario_id, dt_referencia, last_heartbeat, created_at
		FROM calculo_sessoes
		WHERE %s = $1`, coluna)

	s := &model.Sessao{}
	err := r.db.QueryRow(ctx, query, valor).Scan(
		&s.SessionID, &s.RunID, &s.UsuarioID, &s.DtReferencia, &s.LastHeartbeat, &s.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("erro ao ler sessão: %w", err)
	}
	return s, nil
}

func (r *sessaoRepo) DeleteByRunID(ctx context.Context, runID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM calculo_sessoes WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("erro ao remover sessão: %w", err)
	}
	return nil
}

func (r *sessaoRepo) ListStale(ctx context.Context, cutoff time.Time) ([]*model.Sessao, error) {
	query := `
		SELECT session_id, run_id, usuario_id, dt_referencia, last_heartbeat, created_at
		FROM calculo_sessoes
		WHERE last_heartbeat < $1
		ORDER BY last_heartbeat`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar sessões abandonadas: %w", err)
	}
	defer rows.Close()

	var result []*model.Sessao
	for rows.Next() {
		s := &model.Sessao{}
		if err := rows.Scan(
			&s.SessionID, &s.RunID, &s.UsuarioID, &s.DtReferencia, &s.LastHeartbeat, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("erro ao ler sessão abandonada: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
