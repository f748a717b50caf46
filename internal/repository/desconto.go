package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/brkseguros/bonifica/internal/domain/model"
)

// DescontoRepository — acesso à tabela descontos.
// O coordenador de cálculo só enxerga linhas com status 'staging': o
// predicado de status em todas as mutações garante que linhas finalizadas
// jamais sejam alteradas por este repositório.
type DescontoRepository interface {
	// InsertStaging insere em lote as linhas produzidas pelo worker de
	// cálculo, sempre com status 'staging'. Retorna o total inserido.
	InsertStaging(ctx context.Context, descontos []*model.Desconto) (int, error)
	// CountStaging conta as linhas staging da execução.
	CountStaging(ctx context.Context, runID string) (int, error)
	// DeleteStaging remove as linhas staging da execução.
	// Retorna o total removido. Linhas finalizadas nunca são afetadas.
	DeleteStaging(ctx context.Context, runID string) (int64, error)
	// FindDtReferencia captura a dt_referencia a partir de qualquer linha
	// staging da execução. Usada como fallback quando a sessão já foi
	// removida mas a trava e/ou as linhas staging permanecem.
	FindDtReferencia(ctx context.Context, runID string) (*time.Time, error)
	// ListStaging retorna as linhas staging da execução.
	ListStaging(ctx context.Context, runID string) ([]*model.Desconto, error)
	// ResumoStaging agrega as linhas staging da execução por corretor.
	ResumoStaging(ctx context.Context, runID string) ([]*model.PreviaLinha, error)
}

// descontoRepo — implementação de DescontoRepository.
type descontoRepo struct {
	db DBTX
}

// NewDescontoRepository cria o repositório de descontos.
func NewDescontoRepository(db DBTX) DescontoRepository {
	return &descontoRepo{db: db}
}

func (r *descontoRepo) InsertStaging(ctx context.Context, descontos []*model.Desconto) (int, error) {
	if len(descontos) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO descontos (run_id, corretor_id, supervisor_id, dt_referencia, valor_desconto, status)
		VALUES ($1, $2, $3, $4, $5, 'staging')
		RETURNING id, created_at`

	total := 0
	for _, d := range descontos {
		err := r.db.QueryRow(ctx, query,
			d.RunID, d.CorretorID, d.SupervisorID, d.DtReferencia, d.ValorDesconto,
		).Scan(&d.ID, &d.CreatedAt)
		if err != nil {
			return total, fmt.Errorf("erro ao inserir desconto staging: %w", err)
		}
		d.Status = model.StatusStaging
		total++
	}
	return total, nil
}

func (r *descontoRepo) CountStaging(ctx context.Context, runID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM descontos WHERE run_id = $1 AND status = 'staging'`,
		runID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("erro ao contar descontos staging: %w", err)
	}
	return count, nil
}

func (r *descontoRepo) DeleteStaging(ctx context.Context, runID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM descontos WHERE run_id = $1 AND status = 'staging'`,
		runID,
	)
	if err != nil {
		return 0, fmt.Errorf("erro ao remover descontos staging: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *descontoRepo) FindDtReferencia(ctx context.Context, runID string) (*time.Time, error) {
	var dt time.Time
	err := r.db.QueryRow(ctx,
		`SELECT dt_referencia FROM descontos WHERE run_id = $1 AND status = 'staging' LIMIT 1`,
		runID,
	).Scan(&dt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("erro ao capturar dt_referencia: %w", err)
	}
	return &dt, nil
}

func (r *descontoRepo) ListStaging(ctx context.Context, runID string) ([]*model.Desconto, error) {
	query := `
		SELECT id, run_id, corretor_id, supervisor_id, dt_referencia,
			valor_desconto, status, is_active, created_at
		FROM descontos
		WHERE run_id = $1 AND status = 'staging'
		ORDER BY corretor_id, id`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar descontos staging: %w", err)
	}
	defer rows.Close()

	var result []*model.Desconto
	for rows.Next() {
		d := &model.Desconto{}
		if err := rows.Scan(
			&d.ID, &d.RunID, &d.CorretorID, &d.SupervisorID, &d.DtReferencia,
			&d.ValorDesconto, &d.Status, &d.IsActive, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("erro ao ler desconto staging: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *descontoRepo) ResumoStaging(ctx context.Context, runID string) ([]*model.PreviaLinha, error) {
	query := `
		SELECT corretor_id, COUNT(*), COALESCE(SUM(valor_desconto), 0)
		FROM descontos
		WHERE run_id = $1 AND status = 'staging'
		GROUP BY corretor_id
		ORDER BY corretor_id`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("erro ao resumir descontos staging: %w", err)
	}
	defer rows.Close()

	var result []*model.PreviaLinha
	for rows.Next() {
		l := &model.PreviaLinha{}
		if err := rows.Scan(&l.CorretorID, &l.Quantidade, &l.ValorTotal); err != nil {
			return nil, fmt.Errorf("erro ao ler resumo staging: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
