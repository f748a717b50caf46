// Pacote repository — camada de acesso a dados PostgreSQL.
// Todas as consultas são SQL puro via pgx, sem ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Erros da camada de repositórios.
var (
	// ErrNotFound — registro não encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrConflict — conflito de unicidade (registro duplicado).
	ErrConflict = errors.New("conflito — registro já existe")
)

// DBTX — interface para execução de consultas SQL.
// É satisfeita tanto por *pgxpool.Pool quanto por pgx.Tx, o que permite
// usar os repositórios dentro e fora de transações.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner permite executar operações em transação.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner cria um TxRunner para gerenciamento de transações.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx executa fn dentro de uma transação.
// Se fn retornar erro, a transação é revertida; caso contrário, é confirmada.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback após commit é no-op

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// isUniqueViolation verifica se o erro é violação de unicidade do PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
