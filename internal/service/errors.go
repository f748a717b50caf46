// errors.go — erros de negócio da camada de serviço.
package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound — recurso não encontrado.
	ErrNotFound = errors.New("recurso não encontrado")
	// ErrValidacao — erro de validação dos dados de entrada.
	ErrValidacao = errors.New("erro de validação")
	// ErrExecucaoNaoEncontrada — run_id sem sessão ativa correspondente.
	ErrExecucaoNaoEncontrada = errors.New("execução de cálculo não encontrada")
)

// ErrCalculoEmAndamento — a data de referência está travada por outro
// usuário. Carrega o dono e o momento da aquisição para a UI exibir
// "em uso por X desde Y". É a única falha esperada do start.
type ErrCalculoEmAndamento struct {
	LockedBy int64
	LockedAt time.Time
}

func (e *ErrCalculoEmAndamento) Error() string {
	return fmt.Sprintf("cálculo já em andamento: travado pelo usuário %d desde %s",
		e.LockedBy, e.LockedAt.Format(time.RFC3339))
}
