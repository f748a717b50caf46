// Pacote model — entidades de domínio do módulo de bonificação.
package model

import "time"

// Status possíveis de um desconto.
const (
	// StatusStaging — linha especulativa de uma execução em andamento.
	StatusStaging = "staging"
	// StatusFinalizado — linha permanente, nunca tocada pelo coordenador.
	StatusFinalizado = "finalizado"
)

// Trava — lease exclusivo de cálculo para uma data de referência.
// Armazenada na tabela calculo_locks.
type Trava struct {
	// DtReferencia — data de referência protegida (escopo da exclusão mútua)
	DtReferencia time.Time
	// LockedBy — usuário dono do lease
	LockedBy int64
	// LockedAt — momento da aquisição
	LockedAt time.Time
	// ExpiresAt — expiração nominal do lease (consultiva; a recuperação
	// autoritativa é feita pelo sweep de heartbeat)
	ExpiresAt time.Time
}

// Expirada informa se o lease já passou da expiração nominal.
func (t *Trava) Expirada(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Sessao — execução de cálculo em andamento, uma por sessão de UI.
// Armazenada na tabela calculo_sessoes.
type Sessao struct {
	// SessionID — identificador fornecido pela UI (chave da tabela)
	SessionID string
	// RunID — identificador opaco da execução (UUID v4)
	RunID string
	// UsuarioID — usuário que iniciou o cálculo
	UsuarioID int64
	// DtReferencia — mesma data da trava que protege a execução
	DtReferencia time.Time
	// LastHeartbeat — atualizado a cada consulta de status
	LastHeartbeat time.Time
	// CreatedAt — momento da criação
	CreatedAt time.Time
}

// Desconto — linha de desconto de bonificação (staging ou finalizada).
// Armazenada na tabela descontos.
type Desconto struct {
	ID int64
	// RunID — execução que produziu a linha (nil para linhas legadas)
	RunID *string
	// CorretorID — corretor beneficiário do desconto
	CorretorID int64
	// SupervisorID — supervisor associado (opcional)
	SupervisorID *int64
	// DtReferencia — data de referência do cálculo
	DtReferencia time.Time
	// ValorDesconto — valor em reais, duas casas decimais
	ValorDesconto float64
	// Status — staging ou finalizado
	Status string
	// IsActive — linha finalizada contabilizada nos totais
	IsActive  bool
	CreatedAt time.Time
}

// PreviaLinha — agregado por corretor de uma prévia de cálculo.
type PreviaLinha struct {
	CorretorID int64
	Quantidade int
	ValorTotal float64
}

// Previa — resumo dos descontos em staging de uma execução, retido em
// memória para o pedido de exportação subsequente.
type Previa struct {
	ExecID       string
	RunID        string
	DtReferencia time.Time
	Quantidade   int
	ValorTotal   float64
	Linhas       []*PreviaLinha
	GeradaEm     time.Time
}
