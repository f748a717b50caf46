// calculo.go — handlers das operações de cálculo de bonificação.
// POST /api/v1/calculo/iniciar   — inicia uma execução (adquire a trava)
// GET  /api/v1/calculo/status    — progresso + heartbeat da execução
// POST /api/v1/calculo/cancelar  — cancela a execução e limpa o staging
// POST /api/v1/calculo/cleanup   — sweep manual (segredo compartilhado)
// POST /api/v1/calculo/descontos — registra linhas staging do worker
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/brkseguros/bonifica/internal/api/errors"
	"github.com/brkseguros/bonifica/internal/domain/model"
	"github.com/brkseguros/bonifica/internal/service"
)

// CalculoHandler — handlers das operações de cálculo.
type CalculoHandler struct {
	calculo *service.CalculoService
	logger  *slog.Logger
}

// NewCalculoHandler cria o handler das operações de cálculo.
func NewCalculoHandler(calculo *service.CalculoService, logger *slog.Logger) *CalculoHandler {
	return &CalculoHandler{
		calculo: calculo,
		logger:  logger.With(slog.String("component", "calculo_handler")),
	}
}

// --- DTOs ---

// iniciarRequest — corpo do POST /calculo/iniciar.
type iniciarRequest struct {
	DtReferencia string `json:"dt_referencia"`
	UsuarioID    int64  `json:"usuario_id"`
	SessionID    string `json:"session_id"`
}

// iniciarResponse — resposta 201 do start.
type iniciarResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}

// conflitoResponse — resposta 409: envelope de erro mais os dados da trava.
type conflitoResponse struct {
	Error    apierrors.ErrorDetail `json:"error"`
	LockedBy int64                 `json:"locked_by"`
	LockedAt time.Time             `json:"locked_at"`
}

// sessaoDTO — representação da sessão no status.
type sessaoDTO struct {
	SessionID     string    `json:"session_id"`
	RunID         string    `json:"run_id"`
	UsuarioID     int64     `json:"usuario_id"`
	DtReferencia  string    `json:"dt_referencia"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	CreatedAt     time.Time `json:"created_at"`
}

// statusResponse — resposta do GET /calculo/status.
type statusResponse struct {
	RunID        string     `json:"run_id"`
	StagingCount int        `json:"staging_count"`
	Session      *sessaoDTO `json:"session"`
	IsActive     bool       `json:"is_active"`
}

// cancelarRequest — corpo do POST /calculo/cancelar.
type cancelarRequest struct {
	RunID string `json:"run_id"`
}

// cancelarResponse — resposta do cancel.
type cancelarResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	TotalRemovidos int64  `json:"total_removidos"`
}

// cleanupResponse — resposta do sweep manual.
type cleanupResponse struct {
	Success          bool  `json:"success"`
	SessoesRemovidas int   `json:"sessoes_removidas"`
	TotalRemovidos   int64 `json:"total_removidos"`
	TravasExpiradas  int64 `json:"travas_expiradas"`
}

// descontoItem — uma linha de desconto enviada pelo worker.
type descontoItem struct {
	CorretorID    int64   `json:"corretor_id"`
	SupervisorID  *int64  `json:"supervisor_id,omitempty"`
	ValorDesconto float64 `json:"valor_desconto"`
}

// registrarDescontosRequest — corpo do POST /calculo/descontos.
type registrarDescontosRequest struct {
	RunID     string         `json:"run_id"`
	Descontos []descontoItem `json:"descontos"`
}

// registrarDescontosResponse — resposta 201 do registro de descontos.
type registrarDescontosResponse struct {
	Success        bool `json:"success"`
	TotalInseridos int  `json:"total_inseridos"`
}

// --- Handlers ---

// IniciarCalculo — POST /api/v1/calculo/iniciar.
// 201 com run_id, 409 se a data está travada por outro usuário, 400 para
// entrada inválida.
func (h *CalculoHandler) IniciarCalculo(w http.ResponseWriter, r *http.Request) {
	var req iniciarRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Corpo da requisição inválido: "+err.Error())
		return
	}

	runID, err := h.calculo.Iniciar(r.Context(), req.DtReferencia, req.UsuarioID, req.SessionID)
	if err != nil {
		var emAndamento *service.ErrCalculoEmAndamento
		switch {
		case errors.As(err, &emAndamento):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(conflitoResponse{
				Error: apierrors.ErrorDetail{
					Code:    apierrors.CodeConflict,
					Message: emAndamento.Error(),
				},
				LockedBy: emAndamento.LockedBy,
				LockedAt: emAndamento.LockedAt,
			})
		case errors.Is(err, service.ErrValidacao):
			apierrors.ValidationError(w, err.Error())
		default:
			logHandlerError(h.logger, "iniciar_calculo", err)
			apierrors.InternalError(w, "Erro ao iniciar o cálculo")
		}
		return
	}

	writeJSON(w, http.StatusCreated, iniciarResponse{
		Success: true,
		RunID:   runID,
		Message: "Cálculo iniciado para " + req.DtReferencia,
	})
}

// StatusCalculo — GET /api/v1/calculo/status?run_id=...
// Renova o heartbeat e retorna o progresso do staging. Execução
// desconhecida não é erro: retorna session null e is_active false.
func (h *CalculoHandler) StatusCalculo(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")

	status, err := h.calculo.Status(r.Context(), runID)
	if err != nil {
		if errors.Is(err, service.ErrValidacao) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		logHandlerError(h.logger, "status_calculo", err)
		apierrors.InternalError(w, "Erro ao consultar o status do cálculo")
		return
	}

	resp := statusResponse{
		RunID:        status.RunID,
		StagingCount: status.StagingCount,
		IsActive:     status.IsActive,
	}
	if status.Sessao != nil {
		resp.Session = &sessaoDTO{
			SessionID:     status.Sessao.SessionID,
			RunID:         status.Sessao.RunID,
			UsuarioID:     status.Sessao.UsuarioID,
			DtReferencia:  status.Sessao.DtReferencia.Format("2006-01-02"),
			LastHeartbeat: status.Sessao.LastHeartbeat,
			CreatedAt:     status.Sessao.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelarCalculo — POST /api/v1/calculo/cancelar.
// Descarta o staging, libera a trava e remove a sessão. Idempotente:
// cancelar de novo retorna total_removidos zero.
func (h *CalculoHandler) CancelarCalculo(w http.ResponseWriter, r *http.Request) {
	var req cancelarRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Corpo da requisição inválido: "+err.Error())
		return
	}

	removidos, err := h.calculo.Cancelar(r.Context(), req.RunID)
	if err != nil {
		if errors.Is(err, service.ErrValidacao) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		logHandlerError(h.logger, "cancelar_calculo", err)
		apierrors.InternalError(w, "Erro ao cancelar o cálculo")
		return
	}

	writeJSON(w, http.StatusOK, cancelarResponse{
		Success:        true,
		Message:        "Cálculo cancelado",
		TotalRemovidos: removidos,
	})
}

// CleanupCalculo — POST /api/v1/calculo/cleanup.
// Sweep manual de execuções abandonadas. Protegido por segredo
// compartilhado (middleware CleanupAuth).
func (h *CalculoHandler) CleanupCalculo(w http.ResponseWriter, r *http.Request) {
	resultado, err := h.calculo.Sweep(r.Context())
	if err != nil {
		logHandlerError(h.logger, "cleanup_calculo", err)
		apierrors.InternalError(w, "Erro ao executar a limpeza")
		return
	}

	writeJSON(w, http.StatusOK, cleanupResponse{
		Success:          true,
		SessoesRemovidas: resultado.SessoesRemovidas,
		TotalRemovidos:   resultado.TotalRemovidos,
		TravasExpiradas:  resultado.TravasExpiradas,
	})
}

// RegistrarDescontos — POST /api/v1/calculo/descontos.
// Insere as linhas staging produzidas pelo worker para uma execução ativa.
func (h *CalculoHandler) RegistrarDescontos(w http.ResponseWriter, r *http.Request) {
	var req registrarDescontosRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Corpo da requisição inválido: "+err.Error())
		return
	}

	itens := make([]*model.Desconto, 0, len(req.Descontos))
	for _, item := range req.Descontos {
		itens = append(itens, &model.Desconto{
			CorretorID:    item.CorretorID,
			SupervisorID:  item.SupervisorID,
			ValorDesconto: item.ValorDesconto,
		})
	}

	total, err := h.calculo.RegistrarDescontos(r.Context(), req.RunID, itens)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExecucaoNaoEncontrada):
			apierrors.NotFound(w, "Execução não encontrada: "+req.RunID)
		case errors.Is(err, service.ErrValidacao):
			apierrors.ValidationError(w, err.Error())
		default:
			logHandlerError(h.logger, "registrar_descontos", err)
			apierrors.InternalError(w, "Erro ao registrar os descontos")
		}
		return
	}

	writeJSON(w, http.StatusCreated, registrarDescontosResponse{
		Success:        true,
		TotalInseridos: total,
	})
}
