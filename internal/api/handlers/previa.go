// previa.go — handlers das prévias de cálculo.
// POST /api/v1/calculo/previa           — gera a prévia do staging
// GET  /api/v1/calculo/previa/{execId}  — consulta a prévia no cache
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/brkseguros/bonifica/internal/api/errors"
	"github.com/brkseguros/bonifica/internal/domain/model"
	"github.com/brkseguros/bonifica/internal/service"
)

// PreviaHandler — handlers das prévias de cálculo.
type PreviaHandler struct {
	previa *service.PreviaService
	logger *slog.Logger
}

// NewPreviaHandler cria o handler das prévias.
func NewPreviaHandler(previa *service.PreviaService, logger *slog.Logger) *PreviaHandler {
	return &PreviaHandler{
		previa: previa,
		logger: logger.With(slog.String("component", "previa_handler")),
	}
}

// gerarPreviaRequest — corpo do POST /calculo/previa.
type gerarPreviaRequest struct {
	RunID string `json:"run_id"`
}

// previaLinhaDTO — uma linha agregada da prévia.
type previaLinhaDTO struct {
	CorretorID int64   `json:"corretor_id"`
	Quantidade int     `json:"quantidade"`
	ValorTotal float64 `json:"valor_total"`
}

// previaResponse — representação da prévia na API.
type previaResponse struct {
	ExecID       string           `json:"exec_id"`
	RunID        string           `json:"run_id"`
	DtReferencia string           `json:"dt_referencia"`
	Quantidade   int              `json:"quantidade"`
	ValorTotal   float64          `json:"valor_total"`
	Linhas       []previaLinhaDTO `json:"linhas"`
	GeradaEm     time.Time        `json:"gerada_em"`
}

func toPreviaResponse(p *model.Previa) previaResponse {
	resp := previaResponse{
		ExecID:       p.ExecID,
		RunID:        p.RunID,
		DtReferencia: p.DtReferencia.Format("2006-01-02"),
		Quantidade:   p.Quantidade,
		ValorTotal:   p.ValorTotal,
		Linhas:       make([]previaLinhaDTO, 0, len(p.Linhas)),
		GeradaEm:     p.GeradaEm,
	}
	for _, l := range p.Linhas {
		resp.Linhas = append(resp.Linhas, previaLinhaDTO{
			CorretorID: l.CorretorID,
			Quantidade: l.Quantidade,
			ValorTotal: l.ValorTotal,
		})
	}
	return resp
}

// GerarPrevia — POST /api/v1/calculo/previa.
// Gera a prévia do staging da execução e retorna o exec_id para consulta.
func (h *PreviaHandler) GerarPrevia(w http.ResponseWriter, r *http.Request) {
	var req gerarPreviaRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Corpo da requisição inválido: "+err.Error())
		return
	}

	previa, err := h.previa.Gerar(r.Context(), req.RunID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExecucaoNaoEncontrada):
			apierrors.NotFound(w, "Execução não encontrada: "+req.RunID)
		case errors.Is(err, service.ErrValidacao):
			apierrors.ValidationError(w, err.Error())
		default:
			logHandlerError(h.logger, "gerar_previa", err)
			apierrors.InternalError(w, "Erro ao gerar a prévia")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toPreviaResponse(previa))
}

// ObterPrevia — GET /api/v1/calculo/previa/{execId}.
// Consulta a prévia no cache. Prévia expirada ou desconhecida responde 404.
func (h *PreviaHandler) ObterPrevia(w http.ResponseWriter, r *http.Request) {
	execID := chi.URLParam(r, "execId")

	previa, err := h.previa.Obter(execID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Prévia não encontrada ou expirada: "+execID)
		case errors.Is(err, service.ErrValidacao):
			apierrors.ValidationError(w, err.Error())
		default:
			logHandlerError(h.logger, "obter_previa", err)
			apierrors.InternalError(w, "Erro ao consultar a prévia")
		}
		return
	}

	writeJSON(w, http.StatusOK, toPreviaResponse(previa))
}
