// handler.go — agregador dos handlers da API.
// Reúne os handlers de domínio e delega as requisições para a camada de
// serviço.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIHandler — handler principal da API de cálculo de bonificação.
type APIHandler struct {
	Health  *HealthHandler
	Calculo *CalculoHandler
	Previa  *PreviaHandler
}

// NewAPIHandler cria o handler principal da API.
func NewAPIHandler(health *HealthHandler, calculo *CalculoHandler, previa *PreviaHandler) *APIHandler {
	return &APIHandler{
		Health:  health,
		Calculo: calculo,
		Previa:  previa,
	}
}

// --- Auxiliares comuns ---

// writeJSON grava a resposta JSON com o status informado.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON decodifica o corpo da requisição em dst.
// Campos desconhecidos são rejeitados.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// logHandlerError loga um erro inesperado de handler.
func logHandlerError(logger *slog.Logger, op string, err error) {
	logger.Error("Erro no handler",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}
