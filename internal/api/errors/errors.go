// Pacote errors — construtores das respostas de erro padronizadas.
// Formato único: {"error": {"code": "...", "message": "..."}}.
// Toda resposta de erro HTTP deve passar por WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// Códigos de erro expostos pela API.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeConflict        = "CONFLICT"
	CodeInternalError   = "INTERNAL_ERROR"
)

// errorBody — corpo da resposta de erro.
type errorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — detalhes do erro.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError grava a resposta de erro no formato padrão.
// statusCode — status HTTP, code — código legível por máquina, message — descrição.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Construtores para os erros comuns ---

// ValidationError — 400 entrada inválida.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 recurso não encontrado.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 autenticação necessária.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// InternalError — 500 erro interno.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
