package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Os testes deste arquivo cobrem a validação do corpo das requisições,
// que acontece antes de qualquer chamada à camada de serviço.

func newTestCalculoHandler() *CalculoHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCalculoHandler(nil, logger)
}

// TestIniciarCalculo_CorpoInvalido verifica a rejeição de JSON malformado.
func TestIniciarCalculo_CorpoInvalido(t *testing.T) {
	h := newTestCalculoHandler()

	tests := []struct {
		name string
		body string
	}{
		{"JSON quebrado", `{"dt_referencia": `},
		{"campo desconhecido", `{"dt_referencia": "2025-07-01", "foo": 1}`},
		{"tipo errado", `{"dt_referencia": "2025-07-01", "usuario_id": "abc"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/calculo/iniciar",
				strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.IniciarCalculo(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, esperado %d", rec.Code, http.StatusBadRequest)
			}
			if !strings.Contains(rec.Body.String(), "VALIDATION_ERROR") {
				t.Errorf("corpo sem código de validação: %s", rec.Body.String())
			}
		})
	}
}

// TestCancelarCalculo_CorpoInvalido verifica a rejeição de JSON malformado.
func TestCancelarCalculo_CorpoInvalido(t *testing.T) {
	h := newTestCalculoHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/calculo/cancelar",
		strings.NewReader(`{run_id: sem-aspas}`))
	rec := httptest.NewRecorder()

	h.CancelarCalculo(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, esperado %d", rec.Code, http.StatusBadRequest)
	}
}

// TestRegistrarDescontos_CorpoInvalido verifica a rejeição de JSON malformado.
func TestRegistrarDescontos_CorpoInvalido(t *testing.T) {
	h := newTestCalculoHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/calculo/descontos",
		strings.NewReader(`[]`))
	rec := httptest.NewRecorder()

	h.RegistrarDescontos(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, esperado %d", rec.Code, http.StatusBadRequest)
	}
}
