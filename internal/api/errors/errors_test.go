package errors

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

// TestWriteError verifica o envelope padrão {"error":{"code","message"}}.
func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 409, CodeConflict, "cálculo já em andamento")

	if rec.Code != 409 {
		t.Errorf("status = %d, esperado 409", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, esperado application/json", ct)
	}

	var body struct {
		Error ErrorDetail `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("corpo não é JSON válido: %v", err)
	}
	if body.Error.Code != CodeConflict {
		t.Errorf("code = %q, esperado %q", body.Error.Code, CodeConflict)
	}
	if body.Error.Message != "cálculo já em andamento" {
		t.Errorf("message = %q", body.Error.Message)
	}
}

// TestConstrutores verifica o status de cada construtor.
func TestConstrutores(t *testing.T) {
	tests := []struct {
		name   string
		write  func(*httptest.ResponseRecorder)
		status int
		code   string
	}{
		{"validation", func(r *httptest.ResponseRecorder) { ValidationError(r, "m") }, 400, CodeValidationError},
		{"unauthorized", func(r *httptest.ResponseRecorder) { Unauthorized(r, "m") }, 401, CodeUnauthorized},
		{"not found", func(r *httptest.ResponseRecorder) { NotFound(r, "m") }, 404, CodeNotFound},
		{"internal", func(r *httptest.ResponseRecorder) { InternalError(r, "m") }, 500, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			if rec.Code != tt.status {
				t.Errorf("status = %d, esperado %d", rec.Code, tt.status)
			}
			var body struct {
				Error ErrorDetail `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("corpo não é JSON válido: %v", err)
			}
			if body.Error.Code != tt.code {
				t.Errorf("code = %q, esperado %q", body.Error.Code, tt.code)
			}
		})
	}
}
