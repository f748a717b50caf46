// auth.go — autenticação por segredo compartilhado do endpoint de cleanup.
// O caminho administrativo exige Authorization: Bearer <token>, comparado
// em tempo constante com o segredo da configuração (BA_CLEANUP_TOKEN).
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/brkseguros/bonifica/internal/api/errors"
)

// CleanupAuth retorna o middleware que valida o Bearer token do cleanup.
// Qualquer divergência (header ausente, formato errado, token diferente)
// responde 401 com o envelope de erro padrão.
func CleanupAuth(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "cleanup_auth"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Cabeçalho Authorization ausente")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Formato inválido: esperado Bearer <token>")
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
				log.Warn("Cleanup rejeitado: token inválido",
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Token inválido")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
