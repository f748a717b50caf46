// metrics.go — métricas Prometheus de HTTP.
// Registra bonifica_http_requests_total e bonifica_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas HTTP
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bonifica_http_requests_total",
			Help: "Total de requisições HTTP recebidas",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bonifica_http_request_duration_seconds",
			Help:    "Duração das requisições HTTP em segundos",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware retorna o middleware de coleta das métricas HTTP.
// Registra contagem e duração por endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Normaliza o path para evitar explosão de cardinalidade
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — wrapper para capturar o status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap permite que http.ResponseController acesse o ResponseWriter original.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath troca segmentos dinâmicos (exec_id) por {id} nos labels.
// /api/v1/calculo/previa/a1b2c3d4-... → /api/v1/calculo/previa/{id}
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/calculo/iniciar",
		"/api/v1/calculo/status",
		"/api/v1/calculo/cancelar",
		"/api/v1/calculo/cleanup",
		"/api/v1/calculo/descontos",
		"/api/v1/calculo/previa":
		return path
	}

	const previaPrefix = "/api/v1/calculo/previa/"
	if strings.HasPrefix(path, previaPrefix) && len(path) > len(previaPrefix) {
		return previaPrefix + "{id}"
	}

	return path
}
