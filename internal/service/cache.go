// cache.go — cache in-process de prévias de cálculo, com TTL.
// Camada fina sobre hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brkseguros/bonifica/internal/domain/model"
)

// Métricas Prometheus do cache de prévias.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bonifica_previa_cache_hits_total",
		Help: "Total de acertos no cache de prévias.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bonifica_previa_cache_misses_total",
		Help: "Total de falhas no cache de prévias.",
	})
)

// CacheService — cache LRU de prévias chaveado por exec_id.
// Cada instância do serviço tem o seu próprio cache; a expiração por TTL
// descarta entradas antigas sem limpeza explícita.
type CacheService struct {
	cache *expirable.LRU[string, *model.Previa]
}

// NewCacheService cria o cache com o tamanho máximo e o TTL informados.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.Previa](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get retorna a prévia do cache pelo exec_id.
// Retorna (prévia, true) em hit ou (nil, false) em miss/expirada.
func (c *CacheService) Get(execID string) (*model.Previa, bool) {
	val, ok := c.cache.Get(execID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set adiciona ou substitui uma prévia no cache.
func (c *CacheService) Set(execID string, previa *model.Previa) {
	c.cache.Add(execID, previa)
}

// Delete remove uma prévia do cache (invalidação no cancel).
func (c *CacheService) Delete(execID string) {
	c.cache.Remove(execID)
}

// Len retorna a quantidade de entradas vivas no cache.
func (c *CacheService) Len() int {
	return c.cache.Len()
}
