// Пакет service — бизнес-логика каталога и оркестрации загрузок.
// CacheService — LRU-кэш метаданных медиа-объектов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acervo_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acervo_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных.",
	})
)

// CacheService — LRU-кэш метаданных медиа-объектов с автоматическим TTL.
type CacheService struct {
	cache *expirable.LRU[string, *model.AssetMetadata]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.AssetMetadata](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает метаданные из кэша по id.
// Возвращает (запись, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(id string) (*model.AssetMetadata, bool) {
	val, ok := c.cache.Get(id)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(id string, meta *model.AssetMetadata) {
	c.cache.Add(id, meta)
}

// Delete удаляет запись из кэша (инвалидация после изменения или удаления).
func (c *CacheService) Delete(id string) {
	c.cache.Remove(id)
}
