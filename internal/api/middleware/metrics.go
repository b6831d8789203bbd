// metrics.go — Prometheus HTTP метрики сервиса каталога.
// Регистрирует метрики: acervo_http_requests_total, acervo_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики сервиса
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acervo_http_requests_total",
			Help: "Общее количество HTTP-запросов к сервису каталога",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acervo_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к сервису каталога в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем идентификаторы на {id} для предотвращения кардинальности)
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

// metricsResponseWriter — обёртка для перехвата статус-кода.
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

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет динамические сегменты пути на плейсхолдеры
// для предотвращения взрывного роста кардинальности метрик.
// /api/media/2024_03_05_..._jpg     → /api/media/{id}
// /api/media/2024_03_05_..._jpg/url → /api/media/{id}/url
// /api/folders/00_ENTRADA/.../files → /api/folders/{path}/files
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/media", "/api/media/stats",
		"/api/folders", "/api/folders/structure",
		"/api/upload/presigned", "/api/upload/complete", "/api/upload/test":
		return path
	}

	const mediaPrefix = "/api/media/"
	if rest, ok := strings.CutPrefix(path, mediaPrefix); ok {
		switch {
		case strings.HasSuffix(rest, "/url"):
			return mediaPrefix + "{id}/url"
		case strings.HasSuffix(rest, "/status"):
			return mediaPrefix + "{id}/status"
		default:
			return mediaPrefix + "{id}"
		}
	}

	const foldersPrefix = "/api/folders/"
	if strings.HasPrefix(path, foldersPrefix) {
		if strings.HasSuffix(path, "/files") {
			return foldersPrefix + "{path}/files"
		}
		return foldersPrefix + "{path}"
	}

	return path
}
