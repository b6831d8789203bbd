// Пакет handlers — HTTP-обработчики API каталога.
// Обработчики делегируют бизнес-логику в сервисный слой и
// сериализуют результаты; ошибки переводятся в стандартный конверт.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/api/errors"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/service"
)

// APIHandler — основной обработчик API каталога.
type APIHandler struct {
	query  *service.QueryService
	upload *service.UploadService
	health *HealthHandler
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	query *service.QueryService,
	upload *service.UploadService,
	health *HealthHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		query:  query,
		upload: upload,
		health: health,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	var opErr *service.OperationError
	if errors.As(err, &opErr) {
		switch opErr.Code {
		case service.CodeValidationError:
			apierrors.ValidationError(w, opErr.Message)
		case service.CodeNotFound:
			apierrors.NotFound(w, opErr.Message)
		case service.CodeStorageAuthFailed:
			apierrors.StorageAuthFailed(w, opErr.Message)
		case service.CodeStorageRequestFailed:
			apierrors.StorageRequestFailed(w, opErr.Message)
		case service.CodeStorageWriteFailed:
			apierrors.StorageWriteFailed(w, opErr.Message)
		default:
			apierrors.WriteError(w, opErr.StatusCode, opErr.Code, opErr.Message)
		}
		return
	}
	if errors.Is(err, service.ErrNotFound) {
		apierrors.NotFound(w, "объект не найден")
		return
	}

	h.logger.Error("Внутренняя ошибка обработки запроса",
		slog.String("error", err.Error()),
	)
	apierrors.InternalError(w, "внутренняя ошибка сервиса")
}
