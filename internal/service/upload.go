// upload.go — UploadService: двухфазная оркестрация загрузок.
// Фаза 1 (presign): валидация, составление имени, выдача upload URL B2.
// Фаза 2 (confirm): регистрация загруженного объекта в каталоге.
// Байты файлов через этот процесс не проходят — клиент грузит в B2 напрямую.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/b2client"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/model"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/naming"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/storage/catalog"
)

// Машиночитаемые коды операционных ошибок.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeStorageAuthFailed    = "STORAGE_AUTH_FAILED"
	CodeStorageRequestFailed = "STORAGE_REQUEST_FAILED"
	CodeStorageWriteFailed   = "STORAGE_WRITE_FAILED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// OperationError — ошибка операции с HTTP-статусом и машинным кодом.
// Транспортный слой транслирует её в стандартный конверт ошибки.
type OperationError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s (статус %d): %s", e.Code, e.StatusCode, e.Message)
}

// newValidationError — 400 некорректные входные данные.
func newValidationError(message string) *OperationError {
	return &OperationError{StatusCode: http.StatusBadRequest, Code: CodeValidationError, Message: message}
}

// mapStorageError переводит ошибку B2-клиента в OperationError.
func mapStorageError(err error) *OperationError {
	var apiErr *b2client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return &OperationError{
			StatusCode: http.StatusBadGateway,
			Code:       CodeStorageAuthFailed,
			Message:    "хранилище отклонило аутентификацию: " + apiErr.Message,
		}
	}
	return &OperationError{
		StatusCode: http.StatusBadGateway,
		Code:       CodeStorageRequestFailed,
		Message:    "ошибка запроса к хранилищу: " + err.Error(),
	}
}

// Prometheus-метрики загрузок.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acervo_uploads_total",
		Help: "Общее количество операций загрузки по фазам и результатам.",
	}, []string{"phase", "result"})
)

// StorageClient — операции B2, нужные оркестратору загрузок.
type StorageClient interface {
	Authorize(ctx context.Context) (b2client.Auth, error)
	GetUploadURL(ctx context.Context, bucketID string) (*b2client.UploadTarget, error)
	ListFileNames(ctx context.Context, bucketID, prefix string, maxCount int) ([]b2client.FileVersion, error)
	DownloadURL(ctx context.Context, filePath string) (string, error)
}

// PresignParams — запрос на выдачу цели загрузки.
type PresignParams struct {
	Filename    string
	ContentType string
	Size        int64
	Meta        naming.Classification
}

// PresignResult — выданная цель загрузки.
// Headers — готовые заголовки для POST файла на UploadURL.
type PresignResult struct {
	UploadURL  string            `json:"uploadUrl"`
	FileName   string            `json:"fileName"`
	FilePath   string            `json:"filePath"`
	FolderPath string            `json:"folderPath"`
	Headers    map[string]string `json:"headers"`
}

// ConfirmMetadata — метаданные, передаваемые при подтверждении загрузки.
type ConfirmMetadata struct {
	Size            int64
	ContentType     string
	Area            string
	Nucleo          string
	Tema            string
	Status          string
	Ponto           string
	TipoProjeto     string
	FuncaoHistorica string
	Evento          string
}

// UploadService — оркестратор двухфазной загрузки.
type UploadService struct {
	repo     catalog.Repository
	b2       StorageClient
	bucketID string
	cache    *CacheService
	logger   *slog.Logger
	now      func() time.Time
}

// NewUploadService создаёт оркестратор загрузок.
func NewUploadService(
	repo catalog.Repository,
	b2 StorageClient,
	bucketID string,
	cache *CacheService,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		repo:     repo,
		b2:       b2,
		bucketID: bucketID,
		cache:    cache,
		logger:   logger.With(slog.String("component", "upload_service")),
		now:      time.Now,
	}
}

// RequestUpload выполняет фазу presign: валидирует запрос, составляет
// стандартизированное имя и путь, запрашивает у B2 upload URL.
// Каталог на этой фазе не изменяется.
func (s *UploadService) RequestUpload(ctx context.Context, params PresignParams) (*PresignResult, error) {
	if strings.TrimSpace(params.Filename) == "" {
		uploadsTotal.WithLabelValues("presign", "invalid").Inc()
		return nil, newValidationError("имя файла обязательно")
	}
	if strings.TrimSpace(params.Meta.Area) == "" || strings.TrimSpace(params.Meta.Tema) == "" {
		uploadsTotal.WithLabelValues("presign", "invalid").Inc()
		return nil, newValidationError("поля area и tema обязательны")
	}

	meta := params.Meta
	if meta.Status == "" {
		meta.Status = model.DefaultStatus
	}

	composed := naming.Compose(params.Filename, meta)

	target, err := s.b2.GetUploadURL(ctx, s.bucketID)
	if err != nil {
		uploadsTotal.WithLabelValues("presign", "error").Inc()
		s.logger.Error("Ошибка получения upload URL",
			slog.String("file", composed.FileName),
			slog.String("error", err.Error()),
		)
		return nil, mapStorageError(err)
	}

	contentType := params.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadsTotal.WithLabelValues("presign", "ok").Inc()
	s.logger.Info("Выдана цель загрузки",
		slog.String("file_path", composed.FullPath),
		slog.Int64("size", params.Size),
	)

	return &PresignResult{
		UploadURL:  target.UploadURL,
		FileName:   composed.FileName,
		FilePath:   composed.FullPath,
		FolderPath: composed.FolderPath,
		Headers: map[string]string{
			"Authorization":     target.Token,
			"X-Bz-File-Name":    escapeB2FileName(composed.FullPath),
			"Content-Type":      contentType,
			"X-Bz-Content-Sha1": "do_not_verify",
		},
	}, nil
}

// ConfirmUpload выполняет фазу confirm: регистрирует завершённую
// загрузку в каталоге. Идемпотентна — повторное подтверждение того же
// filePath обновляет существующую запись, дубликат не создаётся.
// Имя, не соответствующее стандарту, не отклоняется: подтверждённая
// загрузка не должна потеряться, производные поля остаются пустыми.
func (s *UploadService) ConfirmUpload(ctx context.Context, filePath string, meta ConfirmMetadata) (*model.AssetMetadata, error) {
	if strings.TrimSpace(filePath) == "" {
		uploadsTotal.WithLabelValues("confirm", "invalid").Inc()
		return nil, newValidationError("поле filePath обязательно")
	}

	fileName := filePath
	if idx := strings.LastIndex(filePath, "/"); idx >= 0 {
		fileName = filePath[idx+1:]
	}

	record := &model.AssetMetadata{
		ID:              strings.ReplaceAll(fileName, ".", "_"),
		FileName:        fileName,
		FilePath:        filePath,
		Size:            meta.Size,
		ContentType:     meta.ContentType,
		UploadedAt:      s.now().UTC(),
		Area:            defaultString(meta.Area, "GERAL"),
		Nucleo:          meta.Nucleo,
		Tema:            defaultString(meta.Tema, "GERAL"),
		Status:          confirmStatus(meta.Status),
		Ponto:           meta.Ponto,
		TipoProjeto:     meta.TipoProjeto,
		FuncaoHistorica: meta.FuncaoHistorica,
		Evento:          meta.Evento,
	}

	if components := naming.Parse(fileName); components != nil {
		record.Ano = components.Ano
		record.Mes = components.Mes
		record.Dia = components.Dia
		record.Token = components.Token
		record.Extensao = components.Extensao
	} else {
		s.logger.Warn("Имя файла не соответствует стандарту, производные поля пусты",
			slog.String("file_name", fileName),
		)
		record.Extensao = extensionOf(fileName)
	}

	if downloadURL, err := s.b2.DownloadURL(ctx, filePath); err == nil {
		record.URL = downloadURL
		record.ThumbnailURL = downloadURL
	} else {
		// Ссылка достроится при следующем запросе через query service.
		s.logger.Warn("Не удалось построить ссылку на скачивание",
			slog.String("file_path", filePath),
			slog.String("error", err.Error()),
		)
	}

	if err := s.repo.Save(ctx, record); err != nil {
		uploadsTotal.WithLabelValues("confirm", "error").Inc()
		return nil, &OperationError{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeStorageWriteFailed,
			Message:    "ошибка сохранения записи каталога: " + err.Error(),
		}
	}

	s.cache.Delete(record.ID)
	uploadsTotal.WithLabelValues("confirm", "ok").Inc()
	s.logger.Info("Загрузка подтверждена",
		slog.String("id", record.ID),
		slog.String("file_path", filePath),
	)

	return record, nil
}

// UpdateStatus изменяет статус записи каталога.
// Объект в bucket не перемещается: file_path остаётся прежним,
// расхождение папки и статуса логируется.
func (s *UploadService) UpdateStatus(ctx context.Context, id, newStatus string) (*model.AssetMetadata, error) {
	status := model.Status(newStatus)
	if !model.IsValidStatus(status) {
		return nil, newValidationError(fmt.Sprintf("недопустимый статус %q", newStatus))
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, &OperationError{StatusCode: http.StatusNotFound, Code: CodeNotFound,
				Message: fmt.Sprintf("запись %q не найдена", id)}
		}
		return nil, fmt.Errorf("получение записи %s: %w", id, err)
	}

	if folder := model.FolderForStatus(status); !strings.HasPrefix(record.FilePath, folder+"/") {
		s.logger.Warn("Папка объекта не соответствует новому статусу, объект не перемещается",
			slog.String("id", id),
			slog.String("file_path", record.FilePath),
			slog.String("status", newStatus),
		)
	}

	record.Status = status
	if err := s.repo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("обновление статуса %s: %w", id, err)
	}

	s.cache.Delete(id)
	return record, nil
}

// Delete удаляет запись каталога. Объект в bucket не удаляется.
func (s *UploadService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("удаление записи %s: %w", id, err)
	}
	if !deleted {
		return &OperationError{StatusCode: http.StatusNotFound, Code: CodeNotFound,
			Message: fmt.Sprintf("запись %q не найдена", id)}
	}
	s.cache.Delete(id)
	return nil
}

// TestConnection проверяет доступность B2: авторизация аккаунта
// и пробное перечисление файлов bucket'а.
func (s *UploadService) TestConnection(ctx context.Context) error {
	if _, err := s.b2.Authorize(ctx); err != nil {
		return mapStorageError(err)
	}
	if _, err := s.b2.ListFileNames(ctx, s.bucketID, "", 1); err != nil {
		return mapStorageError(err)
	}
	return nil
}

// escapeB2FileName экранирует путь для заголовка X-Bz-File-Name:
// сегменты percent-encoded, разделители "/" сохраняются.
func escapeB2FileName(filePath string) string {
	segments := strings.Split(filePath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// extensionOf возвращает расширение файла в нижнем регистре (без точки).
func extensionOf(fileName string) string {
	if idx := strings.LastIndex(fileName, "."); idx >= 0 && idx < len(fileName)-1 {
		return strings.ToLower(fileName[idx+1:])
	}
	return ""
}

// confirmStatus валидирует статус подтверждения, недопустимый
// заменяется статусом по умолчанию.
func confirmStatus(raw string) model.Status {
	status := model.Status(raw)
	if raw == "" || !model.IsValidStatus(status) {
		return model.DefaultStatus
	}
	return status
}

// defaultString возвращает fallback, если значение пусто.
func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
