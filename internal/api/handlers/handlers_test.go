package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/b2client"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/model"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/service"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/storage/catalog"
)

// memRepo — in-memory репозиторий каталога для тестов обработчиков.
type memRepo struct {
	items map[string]*model.AssetMetadata
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[string]*model.AssetMetadata{}}
}

func (r *memRepo) GetAll(_ context.Context) ([]*model.AssetMetadata, error) {
	result := make([]*model.AssetMetadata, 0, len(r.items))
	for _, m := range r.items {
		result = append(result, m)
	}
	return result, nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*model.AssetMetadata, error) {
	m, ok := r.items[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return m, nil
}

func (r *memRepo) GetByPath(_ context.Context, filePath string) (*model.AssetMetadata, error) {
	for _, m := range r.items {
		if m.FilePath == filePath {
			return m, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (r *memRepo) Save(_ context.Context, meta *model.AssetMetadata) error {
	copied := *meta
	r.items[meta.ID] = &copied
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func (r *memRepo) Search(ctx context.Context, f catalog.Filters) ([]*model.AssetMetadata, error) {
	all, _ := r.GetAll(ctx)
	if f.Empty() {
		return all, nil
	}
	var result []*model.AssetMetadata
	for _, m := range all {
		if f.Area != "" && m.Area != f.Area {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

func (r *memRepo) ListByFolder(ctx context.Context, folderPath string) ([]*model.AssetMetadata, error) {
	all, _ := r.GetAll(ctx)
	var result []*model.AssetMetadata
	for _, m := range all {
		if m.FilePath == folderPath || strings.HasPrefix(m.FilePath, folderPath+"/") {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *memRepo) CountByFolder(_ context.Context) (map[string]int, error) {
	counts := map[string]int{}
	for _, m := range r.items {
		root := m.FilePath
		if idx := strings.Index(root, "/"); idx >= 0 {
			root = root[:idx]
		}
		counts[root]++
	}
	return counts, nil
}

// stubStorage — заглушка B2-клиента.
type stubStorage struct{}

func (stubStorage) Authorize(_ context.Context) (b2client.Auth, error) {
	return b2client.Auth{Token: "t", APIURL: "https://api.example", DownloadURL: "https://dl.example"}, nil
}

func (stubStorage) GetUploadURL(_ context.Context, bucketID string) (*b2client.UploadTarget, error) {
	return &b2client.UploadTarget{UploadURL: "https://pod.example/upload", Token: "ut", BucketID: bucketID}, nil
}

func (stubStorage) ListFileNames(_ context.Context, _, _ string, _ int) ([]b2client.FileVersion, error) {
	return nil, nil
}

func (stubStorage) DownloadURL(_ context.Context, filePath string) (string, error) {
	return "https://dl.example/file/acervo-bucket/" + filePath, nil
}

// failingStorage — заглушка B2-клиента, возвращающая ошибку
// при запросе upload-URL.
type failingStorage struct {
	stubStorage
	uploadErr error
}

func (s failingStorage) GetUploadURL(_ context.Context, _ string) (*b2client.UploadTarget, error) {
	return nil, s.uploadErr
}

// newTestHandler собирает APIHandler поверх in-memory репозитория.
func newTestHandler(repo *memRepo) *APIHandler {
	return newTestHandlerWithStorage(repo, stubStorage{})
}

func newTestHandlerWithStorage(repo *memRepo, storage service.StorageClient) *APIHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := service.NewCacheService(100, time.Minute)
	query := service.NewQueryService(repo, cache, stubStorage{}, logger)
	upload := service.NewUploadService(repo, storage, "bucket-1", cache, logger)
	return NewAPIHandler(query, upload, NewHealthHandler(nil), logger)
}

func seedMedia(repo *memRepo, id, filePath, area string, status model.Status) {
	repo.items[id] = &model.AssetMetadata{
		ID:       id,
		FileName: filePath[strings.LastIndex(filePath, "/")+1:],
		FilePath: filePath,
		Area:     area,
		Status:   status,
		Extensao: "jpg",
	}
}

// newTestRouter строит маршруты так же, как рабочий сервер.
func newTestRouter(h *APIHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/media", h.ListMedia)
	r.Get("/api/media/stats", h.GetMediaStats)
	r.Get("/api/media/{id}", h.GetMedia)
	r.Get("/api/media/{id}/url", h.GetMediaURL)
	r.Patch("/api/media/{id}/status", h.UpdateMediaStatus)
	r.Delete("/api/media/{id}", h.DeleteMedia)
	r.Get("/api/folders", h.ListFolders)
	r.Get("/api/folders/structure", h.GetFolderStructure)
	r.Get("/api/folders/*", h.ListFolderFiles)
	r.Post("/api/upload/presigned", h.RequestUpload)
	r.Post("/api/upload/complete", h.ConfirmUpload)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListMedia(t *testing.T) {
	repo := newMemRepo()
	seedMedia(repo, "a1", "00_ENTRADA/2024/01/10/a.jpg", "Sede", model.StatusEntrada)
	seedMedia(repo, "a2", "01_CATALOGADO/2024/01/11/b.jpg", "Boa Vista", model.StatusCatalogado)
	router := newTestRouter(newTestHandler(repo))

	rec := doRequest(t, router, http.MethodGet, "/api/media", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Статус = %d, ожидалось 200", rec.Code)
	}

	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("Ошибка декодирования ответа: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Получено %d записей, ожидалось 2", len(items))
	}
	if items[0]["tipo"] != "imagem" {
		t.Errorf("tipo = %v, ожидалось imagem", items[0]["tipo"])
	}

	// Фильтр по area.
	rec = doRequest(t, router, http.MethodGet, "/api/media?area=Sede", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("Ошибка декодирования ответа: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("С фильтром area получено %d записей, ожидалась 1", len(items))
	}
}

func TestGetMedia_NotFound(t *testing.T) {
	router := newTestRouter(newTestHandler(newMemRepo()))

	rec := doRequest(t, router, http.MethodGet, "/api/media/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Статус = %d, ожидалось 404", rec.Code)
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Ошибка декодирования конверта ошибки: %v", err)
	}
	if envelope.Error.Code != "NOT_FOUND" {
		t.Errorf("Код ошибки = %q, ожидалось NOT_FOUND", envelope.Error.Code)
	}
}

func TestUpdateMediaStatus(t *testing.T) {
	repo := newMemRepo()
	seedMedia(repo, "a1", "00_ENTRADA/2024/01/10/a.jpg", "Sede", model.StatusEntrada)
	router := newTestRouter(newTestHandler(repo))

	rec := doRequest(t, router, http.MethodPatch, "/api/media/a1/status",
		`{"status":"Publicado"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Статус = %d, ожидалось 200: %s", rec.Code, rec.Body.String())
	}
	if repo.items["a1"].Status != model.StatusPublicado {
		t.Errorf("Статус записи = %q", repo.items["a1"].Status)
	}

	// Недопустимый статус — конверт VALIDATION_ERROR.
	rec = doRequest(t, router, http.MethodPatch, "/api/media/a1/status",
		`{"status":"Что-то"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Статус = %d, ожидалось 400", rec.Code)
	}
}

func TestListFolderFiles_Wildcard(t *testing.T) {
	repo := newMemRepo()
	seedMedia(repo, "a1", "00_ENTRADA/2024/01/10/a.jpg", "Sede", model.StatusEntrada)
	seedMedia(repo, "a2", "01_CATALOGADO/2024/01/11/b.jpg", "Sede", model.StatusCatalogado)
	router := newTestRouter(newTestHandler(repo))

	rec := doRequest(t, router, http.MethodGet, "/api/folders/00_ENTRADA/2024/files", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Статус = %d, ожидалось 200", rec.Code)
	}

	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("Ошибка декодирования ответа: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Получено %d записей, ожидалась 1", len(items))
	}

	// Без суффикса /files — 404.
	rec = doRequest(t, router, http.MethodGet, "/api/folders/00_ENTRADA/2024", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Статус = %d, ожидалось 404", rec.Code)
	}
}

func TestRequestUpload_Handler(t *testing.T) {
	router := newTestRouter(newTestHandler(newMemRepo()))

	rec := doRequest(t, router, http.MethodPost, "/api/upload/presigned",
		`{"fileName":"IMG_1.jpg","area":"Sede","tema":"Obras","contentType":"image/jpeg"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Статус = %d, ожидалось 200: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		UploadURL string            `json:"uploadUrl"`
		FileName  string            `json:"fileName"`
		Headers   map[string]string `json:"headers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Ошибка декодирования ответа: %v", err)
	}
	if result.UploadURL == "" || result.FileName == "" {
		t.Error("uploadUrl и fileName должны быть заполнены")
	}
	if result.Headers["X-Bz-Content-Sha1"] != "do_not_verify" {
		t.Errorf("X-Bz-Content-Sha1 = %q", result.Headers["X-Bz-Content-Sha1"])
	}

	// Невалидный запрос — нет area.
	rec = doRequest(t, router, http.MethodPost, "/api/upload/presigned",
		`{"fileName":"IMG_1.jpg"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Статус = %d, ожидалось 400", rec.Code)
	}
}

func TestRequestUpload_StorageAuthError(t *testing.T) {
	storage := failingStorage{uploadErr: &b2client.APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       "unauthorized",
		Message:    "bad token",
	}}
	router := newTestRouter(newTestHandlerWithStorage(newMemRepo(), storage))

	rec := doRequest(t, router, http.MethodPost, "/api/upload/presigned",
		`{"fileName":"IMG_1.jpg","area":"Sede","tema":"Obras"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Статус = %d, ожидалось 502: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Ошибка декодирования конверта ошибки: %v", err)
	}
	if envelope.Error.Code != "STORAGE_AUTH_FAILED" {
		t.Errorf("Код ошибки = %q, ожидалось STORAGE_AUTH_FAILED", envelope.Error.Code)
	}
}

func TestConfirmUpload_Handler(t *testing.T) {
	repo := newMemRepo()
	router := newTestRouter(newTestHandler(repo))

	rec := doRequest(t, router, http.MethodPost, "/api/upload/complete",
		`{"filePath":"00_ENTRADA/2024/03/05/2024_03_05_SEDE_GERAL_OBRAS_ENTRADABRUTO_11112222.jpg","area":"Sede","tema":"Obras"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Статус = %d, ожидалось 201: %s", rec.Code, rec.Body.String())
	}
	if len(repo.items) != 1 {
		t.Errorf("Записей в каталоге: %d, ожидалась 1", len(repo.items))
	}
}

func TestHealthLive(t *testing.T) {
	h := newTestHandler(newMemRepo())

	rec := httptest.NewRecorder()
	h.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Статус = %d, ожидалось 200", rec.Code)
	}
}

func TestHealthReady_NoChecker(t *testing.T) {
	h := newTestHandler(newMemRepo())

	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Статус = %d, ожидалось 503 (каталог не инициализирован)", rec.Code)
	}
}
