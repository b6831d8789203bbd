// Пакет b2client — HTTP-клиент для Backblaze B2 Native API.
// Авторизуется через b2_authorize_account и кэширует результат,
// выдаёт upload URL для прямой загрузки и перечисляет файлы бакета.
package b2client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// APIError — ошибка, возвращённая B2 API.
type APIError struct {
	// StatusCode — HTTP-статус ответа B2
	StatusCode int `json:"status"`
	// Code — машинный код ошибки B2 (например, "bad_auth_token")
	Code string `json:"code"`
	// Message — человекочитаемое сообщение
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("B2 API: статус %d, код %q: %s", e.StatusCode, e.Code, e.Message)
}

// Auth — результат авторизации b2_authorize_account.
type Auth struct {
	// Token — авторизационный токен для последующих вызовов API
	Token string
	// APIURL — базовый URL API аккаунта
	APIURL string
	// DownloadURL — базовый URL скачивания файлов аккаунта
	DownloadURL string
}

// UploadTarget — цель прямой загрузки (из b2_get_upload_url).
type UploadTarget struct {
	// UploadURL — URL для POST содержимого файла
	UploadURL string `json:"uploadUrl"`
	// Token — авторизационный токен именно для этого upload URL
	Token string `json:"authorizationToken"`
	// BucketID — бакет, к которому привязан upload URL
	BucketID string `json:"bucketId"`
}

// FileVersion — версия файла из b2_list_file_names.
type FileVersion struct {
	FileID          string `json:"fileId"`
	FileName        string `json:"fileName"`
	ContentLength   int64  `json:"contentLength"`
	ContentType     string `json:"contentType"`
	UploadTimestamp int64  `json:"uploadTimestamp"`
}

// authInfo — закэшированная авторизация с временем истечения.
type authInfo struct {
	auth      Auth
	expiresAt time.Time
}

// Client — HTTP-клиент Backblaze B2.
type Client struct {
	httpClient     *http.Client
	apiURL         string
	accountID      string
	applicationKey string //nolint:gosec // G101: поле структуры, не содержит секрет напрямую
	bucketName     string
	authTTL        time.Duration
	logger         *slog.Logger

	// Кэш авторизации (thread-safe)
	mu   sync.RWMutex
	auth *authInfo
}

// New создаёт B2-клиент.
// apiURL — базовый URL авторизации (например, https://api005.backblazeb2.com).
// authTTL — срок жизни закэшированной авторизации (B2 выдаёт токен на 24 часа,
// обновляем с запасом).
func New(
	apiURL string,
	accountID string,
	applicationKey string,
	bucketName string,
	timeout time.Duration,
	authTTL time.Duration,
	logger *slog.Logger,
) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		apiURL:         strings.TrimRight(apiURL, "/"),
		accountID:      accountID,
		applicationKey: applicationKey,
		bucketName:     bucketName,
		authTTL:        authTTL,
		logger:         logger.With(slog.String("component", "b2_client")),
	}
}

// Authorize возвращает действующую авторизацию аккаунта.
// Использует кэш: если авторизация ещё валидна, возвращает закэшированную.
// Иначе запрашивает новую через b2_authorize_account.
func (c *Client) Authorize(ctx context.Context) (Auth, error) {
	// Проверяем кэш (read lock)
	c.mu.RLock()
	if c.auth != nil && time.Now().Before(c.auth.expiresAt) {
		auth := c.auth.auth
		c.mu.RUnlock()
		return auth, nil
	}
	c.mu.RUnlock()

	// Запрашиваем новую авторизацию (write lock)
	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check после получения write lock
	if c.auth != nil && time.Now().Before(c.auth.expiresAt) {
		return c.auth.auth, nil
	}

	auth, err := c.requestAuth(ctx)
	if err != nil {
		return Auth{}, err
	}

	return auth, nil
}

// InvalidateAuth сбрасывает закэшированную авторизацию.
// Вызывается при ответах 401 от B2, чтобы следующий вызов
// запросил свежий токен.
func (c *Client) InvalidateAuth() {
	c.mu.Lock()
	c.auth = nil
	c.mu.Unlock()
}

// GetUploadURL запрашивает upload URL для бакета через b2_get_upload_url.
// Каждый вызов возвращает отдельный URL с собственным токеном —
// B2 не допускает параллельные загрузки через один upload URL.
func (c *Client) GetUploadURL(ctx context.Context, bucketID string) (*UploadTarget, error) {
	body := map[string]string{"bucketId": bucketID}

	var target UploadTarget
	if err := c.apiCall(ctx, "b2_get_upload_url", body, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// ListFileNames перечисляет файлы бакета через b2_list_file_names.
// prefix ограничивает выборку, maxCount <= 0 заменяется значением 1000.
func (c *Client) ListFileNames(ctx context.Context, bucketID, prefix string, maxCount int) ([]FileVersion, error) {
	if maxCount <= 0 {
		maxCount = 1000
	}
	body := map[string]any{
		"bucketId":     bucketID,
		"maxFileCount": maxCount,
	}
	if prefix != "" {
		body["prefix"] = prefix
	}

	var result struct {
		Files []FileVersion `json:"files"`
	}
	if err := c.apiCall(ctx, "b2_list_file_names", body, &result); err != nil {
		return nil, err
	}
	return result.Files, nil
}

// DownloadURL строит публичный URL файла:
// {downloadUrl}/file/{bucket}/{path}, сегменты пути экранируются.
func (c *Client) DownloadURL(ctx context.Context, filePath string) (string, error) {
	auth, err := c.Authorize(ctx)
	if err != nil {
		return "", err
	}

	segments := strings.Split(filePath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return fmt.Sprintf("%s/file/%s/%s", auth.DownloadURL, c.bucketName, strings.Join(segments, "/")), nil
}

// requestAuth запрашивает авторизацию через b2_authorize_account.
// Вызывается под write lock.
func (c *Client) requestAuth(ctx context.Context) (Auth, error) {
	authURL := c.apiURL + "/b2api/v2/b2_authorize_account"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, http.NoBody)
	if err != nil {
		return Auth{}, fmt.Errorf("создание запроса авторизации: %w", err)
	}
	req.SetBasicAuth(c.accountID, c.applicationKey)

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return Auth{}, fmt.Errorf("запрос b2_authorize_account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Auth{}, readAPIError(resp)
	}

	var authResp struct {
		AuthorizationToken string `json:"authorizationToken"`
		APIURL             string `json:"apiUrl"`
		DownloadURL        string `json:"downloadUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return Auth{}, fmt.Errorf("декодирование ответа авторизации: %w", err)
	}

	if authResp.AuthorizationToken == "" {
		return Auth{}, fmt.Errorf("пустой authorizationToken в ответе B2")
	}

	auth := Auth{
		Token:       authResp.AuthorizationToken,
		APIURL:      strings.TrimRight(authResp.APIURL, "/"),
		DownloadURL: strings.TrimRight(authResp.DownloadURL, "/"),
	}

	// Кэшируем авторизацию (с запасом 5 минут до истечения TTL)
	c.auth = &authInfo{
		auth:      auth,
		expiresAt: time.Now().Add(c.authTTL - 5*time.Minute),
	}

	c.logger.Debug("Авторизация B2 получена",
		slog.String("api_url", auth.APIURL),
		slog.Duration("ttl", c.authTTL),
	)

	return auth, nil
}

// apiCall выполняет авторизованный POST к {apiUrl}/b2api/v2/{operation}.
func (c *Client) apiCall(ctx context.Context, operation string, body any, out any) error {
	auth, err := c.Authorize(ctx)
	if err != nil {
		return fmt.Errorf("авторизация для %s: %w", operation, err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("сериализация запроса %s: %w", operation, err)
	}

	reqURL := auth.APIURL + "/b2api/v2/" + operation
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("создание запроса %s: %w", operation, err)
	}
	req.Header.Set("Authorization", auth.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL от B2 API
	if err != nil {
		return fmt.Errorf("запрос %s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := readAPIError(resp)
		// Токен протух раньше TTL — сбрасываем кэш, чтобы
		// следующий вызов переавторизовался.
		if resp.StatusCode == http.StatusUnauthorized {
			c.InvalidateAuth()
		}
		return fmt.Errorf("%s: %w", operation, apiErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("декодирование ответа %s: %w", operation, err)
	}

	return nil
}

// readAPIError читает тело ошибки B2 в APIError.
func readAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(body) == 0 {
		apiErr.Message = resp.Status
		return apiErr
	}

	if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	apiErr.StatusCode = resp.StatusCode

	return apiErr
}
