// Пакет errors — конструкторы стандартных ошибок API каталога.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок API.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeStorageAuthFailed    = "STORAGE_AUTH_FAILED"
	CodeStorageRequestFailed = "STORAGE_REQUEST_FAILED"
	CodeStorageWriteFailed   = "STORAGE_WRITE_FAILED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// StorageAuthFailed — 502 хранилище отклонило аутентификацию.
func StorageAuthFailed(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeStorageAuthFailed, message)
}

// StorageRequestFailed — 502 хранилище недоступно или отклонило запрос.
func StorageRequestFailed(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeStorageRequestFailed, message)
}

// StorageWriteFailed — 500 не удалось записать метаданные в каталог.
func StorageWriteFailed(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeStorageWriteFailed, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
