// upload.go — обработчики /api/upload: двухфазная загрузка.
// presigned — выдача цели загрузки, complete — регистрация в каталоге,
// test — проверка доступности B2.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/api/errors"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/model"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/naming"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/service"
)

// presignRequest — тело POST /api/upload/presigned.
type presignRequest struct {
	Filename    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Area        string `json:"area"`
	Nucleo      string `json:"nucleo"`
	Tema        string `json:"tema"`
	Status      string `json:"status"`
}

// RequestUpload — POST /api/upload/presigned.
// Фаза 1: валидация, составление имени, выдача upload URL.
// Каталог не изменяется; байты файла идут от клиента в B2 напрямую.
func (h *APIHandler) RequestUpload(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректный JSON в теле запроса")
		return
	}

	result, err := h.upload.RequestUpload(r.Context(), service.PresignParams{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Size:        req.Size,
		Meta: naming.Classification{
			Area:   req.Area,
			Nucleo: req.Nucleo,
			Tema:   req.Tema,
			Status: model.Status(req.Status),
		},
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// confirmRequest — тело POST /api/upload/complete.
type confirmRequest struct {
	FilePath        string `json:"filePath"`
	Size            int64  `json:"size"`
	ContentType     string `json:"contentType"`
	Area            string `json:"area"`
	Nucleo          string `json:"nucleo"`
	Tema            string `json:"tema"`
	Status          string `json:"status"`
	Ponto           string `json:"ponto"`
	TipoProjeto     string `json:"tipoProjeto"`
	FuncaoHistorica string `json:"funcaoHistorica"`
	Evento          string `json:"evento"`
}

// ConfirmUpload — POST /api/upload/complete.
// Фаза 2: регистрация завершённой загрузки в каталоге. Идемпотентна.
func (h *APIHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректный JSON в теле запроса")
		return
	}

	record, err := h.upload.ConfirmUpload(r.Context(), req.FilePath, service.ConfirmMetadata{
		Size:            req.Size,
		ContentType:     req.ContentType,
		Area:            req.Area,
		Nucleo:          req.Nucleo,
		Tema:            req.Tema,
		Status:          req.Status,
		Ponto:           req.Ponto,
		TipoProjeto:     req.TipoProjeto,
		FuncaoHistorica: req.FuncaoHistorica,
		Evento:          req.Evento,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mediaItem{AssetMetadata: record, Tipo: record.MediaType()})
}

// TestUpload — GET /api/upload/test.
// Проверяет доступность B2 через авторизацию аккаунта.
func (h *APIHandler) TestUpload(w http.ResponseWriter, r *http.Request) {
	if err := h.upload.TestConnection(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
