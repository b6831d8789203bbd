// media.go — обработчики /api/media: выборка, статистика,
// карточка объекта, ссылка на скачивание, статус, удаление.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/api/errors"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/model"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/storage/catalog"
)

// mediaItem — запись каталога с вычисленным типом медиа.
type mediaItem struct {
	*model.AssetMetadata
	Tipo model.MediaType `json:"tipo"`
}

func toMediaItems(items []*model.AssetMetadata) []mediaItem {
	result := make([]mediaItem, 0, len(items))
	for _, m := range items {
		result = append(result, mediaItem{AssetMetadata: m, Tipo: m.MediaType()})
	}
	return result
}

// ListMedia — GET /api/media.
// Фильтры через query-параметры: area, nucleo, tema, status, ponto,
// tipoProjeto, funcaoHistorica, evento, ano, mes, search.
func (h *APIHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := catalog.Filters{
		Area:            q.Get("area"),
		Nucleo:          q.Get("nucleo"),
		Tema:            q.Get("tema"),
		Status:          q.Get("status"),
		Ponto:           q.Get("ponto"),
		TipoProjeto:     q.Get("tipoProjeto"),
		FuncaoHistorica: q.Get("funcaoHistorica"),
		Evento:          q.Get("evento"),
		Ano:             q.Get("ano"),
		Mes:             q.Get("mes"),
		Search:          q.Get("search"),
	}

	items := h.query.List(r.Context(), filters)
	writeJSON(w, http.StatusOK, toMediaItems(items))
}

// GetMediaStats — GET /api/media/stats.
func (h *APIHandler) GetMediaStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.query.Stats(r.Context()))
}

// GetMedia — GET /api/media/{id}.
func (h *APIHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	meta, err := h.query.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mediaItem{AssetMetadata: meta, Tipo: meta.MediaType()})
}

// GetMediaURL — GET /api/media/{id}/url.
func (h *APIHandler) GetMediaURL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, err := h.query.DownloadURL(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// updateStatusRequest — тело PATCH /api/media/{id}/status.
type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateMediaStatus — PATCH /api/media/{id}/status.
// Меняет только статус записи; объект в bucket не перемещается.
func (h *APIHandler) UpdateMediaStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "некорректный JSON в теле запроса")
		return
	}

	record, err := h.upload.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mediaItem{AssetMetadata: record, Tipo: record.MediaType()})
}

// DeleteMedia — DELETE /api/media/{id}.
// Удаляет запись каталога; объект в bucket не удаляется.
func (h *APIHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.upload.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
