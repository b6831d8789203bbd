// folders.go — обработчики /api/folders: корневые папки workflow,
// дерево структуры и содержимое папки.
package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/api/errors"
)

// ListFolders — GET /api/folders.
// Пять фиксированных корневых папок с количеством объектов.
func (h *APIHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.query.Folders(r.Context()))
}

// GetFolderStructure — GET /api/folders/structure.
// Иерархия папок каталога с количеством объектов в поддеревьях.
func (h *APIHandler) GetFolderStructure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.query.FolderTree(r.Context()))
}

// ListFolderFiles — GET /api/folders/{folderPath}/files.
// Маршрут подключается wildcard'ом: folderPath содержит "/"
// (вложенные папки) и может приходить URL-экранированным.
func (h *APIHandler) ListFolderFiles(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")

	rest, ok := strings.CutSuffix(raw, "/files")
	if !ok {
		apierrors.NotFound(w, "ресурс не найден")
		return
	}

	folderPath, err := url.PathUnescape(rest)
	if err != nil || folderPath == "" {
		apierrors.ValidationError(w, "некорректный путь папки")
		return
	}

	items := h.query.FolderFiles(r.Context(), folderPath)
	writeJSON(w, http.StatusOK, toMediaItems(items))
}
