// Пакет model — доменные модели каталога RC Acervo.
// AssetMetadata — единая структура метаданных медиа-объекта, используется
// как строка каталога в SQLite и как формат API-ответов.
package model

import (
	"strings"
	"time"
)

// Status — статус объекта в рабочем процессе каталогизации.
// Значения фиксированы и упорядочены, совпадают с метками архива.
type Status string

const (
	// StatusEntrada — исходный материал, ещё не каталогизирован
	StatusEntrada Status = "Entrada (Bruto)"
	// StatusCatalogado — внесён в каталог
	StatusCatalogado Status = "Catalogado"
	// StatusProducao — в производстве
	StatusProducao Status = "Em produção"
	// StatusPublicado — опубликован
	StatusPublicado Status = "Publicado"
	// StatusArquivado — перемещён в архив
	StatusArquivado Status = "Arquivado"
)

// DefaultStatus — статус по умолчанию для новых загрузок.
const DefaultStatus = StatusEntrada

// Statuses возвращает все допустимые статусы в рабочем порядке.
func Statuses() []Status {
	return []Status{StatusEntrada, StatusCatalogado, StatusProducao, StatusPublicado, StatusArquivado}
}

// IsValidStatus проверяет, входит ли значение в фиксированный набор статусов.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusEntrada, StatusCatalogado, StatusProducao, StatusPublicado, StatusArquivado:
		return true
	}
	return false
}

// Корневые папки bucket'а. Порядковый номер в имени совпадает
// с позицией статуса в рабочем процессе.
const (
	FolderEntrada    = "00_ENTRADA"
	FolderCatalogado = "01_CATALOGADO"
	FolderProducao   = "02_PRODUCAO"
	FolderPublicado  = "03_PUBLICADO"
	FolderArquivado  = "04_ARQUIVADO"
)

// FolderForStatus возвращает корневую папку для статуса.
// Размещение по папкам — чистая функция статуса; неизвестные
// значения попадают в папку входящих.
func FolderForStatus(s Status) string {
	switch s {
	case StatusCatalogado:
		return FolderCatalogado
	case StatusProducao:
		return FolderProducao
	case StatusPublicado:
		return FolderPublicado
	case StatusArquivado:
		return FolderArquivado
	default:
		return FolderEntrada
	}
}

// Folder — элемент фиксированной структуры корневых папок.
type Folder struct {
	// ID — машинный идентификатор папки
	ID string `json:"id"`
	// Name — отображаемое имя
	Name string `json:"name"`
	// Slug — имя папки в bucket
	Slug string `json:"slug"`
	// Count — количество объектов в папке
	Count int `json:"count"`
}

// Folders возвращает фиксированный список из пяти корневых папок
// (без заполненных счётчиков).
func Folders() []Folder {
	return []Folder{
		{ID: "entrada", Name: "00 - Entrada (Bruto)", Slug: FolderEntrada},
		{ID: "catalogado", Name: "01 - Catalogado", Slug: FolderCatalogado},
		{ID: "producao", Name: "02 - Em Produção", Slug: FolderProducao},
		{ID: "publicado", Name: "03 - Publicado", Slug: FolderPublicado},
		{ID: "arquivado", Name: "04 - Arquivado", Slug: FolderArquivado},
	}
}

// MediaType — тип медиа, определяемый по расширению файла.
type MediaType string

const (
	// MediaImage — фотография
	MediaImage MediaType = "imagem"
	// MediaVideo — видео
	MediaVideo MediaType = "video"
)

// imageExtensions — расширения, учитываемые как изображения в статистике.
var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"webp": true, "bmp": true, "tiff": true, "raw": true,
}

// videoExtensions — расширения, учитываемые как видео в статистике.
var videoExtensions = map[string]bool{
	"mp4": true, "mov": true, "avi": true, "mkv": true,
	"webm": true, "flv": true, "wmv": true,
}

// IsImageExt проверяет расширение (без точки) по списку изображений.
func IsImageExt(ext string) bool {
	return imageExtensions[strings.ToLower(ext)]
}

// IsVideoExt проверяет расширение (без точки) по списку видео.
func IsVideoExt(ext string) bool {
	return videoExtensions[strings.ToLower(ext)]
}

// MediaTypeOf определяет тип медиа по имени файла.
// Нераспознанные расширения считаются изображениями —
// сетка каталога всегда пытается показать превью.
func MediaTypeOf(fileName string) MediaType {
	ext := ""
	if idx := strings.LastIndex(fileName, "."); idx != -1 {
		ext = fileName[idx+1:]
	}
	if IsVideoExt(ext) {
		return MediaVideo
	}
	return MediaImage
}

// AssetMetadata — метаданные одного объекта каталога.
// id и filePath уникальны в пределах каталога; повторное сохранение
// с существующим id выполняет merge-обновление, не дубликат.
type AssetMetadata struct {
	// ID — уникальный идентификатор, детерминированно выводится
	// из стандартизированного имени файла (точки → подчёркивания)
	ID string `json:"id"`

	// FileName — стандартизированное имя файла
	FileName string `json:"fileName"`

	// FilePath — полный путь в bucket (альтернативный ключ поиска)
	FilePath string `json:"filePath"`

	// Size — размер объекта в байтах
	Size int64 `json:"size"`

	// ContentType — MIME-тип объекта
	ContentType string `json:"contentType"`

	// UploadedAt — момент подтверждения загрузки (UTC, выставляется сервером)
	UploadedAt time.Time `json:"uploadedAt"`

	// URL — публичный адрес объекта
	URL string `json:"url"`

	// ThumbnailURL — адрес превью (при отсутствии равен URL)
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`

	// Классификация архива
	Area            string `json:"area"`
	Nucleo          string `json:"nucleo,omitempty"`
	Tema            string `json:"tema"`
	Status          Status `json:"status"`
	Ponto           string `json:"ponto,omitempty"`
	TipoProjeto     string `json:"tipoProjeto,omitempty"`
	FuncaoHistorica string `json:"funcaoHistorica,omitempty"`
	Evento          string `json:"evento,omitempty"`

	// Компоненты, выведенные из стандартизированного имени.
	// Денормализованы для быстрой фильтрации без повторного парсинга.
	Ano      string `json:"ano"`
	Mes      string `json:"mes"`
	Dia      string `json:"dia"`
	Token    string `json:"uuid"`
	Extensao string `json:"extensao"`
}

// Thumbnail возвращает адрес превью, по умолчанию — основной URL.
func (m *AssetMetadata) Thumbnail() string {
	if m.ThumbnailURL != "" {
		return m.ThumbnailURL
	}
	return m.URL
}

// MediaType возвращает тип медиа объекта.
func (m *AssetMetadata) MediaType() MediaType {
	return MediaTypeOf(m.FileName)
}
