// Пакет catalog — слой доступа к данным каталога медиа-объектов.
// Хранилище — встраиваемый SQLite (драйвер modernc, без cgo),
// один файл в директории данных. Все запросы — чистый SQL, без ORM.
// Записи адресуются по id (первичный ключ) и по file_path
// (уникальный вторичный индекс).
package catalog

import (
	"context"
	"errors"

	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/model"
)

// Ошибки слоя репозитория.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
)

// Filters — критерии выборки каталога.
// Пустое поле означает отсутствие фильтра, не совпадение с пустой строкой.
// Все фильтры конъюнктивны (AND); Search — case-insensitive подстрока
// по fileName, area, tema и nucleo (OR между этими полями).
type Filters struct {
	Area            string
	Nucleo          string
	Tema            string
	Status          string
	Ponto           string
	TipoProjeto     string
	FuncaoHistorica string
	Evento          string
	Ano             string
	Mes             string
	Search          string
}

// Empty возвращает true, если ни один критерий не задан.
func (f Filters) Empty() bool {
	return f == Filters{}
}

// Repository — интерфейс доступа к записям каталога.
type Repository interface {
	// GetAll возвращает все записи, новые первыми.
	GetAll(ctx context.Context) ([]*model.AssetMetadata, error)
	// GetByID возвращает запись по id или ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.AssetMetadata, error)
	// GetByPath возвращает запись по file_path или ErrNotFound.
	GetByPath(ctx context.Context, filePath string) (*model.AssetMetadata, error)
	// Save выполняет upsert по id: вставку новой записи или
	// merge-обновление существующей (непустые поля новой записи
	// побеждают, uploadedAt сохраняется, если явно не передан).
	Save(ctx context.Context, meta *model.AssetMetadata) error
	// Delete удаляет запись по id. Возвращает false, если запись не найдена.
	Delete(ctx context.Context, id string) (bool, error)
	// Search возвращает записи, удовлетворяющие фильтрам, новые первыми.
	Search(ctx context.Context, f Filters) ([]*model.AssetMetadata, error)
	// ListByFolder возвращает записи папки. Сопоставление ведётся
	// по целым сегментам пути: префикс "00_ENTRA" не захватывает
	// "00_ENTRADA".
	ListByFolder(ctx context.Context, folderPath string) ([]*model.AssetMetadata, error)
	// CountByFolder возвращает количество записей по корневым папкам.
	CountByFolder(ctx context.Context) (map[string]int, error)
}
