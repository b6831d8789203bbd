// sqlite.go — реализация Repository поверх database/sql + SQLite.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/model"
)

// uploadedAtLayout — формат хранения uploaded_at. Фиксированная ширина
// дробной части: лексикографический порядок TEXT-столбца совпадает
// с хронологическим (RFC3339Nano отбрасывает нули и ломает сортировку
// на границе секунды).
const uploadedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// assetColumns — список столбцов таблицы assets для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const assetColumns = `id, file_name, file_path, size, content_type, uploaded_at,
	url, thumbnail_url, area, nucleo, tema, status, ponto, tipo_projeto,
	funcao_historica, evento, ano, mes, dia, token, extensao`

// sqliteRepo — реализация Repository через database/sql.
type sqliteRepo struct {
	db *sql.DB
}

// NewRepository создаёт репозиторий каталога поверх открытой БД.
func NewRepository(db *sql.DB) Repository {
	return &sqliteRepo{db: db}
}

// GetAll возвращает все записи каталога, новые первыми.
func (r *sqliteRepo) GetAll(ctx context.Context) ([]*model.AssetMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets ORDER BY uploaded_at DESC`, assetColumns)
	return r.queryMany(ctx, query)
}

// GetByID возвращает запись по id или ErrNotFound.
func (r *sqliteRepo) GetByID(ctx context.Context, id string) (*model.AssetMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE id = ?`, assetColumns)
	return r.queryOne(ctx, query, id)
}

// GetByPath возвращает запись по file_path или ErrNotFound.
func (r *sqliteRepo) GetByPath(ctx context.Context, filePath string) (*model.AssetMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE file_path = ?`, assetColumns)
	return r.queryOne(ctx, query, filePath)
}

// Save выполняет upsert по id в одной транзакции.
// При обновлении непустые поля новой записи побеждают,
// uploadedAt существующей записи сохраняется, если новый не задан.
func (r *sqliteRepo) Save(ctx context.Context, meta *model.AssetMetadata) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`SELECT %s FROM assets WHERE id = ?`, assetColumns)
	existing, err := scanAsset(tx.QueryRowContext(ctx, query, meta.ID))
	switch {
	case err == nil:
		merged := mergeAssets(existing, meta)
		if err := r.update(ctx, tx, merged); err != nil {
			return err
		}
		*meta = *merged
	case errors.Is(err, sql.ErrNoRows):
		if err := r.insert(ctx, tx, meta); err != nil {
			return err
		}
	default:
		return fmt.Errorf("ошибка чтения существующей записи: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Delete удаляет запись по id. Возвращает false, если запись не найдена.
func (r *sqliteRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("ошибка удаления записи: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка подсчёта удалённых строк: %w", err)
	}
	return n > 0, nil
}

// Search возвращает записи по фильтрам, новые первыми.
// Пустые фильтры эквивалентны полной выборке.
func (r *sqliteRepo) Search(ctx context.Context, f Filters) ([]*model.AssetMetadata, error) {
	if f.Empty() {
		return r.GetAll(ctx)
	}

	where, args := buildSearchWhere(f)
	query := fmt.Sprintf(`SELECT %s FROM assets %s ORDER BY uploaded_at DESC`, assetColumns, where)
	return r.queryMany(ctx, query, args...)
}

// ListByFolder возвращает записи папки с сопоставлением по целым
// сегментам пути: совпадает либо сама папка, либо её содержимое
// через разделитель "/".
func (r *sqliteRepo) ListByFolder(ctx context.Context, folderPath string) ([]*model.AssetMetadata, error) {
	prefix := strings.TrimRight(folderPath, "/")
	query := fmt.Sprintf(
		`SELECT %s FROM assets WHERE file_path = ? OR file_path LIKE ? ESCAPE '\' ORDER BY uploaded_at DESC`,
		assetColumns,
	)
	return r.queryMany(ctx, query, prefix, escapeLike(prefix)+"/%")
}

// CountByFolder возвращает количество записей по корневым папкам
// (первый сегмент file_path).
func (r *sqliteRepo) CountByFolder(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT
			CASE WHEN instr(file_path, '/') > 0
				THEN substr(file_path, 1, instr(file_path, '/') - 1)
				ELSE file_path
			END AS folder,
			COUNT(*)
		FROM assets
		GROUP BY folder`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта по папкам: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var folder string
		var count int
		if err := rows.Scan(&folder, &count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования счётчика папки: %w", err)
		}
		counts[folder] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации счётчиков: %w", err)
	}
	return counts, nil
}

// --- Внутренние помощники ---

// insert вставляет новую запись.
func (r *sqliteRepo) insert(ctx context.Context, tx *sql.Tx, m *model.AssetMetadata) error {
	query := fmt.Sprintf(`INSERT INTO assets (%s) VALUES (%s)`,
		assetColumns, strings.TrimSuffix(strings.Repeat("?, ", 21), ", "))

	_, err := tx.ExecContext(ctx, query, assetArgs(m)...)
	if err != nil {
		return fmt.Errorf("ошибка вставки записи: %w", err)
	}
	return nil
}

// update перезаписывает существующую запись по id.
func (r *sqliteRepo) update(ctx context.Context, tx *sql.Tx, m *model.AssetMetadata) error {
	query := `
		UPDATE assets SET
			file_name = ?, file_path = ?, size = ?, content_type = ?,
			uploaded_at = ?, url = ?, thumbnail_url = ?, area = ?, nucleo = ?,
			tema = ?, status = ?, ponto = ?, tipo_projeto = ?,
			funcao_historica = ?, evento = ?, ano = ?, mes = ?, dia = ?,
			token = ?, extensao = ?
		WHERE id = ?`

	args := assetArgs(m)
	// id — последним аргументом WHERE вместо первого столбца
	args = append(args[1:], m.ID)

	_, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления записи: %w", err)
	}
	return nil
}

// queryOne выполняет запрос одной записи.
func (r *sqliteRepo) queryOne(ctx context.Context, query string, args ...any) (*model.AssetMetadata, error) {
	m, err := scanAsset(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return m, nil
}

// queryMany выполняет запрос списка записей.
func (r *sqliteRepo) queryMany(ctx context.Context, query string, args ...any) ([]*model.AssetMetadata, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки записей: %w", err)
	}
	defer rows.Close()

	var result []*model.AssetMetadata
	for rows.Next() {
		m, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации записей: %w", err)
	}
	return result, nil
}

// rowScanner покрывает *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAsset читает одну строку таблицы assets.
func scanAsset(row rowScanner) (*model.AssetMetadata, error) {
	m := &model.AssetMetadata{}
	var uploadedAt string
	if err := row.Scan(
		&m.ID, &m.FileName, &m.FilePath, &m.Size, &m.ContentType, &uploadedAt,
		&m.URL, &m.ThumbnailURL, &m.Area, &m.Nucleo, &m.Tema, &m.Status,
		&m.Ponto, &m.TipoProjeto, &m.FuncaoHistorica, &m.Evento,
		&m.Ano, &m.Mes, &m.Dia, &m.Token, &m.Extensao,
	); err != nil {
		return nil, err
	}
	if uploadedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, uploadedAt)
		if err != nil {
			return nil, fmt.Errorf("некорректный uploaded_at %q: %w", uploadedAt, err)
		}
		m.UploadedAt = t
	}
	return m, nil
}

// assetArgs возвращает аргументы записи в порядке assetColumns.
func assetArgs(m *model.AssetMetadata) []any {
	uploadedAt := ""
	if !m.UploadedAt.IsZero() {
		uploadedAt = m.UploadedAt.UTC().Format(uploadedAtLayout)
	}
	return []any{
		m.ID, m.FileName, m.FilePath, m.Size, m.ContentType, uploadedAt,
		m.URL, m.ThumbnailURL, m.Area, m.Nucleo, m.Tema, string(m.Status),
		m.Ponto, m.TipoProjeto, m.FuncaoHistorica, m.Evento,
		m.Ano, m.Mes, m.Dia, m.Token, m.Extensao,
	}
}

// mergeAssets накладывает новую запись на существующую:
// непустые поля новой записи побеждают, uploadedAt существующей
// сохраняется, если новый не задан.
func mergeAssets(existing, incoming *model.AssetMetadata) *model.AssetMetadata {
	merged := *existing

	if incoming.FileName != "" {
		merged.FileName = incoming.FileName
	}
	if incoming.FilePath != "" {
		merged.FilePath = incoming.FilePath
	}
	if incoming.Size != 0 {
		merged.Size = incoming.Size
	}
	if incoming.ContentType != "" {
		merged.ContentType = incoming.ContentType
	}
	if !incoming.UploadedAt.IsZero() {
		merged.UploadedAt = incoming.UploadedAt
	}
	if incoming.URL != "" {
		merged.URL = incoming.URL
	}
	if incoming.ThumbnailURL != "" {
		merged.ThumbnailURL = incoming.ThumbnailURL
	}
	if incoming.Area != "" {
		merged.Area = incoming.Area
	}
	if incoming.Nucleo != "" {
		merged.Nucleo = incoming.Nucleo
	}
	if incoming.Tema != "" {
		merged.Tema = incoming.Tema
	}
	if incoming.Status != "" {
		merged.Status = incoming.Status
	}
	if incoming.Ponto != "" {
		merged.Ponto = incoming.Ponto
	}
	if incoming.TipoProjeto != "" {
		merged.TipoProjeto = incoming.TipoProjeto
	}
	if incoming.FuncaoHistorica != "" {
		merged.FuncaoHistorica = incoming.FuncaoHistorica
	}
	if incoming.Evento != "" {
		merged.Evento = incoming.Evento
	}
	if incoming.Ano != "" {
		merged.Ano = incoming.Ano
	}
	if incoming.Mes != "" {
		merged.Mes = incoming.Mes
	}
	if incoming.Dia != "" {
		merged.Dia = incoming.Dia
	}
	if incoming.Token != "" {
		merged.Token = incoming.Token
	}
	if incoming.Extensao != "" {
		merged.Extensao = incoming.Extensao
	}

	return &merged
}

// buildSearchWhere строит WHERE-условие и аргументы для поиска.
// Пустые критерии пропускаются.
func buildSearchWhere(f Filters) (whereClause string, args []any) {
	var conditions []string

	addEq := func(column, value string) {
		if value != "" {
			conditions = append(conditions, column+" = ?")
			args = append(args, value)
		}
	}

	addEq("area", f.Area)
	addEq("nucleo", f.Nucleo)
	addEq("tema", f.Tema)
	addEq("status", f.Status)
	addEq("ponto", f.Ponto)
	addEq("tipo_projeto", f.TipoProjeto)
	addEq("funcao_historica", f.FuncaoHistorica)
	addEq("evento", f.Evento)
	addEq("ano", f.Ano)
	addEq("mes", f.Mes)

	// Свободный поиск: подстрока без учёта регистра по имени файла,
	// области, теме и ядру (OR между полями).
	if f.Search != "" {
		needle := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		conditions = append(conditions, `(
			LOWER(file_name) LIKE ? ESCAPE '\'
			OR LOWER(area) LIKE ? ESCAPE '\'
			OR LOWER(tema) LIKE ? ESCAPE '\'
			OR LOWER(nucleo) LIKE ? ESCAPE '\')`)
		args = append(args, needle, needle, needle, needle)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// escapeLike экранирует метасимволы LIKE в пользовательском вводе.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
