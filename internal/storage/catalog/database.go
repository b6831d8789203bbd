// database.go — открытие SQLite-каталога, применение миграций
// (golang-migrate) и проверка готовности.
package catalog

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // драйвер миграций sqlite (modernc)
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // database/sql драйвер "sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open открывает (или создаёт) файл каталога и проверяет подключение.
// Отсутствие файла эквивалентно пустому каталогу.
func Open(dbPath string, logger *slog.Logger) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных: %w", err)
	}

	// busy_timeout — конкурентные запросы ждут вместо SQLITE_BUSY,
	// WAL — читатели не блокируются писателем.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия каталога: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к каталогу: %w", err)
	}

	logger.Info("Каталог SQLite открыт", slog.String("path", dbPath))
	return db, nil
}

// Migrate применяет SQL-миграции из embedded FS к каталогу.
// Использует golang-migrate с драйвером sqlite.
func Migrate(dbPath string, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, "sqlite://"+dbPath)
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции каталога применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}

// ReadinessChecker — проверка готовности каталога для health endpoint.
type ReadinessChecker struct {
	db *sql.DB
}

// NewReadinessChecker создаёт проверку готовности каталога.
func NewReadinessChecker(db *sql.DB) *ReadinessChecker {
	return &ReadinessChecker{db: db}
}

// CheckReady проверяет доступность каталога через ping.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	if c.db == nil {
		return "fail", "каталог не инициализирован"
	}
	if err := c.db.Ping(); err != nil {
		return "fail", err.Error()
	}
	return "ok", ""
}
