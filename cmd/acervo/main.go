// main.go — точка входа сервиса каталога RC Acervo.
// Порядок запуска: конфигурация → логгер → каталог SQLite (миграции +
// подключение) → B2-клиент → сервисы → мониторинг зависимостей →
// HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/api/handlers"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/api/middleware"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/b2client"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/config"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/server"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/service"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/storage/catalog"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Сервис каталога запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Каталог SQLite: миграции схемы, затем подключение
	dbPath := cfg.DatabasePath()
	if err := catalog.Migrate(dbPath, logger); err != nil {
		log.Fatalf("Ошибка миграций каталога: %v", err)
	}
	db, err := catalog.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Ошибка открытия каталога: %v", err)
	}
	defer db.Close()

	repo := catalog.NewRepository(db)

	// 4. B2-клиент (кэш авторизации на B2_AUTH_TTL)
	b2 := b2client.New(
		cfg.B2APIURL,
		cfg.B2AccountID,
		cfg.B2ApplicationKey,
		cfg.B2BucketName,
		cfg.B2Timeout,
		cfg.B2AuthTTL,
		logger,
	)

	// 5. Сервисный слой
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	queryService := service.NewQueryService(repo, cache, b2, logger)
	uploadService := service.NewUploadService(repo, b2, cfg.B2BucketID, cache, logger)

	// 6. Мониторинг зависимостей (topologymetrics)
	dephealthService, err := service.NewDephealthService(
		"acervo",
		cfg.DephealthGroup,
		cfg.B2APIURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if err != nil {
		log.Fatalf("Ошибка инициализации мониторинга зависимостей: %v", err)
	}
	if err := dephealthService.Start(context.Background()); err != nil {
		log.Fatalf("Ошибка запуска мониторинга зависимостей: %v", err)
	}
	defer dephealthService.Stop()

	// 7. HTTP-обработчики
	healthHandler := handlers.NewHealthHandler(catalog.NewReadinessChecker(db))
	apiHandler := handlers.NewAPIHandler(queryService, uploadService, healthHandler, logger)

	// 8. HTTP-сервер с middleware (метрики до логирования)
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 9. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		log.Fatalf("Сервер завершился с ошибкой: %v", err)
	}

	logger.Info("Сервис каталога остановлен")
}
