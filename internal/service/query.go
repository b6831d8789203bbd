// query.go — QueryService: чтение каталога, папки, статистика.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/model"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/storage/catalog"
)

// Ошибки сервисного слоя.
var (
	// ErrNotFound — объект каталога не найден.
	ErrNotFound = errors.New("объект не найден")
)

// Prometheus-метрики запросов к каталогу.
var (
	catalogQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "acervo_catalog_queries_total",
		Help: "Общее количество запросов к каталогу по операциям.",
	}, []string{"operation"})
	catalogQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "acervo_catalog_query_duration_seconds",
		Help:    "Длительность запросов к каталогу.",
		Buckets: prometheus.DefBuckets,
	})
	assetsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "acervo_assets",
		Help: "Количество объектов каталога по статусам (обновляется при подсчёте статистики).",
	}, []string{"status"})
)

// DownloadInfo — разрешённая ссылка на скачивание объекта.
type DownloadInfo struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	FileName     string `json:"fileName"`
	ContentType  string `json:"contentType"`
}

// FolderNode — узел иерархии папок.
type FolderNode struct {
	Name     string        `json:"nome"`
	Path     string        `json:"path"`
	Count    int           `json:"quantidade"`
	Children []*FolderNode `json:"subpastas,omitempty"`
}

// Stats — агрегированная статистика каталога.
type Stats struct {
	TotalItens   int            `json:"totalItens"`
	TotalImagens int            `json:"totalImagens"`
	TotalVideos  int            `json:"totalVideos"`
	PorStatus    map[string]int `json:"porStatus"`
	PorArea      map[string]int `json:"porArea"`
	PorTema      map[string]int `json:"porTema"`
	PorNucleo    map[string]int `json:"porNucleo"`
	PorMes       map[string]int `json:"porMes"`
}

// URLResolver — построение публичного URL по пути файла в бакете.
type URLResolver interface {
	DownloadURL(ctx context.Context, filePath string) (string, error)
}

// QueryService — чтение каталога: выборки, папки, статистика.
// Ошибки чтения в списочных операциях деградируют до пустого
// результата: каталог остаётся просматриваемым при сбое хранилища.
type QueryService struct {
	repo     catalog.Repository
	cache    *CacheService
	resolver URLResolver
	logger   *slog.Logger
}

// NewQueryService создаёт сервис запросов к каталогу.
func NewQueryService(
	repo catalog.Repository,
	cache *CacheService,
	resolver URLResolver,
	logger *slog.Logger,
) *QueryService {
	return &QueryService{
		repo:     repo,
		cache:    cache,
		resolver: resolver,
		logger:   logger.With(slog.String("component", "query_service")),
	}
}

// List возвращает записи каталога по фильтрам, новые первыми.
// Ошибка чтения логируется и деградирует до пустого списка.
func (s *QueryService) List(ctx context.Context, f catalog.Filters) []*model.AssetMetadata {
	defer s.observe("list", time.Now())

	items, err := s.repo.Search(ctx, f)
	if err != nil {
		s.logger.Warn("Ошибка выборки каталога, возвращается пустой список",
			slog.String("error", err.Error()),
		)
		return []*model.AssetMetadata{}
	}
	if items == nil {
		items = []*model.AssetMetadata{}
	}
	return items
}

// Get возвращает запись по id. Сначала кэш, затем репозиторий.
func (s *QueryService) Get(ctx context.Context, id string) (*model.AssetMetadata, error) {
	defer s.observe("get", time.Now())

	if meta, ok := s.cache.Get(id); ok {
		return meta, nil
	}

	meta, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение записи %s: %w", id, err)
	}

	s.cache.Set(id, meta)
	return meta, nil
}

// DownloadURL возвращает ссылку на скачивание объекта.
// Использует сохранённый url записи; если он пуст, строит ссылку
// по file_path через B2-клиент.
func (s *QueryService) DownloadURL(ctx context.Context, id string) (*DownloadInfo, error) {
	meta, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	downloadURL := meta.URL
	if downloadURL == "" {
		downloadURL, err = s.resolver.DownloadURL(ctx, meta.FilePath)
		if err != nil {
			return nil, fmt.Errorf("построение ссылки для %s: %w", id, err)
		}
	}

	thumbnailURL := meta.Thumbnail()
	if thumbnailURL == "" {
		thumbnailURL = downloadURL
	}

	return &DownloadInfo{
		URL:          downloadURL,
		ThumbnailURL: thumbnailURL,
		FileName:     meta.FileName,
		ContentType:  meta.ContentType,
	}, nil
}

// Folders возвращает пять фиксированных корневых папок workflow
// с количеством объектов в каждой.
func (s *QueryService) Folders(ctx context.Context) []model.Folder {
	defer s.observe("folders", time.Now())

	counts, err := s.repo.CountByFolder(ctx)
	if err != nil {
		s.logger.Warn("Ошибка подсчёта по папкам, счётчики обнулены",
			slog.String("error", err.Error()),
		)
		counts = map[string]int{}
	}

	folders := model.Folders()
	for i := range folders {
		folders[i].Count = counts[folders[i].Slug]
	}
	return folders
}

// FolderFiles возвращает записи папки (сопоставление по целым
// сегментам пути). Ошибка чтения деградирует до пустого списка.
func (s *QueryService) FolderFiles(ctx context.Context, folderPath string) []*model.AssetMetadata {
	defer s.observe("folder_files", time.Now())

	items, err := s.repo.ListByFolder(ctx, folderPath)
	if err != nil {
		s.logger.Warn("Ошибка выборки папки, возвращается пустой список",
			slog.String("folder", folderPath),
			slog.String("error", err.Error()),
		)
		return []*model.AssetMetadata{}
	}
	if items == nil {
		items = []*model.AssetMetadata{}
	}
	return items
}

// FolderTree строит иерархию папок каталога по путям записей.
// Листовые сегменты (имена файлов) не включаются; счётчик узла —
// количество объектов в поддереве.
func (s *QueryService) FolderTree(ctx context.Context) []*FolderNode {
	defer s.observe("folder_tree", time.Now())

	items, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Warn("Ошибка построения дерева папок",
			slog.String("error", err.Error()),
		)
		return []*FolderNode{}
	}

	root := &FolderNode{}
	for _, m := range items {
		segments := strings.Split(m.FilePath, "/")
		if len(segments) < 2 {
			continue
		}
		// Последний сегмент — имя файла, не папка.
		node := root
		path := ""
		for _, seg := range segments[:len(segments)-1] {
			if path == "" {
				path = seg
			} else {
				path += "/" + seg
			}
			node = node.child(seg, path)
			node.Count++
		}
	}

	sortTree(root.Children)
	return root.Children
}

// child возвращает дочерний узел с именем name, создавая при отсутствии.
func (n *FolderNode) child(name, path string) *FolderNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	c := &FolderNode{Name: name, Path: path}
	n.Children = append(n.Children, c)
	return c
}

// sortTree упорядочивает узлы дерева по имени на каждом уровне.
func sortTree(nodes []*FolderNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for _, n := range nodes {
		sortTree(n.Children)
	}
}

// Stats агрегирует статистику каталога за один проход по записям.
// Ошибка чтения деградирует до нулевой статистики.
func (s *QueryService) Stats(ctx context.Context) *Stats {
	defer s.observe("stats", time.Now())

	stats := &Stats{
		PorStatus: map[string]int{},
		PorArea:   map[string]int{},
		PorTema:   map[string]int{},
		PorNucleo: map[string]int{},
		PorMes:    map[string]int{},
	}

	items, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Warn("Ошибка подсчёта статистики каталога",
			slog.String("error", err.Error()),
		)
		return stats
	}

	stats.TotalItens = len(items)
	for _, m := range items {
		switch {
		case model.IsImageExt(m.Extensao):
			stats.TotalImagens++
		case model.IsVideoExt(m.Extensao):
			stats.TotalVideos++
		}

		if m.Status != "" {
			stats.PorStatus[string(m.Status)]++
		}
		if m.Area != "" {
			stats.PorArea[m.Area]++
		}
		if m.Tema != "" {
			stats.PorTema[m.Tema]++
		}
		if m.Nucleo != "" {
			stats.PorNucleo[m.Nucleo]++
		}
		if m.Ano != "" && m.Mes != "" {
			stats.PorMes[m.Ano+"-"+m.Mes]++
		}
	}

	for status, count := range stats.PorStatus {
		assetsByStatus.WithLabelValues(status).Set(float64(count))
	}

	return stats
}

// observe фиксирует метрики выполненной операции.
func (s *QueryService) observe(operation string, start time.Time) {
	catalogQueriesTotal.WithLabelValues(operation).Inc()
	catalogQueryDuration.Observe(time.Since(start).Seconds())
}
