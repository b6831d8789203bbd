package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/model"
	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/storage/catalog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepo — in-memory реализация catalog.Repository для тестов сервисов.
type fakeRepo struct {
	items    map[string]*model.AssetMetadata
	failWith error
	getCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[string]*model.AssetMetadata{}}
}

func (r *fakeRepo) GetAll(_ context.Context) ([]*model.AssetMetadata, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	result := make([]*model.AssetMetadata, 0, len(r.items))
	for _, m := range r.items {
		result = append(result, m)
	}
	return result, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*model.AssetMetadata, error) {
	r.getCalls++
	if r.failWith != nil {
		return nil, r.failWith
	}
	m, ok := r.items[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return m, nil
}

func (r *fakeRepo) GetByPath(_ context.Context, filePath string) (*model.AssetMetadata, error) {
	for _, m := range r.items {
		if m.FilePath == filePath {
			return m, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (r *fakeRepo) Save(_ context.Context, meta *model.AssetMetadata) error {
	if r.failWith != nil {
		return r.failWith
	}
	copied := *meta
	r.items[meta.ID] = &copied
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) (bool, error) {
	if r.failWith != nil {
		return false, r.failWith
	}
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func (r *fakeRepo) Search(ctx context.Context, f catalog.Filters) ([]*model.AssetMetadata, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	all, _ := r.GetAll(ctx)
	if f.Empty() {
		return all, nil
	}
	var result []*model.AssetMetadata
	for _, m := range all {
		if f.Area != "" && m.Area != f.Area {
			continue
		}
		if f.Status != "" && string(m.Status) != f.Status {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

func (r *fakeRepo) ListByFolder(ctx context.Context, folderPath string) ([]*model.AssetMetadata, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	all, _ := r.GetAll(ctx)
	var result []*model.AssetMetadata
	for _, m := range all {
		if m.FilePath == folderPath || strings.HasPrefix(m.FilePath, folderPath+"/") {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *fakeRepo) CountByFolder(ctx context.Context) (map[string]int, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	counts := map[string]int{}
	for _, m := range r.items {
		root := m.FilePath
		if idx := strings.Index(root, "/"); idx >= 0 {
			root = root[:idx]
		}
		counts[root]++
	}
	return counts, nil
}

// fakeResolver — построение ссылок без обращения к B2.
type fakeResolver struct{}

func (fakeResolver) DownloadURL(_ context.Context, filePath string) (string, error) {
	return "https://f005.backblazeb2.com/file/acervo-bucket/" + filePath, nil
}

func seedAsset(repo *fakeRepo, id, filePath, ext, area, tema, nucleo string, status model.Status, ano, mes string) {
	repo.items[id] = &model.AssetMetadata{
		ID:       id,
		FileName: filePath[strings.LastIndex(filePath, "/")+1:],
		FilePath: filePath,
		Area:     area,
		Tema:     tema,
		Nucleo:   nucleo,
		Status:   status,
		Ano:      ano,
		Mes:      mes,
		Extensao: ext,
		URL:      "https://f005.backblazeb2.com/file/acervo-bucket/" + filePath,
	}
}

func newQueryService(repo *fakeRepo) *QueryService {
	return NewQueryService(repo, NewCacheService(100, time.Minute), fakeResolver{}, testLogger())
}

func TestStats(t *testing.T) {
	repo := newFakeRepo()
	seedAsset(repo, "i1", "00_ENTRADA/2024/01/10/a.jpg", "jpg", "Boa Vista", "Família", "Geral", model.StatusEntrada, "2024", "01")
	seedAsset(repo, "i2", "01_CATALOGADO/2024/01/11/b.png", "png", "Boa Vista", "Obras", "", model.StatusCatalogado, "2024", "01")
	seedAsset(repo, "i3", "01_CATALOGADO/2024/02/01/c.webp", "webp", "Sede", "Obras", "Geral", model.StatusCatalogado, "2024", "02")
	seedAsset(repo, "v1", "00_ENTRADA/2024/02/05/d.mp4", "mp4", "Sede", "Eventos", "Geral", model.StatusEntrada, "2024", "02")
	seedAsset(repo, "v2", "03_PUBLICADO/2024/03/01/e.mov", "mov", "Sede", "Eventos", "", model.StatusPublicado, "2024", "03")

	stats := newQueryService(repo).Stats(context.Background())

	if stats.TotalItens != 5 {
		t.Errorf("TotalItens = %d, ожидалось 5", stats.TotalItens)
	}
	if stats.TotalImagens != 3 {
		t.Errorf("TotalImagens = %d, ожидалось 3", stats.TotalImagens)
	}
	if stats.TotalVideos != 2 {
		t.Errorf("TotalVideos = %d, ожидалось 2", stats.TotalVideos)
	}
	if stats.PorStatus[string(model.StatusCatalogado)] != 2 {
		t.Errorf("PorStatus[Catalogado] = %d, ожидалось 2", stats.PorStatus[string(model.StatusCatalogado)])
	}
	if stats.PorArea["Sede"] != 3 {
		t.Errorf("PorArea[Sede] = %d, ожидалось 3", stats.PorArea["Sede"])
	}
	// Записи без nucleo в porNucleo не попадают.
	if stats.PorNucleo["Geral"] != 3 {
		t.Errorf("PorNucleo[Geral] = %d, ожидалось 3", stats.PorNucleo["Geral"])
	}
	if len(stats.PorNucleo) != 1 {
		t.Errorf("PorNucleo содержит %d ключей, ожидался 1", len(stats.PorNucleo))
	}
	if stats.PorMes["2024-01"] != 2 || stats.PorMes["2024-02"] != 2 || stats.PorMes["2024-03"] != 1 {
		t.Errorf("PorMes = %v", stats.PorMes)
	}
}

func TestStats_DegradesOnError(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = errors.New("каталог недоступен")

	stats := newQueryService(repo).Stats(context.Background())
	if stats.TotalItens != 0 {
		t.Errorf("TotalItens = %d, ожидалось 0", stats.TotalItens)
	}
}

func TestList_DegradesToEmpty(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = errors.New("каталог недоступен")

	items := newQueryService(repo).List(context.Background(), catalog.Filters{})
	if items == nil {
		t.Fatal("Ожидался пустой срез, получен nil")
	}
	if len(items) != 0 {
		t.Errorf("Получено %d записей, ожидалось 0", len(items))
	}
}

func TestGet_CachesRecord(t *testing.T) {
	repo := newFakeRepo()
	seedAsset(repo, "a1", "00_ENTRADA/2024/01/10/a.jpg", "jpg", "Sede", "Obras", "", model.StatusEntrada, "2024", "01")
	svc := newQueryService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Get(ctx, "a1"); err != nil {
			t.Fatalf("Ошибка получения записи: %v", err)
		}
	}

	if repo.getCalls != 1 {
		t.Errorf("Обращений к репозиторию: %d, ожидалось 1 (остальные из кэша)", repo.getCalls)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newQueryService(newFakeRepo())

	_, err := svc.Get(context.Background(), "нет-такого")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Ожидалась ошибка ErrNotFound, получено: %v", err)
	}
}

func TestDownloadURL(t *testing.T) {
	repo := newFakeRepo()
	seedAsset(repo, "a1", "00_ENTRADA/2024/01/10/a.jpg", "jpg", "Sede", "Obras", "", model.StatusEntrada, "2024", "01")
	svc := newQueryService(repo)

	info, err := svc.DownloadURL(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Ошибка получения ссылки: %v", err)
	}
	if !strings.HasSuffix(info.URL, "/file/acervo-bucket/00_ENTRADA/2024/01/10/a.jpg") {
		t.Errorf("URL = %q", info.URL)
	}
	if info.FileName != "a.jpg" {
		t.Errorf("FileName = %q", info.FileName)
	}
	// Превью без собственного адреса — основной URL.
	if info.ThumbnailURL != info.URL {
		t.Errorf("ThumbnailURL = %q, ожидался fallback на URL", info.ThumbnailURL)
	}
}

func TestFolders_Counts(t *testing.T) {
	repo := newFakeRepo()
	seedAsset(repo, "a1", "00_ENTRADA/2024/01/10/a.jpg", "jpg", "Sede", "Obras", "", model.StatusEntrada, "2024", "01")
	seedAsset(repo, "a2", "00_ENTRADA/2024/01/11/b.jpg", "jpg", "Sede", "Obras", "", model.StatusEntrada, "2024", "01")
	seedAsset(repo, "a3", "03_PUBLICADO/2024/02/01/c.jpg", "jpg", "Sede", "Obras", "", model.StatusPublicado, "2024", "02")

	folders := newQueryService(repo).Folders(context.Background())
	if len(folders) != 5 {
		t.Fatalf("Получено %d папок, ожидалось 5", len(folders))
	}

	byID := map[string]model.Folder{}
	for _, f := range folders {
		byID[f.ID] = f
	}
	if byID["entrada"].Count != 2 {
		t.Errorf("entrada.Count = %d, ожидалось 2", byID["entrada"].Count)
	}
	if byID["publicado"].Count != 1 {
		t.Errorf("publicado.Count = %d, ожидалось 1", byID["publicado"].Count)
	}
	if byID["arquivado"].Count != 0 {
		t.Errorf("arquivado.Count = %d, ожидалось 0", byID["arquivado"].Count)
	}
}

func TestFolderTree(t *testing.T) {
	repo := newFakeRepo()
	seedAsset(repo, "a1", "00_ENTRADA/2024/01/10/a.jpg", "jpg", "Sede", "Obras", "", model.StatusEntrada, "2024", "01")
	seedAsset(repo, "a2", "00_ENTRADA/2024/02/01/b.jpg", "jpg", "Sede", "Obras", "", model.StatusEntrada, "2024", "02")
	seedAsset(repo, "a3", "01_CATALOGADO/2024/01/10/c.jpg", "jpg", "Sede", "Obras", "", model.StatusCatalogado, "2024", "01")

	tree := newQueryService(repo).FolderTree(context.Background())
	if len(tree) != 2 {
		t.Fatalf("Корневых узлов: %d, ожидалось 2", len(tree))
	}

	entrada := tree[0]
	if entrada.Name != "00_ENTRADA" {
		t.Fatalf("Первый узел %q, ожидалось 00_ENTRADA", entrada.Name)
	}
	if entrada.Count != 2 {
		t.Errorf("00_ENTRADA.Count = %d, ожидалось 2", entrada.Count)
	}
	if len(entrada.Children) != 1 || entrada.Children[0].Name != "2024" {
		t.Fatalf("Дети 00_ENTRADA: %+v", entrada.Children)
	}
	if len(entrada.Children[0].Children) != 2 {
		t.Errorf("Месяцев под 00_ENTRADA/2024: %d, ожидалось 2", len(entrada.Children[0].Children))
	}
	if entrada.Children[0].Path != "00_ENTRADA/2024" {
		t.Errorf("Path узла = %q", entrada.Children[0].Path)
	}
}

func TestFolderFiles_DegradesToEmpty(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = errors.New("каталог недоступен")

	items := newQueryService(repo).FolderFiles(context.Background(), "00_ENTRADA")
	if items == nil || len(items) != 0 {
		t.Errorf("Ожидался пустой срез, получено: %v", items)
	}
}
