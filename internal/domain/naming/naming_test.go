package naming

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/model"
)

// TestSlugify проверяет нормализацию значений классификации.
func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Boa Vista", "BOAVISTA"},
		{"Família", "FAMILIA"},
		{"Em produção", "EMPRODUCAO"},
		{"Núcleo-Histórico", "NUCLEOHISTORICO"},
		{"foto 2024!", "FOTO2024"},
		{"ação", "ACAO"},
		{"", ""},
		{"***", ""},
		{"NomeDeAreaExtremamenteLongoParaTeste", "NOMEDEAREAEXTREMAMEN"},
	}

	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q): ожидалось %q, получено %q", c.in, c.want, got)
		}
	}
}

// TestComposeAt проверяет форму имени и путь папки на фиксированной дате.
func TestComposeAt(t *testing.T) {
	now := time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC)
	meta := Classification{
		Area:   "Boa Vista",
		Tema:   "Família",
		Status: model.StatusCatalogado,
	}

	got := composeAt("foto.jpg", meta, now, "AB12CD34")

	wantName := "2024_03_05_BOAVISTA_GERAL_FAMILIA_CATALOGADO_AB12CD34.jpg"
	if got.FileName != wantName {
		t.Errorf("FileName: ожидалось %q, получено %q", wantName, got.FileName)
	}
	if got.FolderPath != "01_CATALOGADO/2024/03/05" {
		t.Errorf("FolderPath: ожидалось %q, получено %q", "01_CATALOGADO/2024/03/05", got.FolderPath)
	}
	if got.FullPath != got.FolderPath+"/"+got.FileName {
		t.Errorf("FullPath не согласован: %q", got.FullPath)
	}
}

// TestComposeAt_Fallbacks проверяет fallback-значения компонентов.
func TestComposeAt_Fallbacks(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	// Пустая классификация: GERAL для area/nucleo/tema, ENTRADA для статуса,
	// расширение jpg по умолчанию.
	got := composeAt("semextensao", Classification{}, now, "00000000")

	wantName := "2025_01_02_GERAL_GERAL_GERAL_ENTRADA_00000000.jpg"
	if got.FileName != wantName {
		t.Errorf("FileName: ожидалось %q, получено %q", wantName, got.FileName)
	}
	if !strings.HasPrefix(got.FolderPath, model.FolderEntrada+"/") {
		t.Errorf("неизвестный статус должен попадать в %s, получено %q", model.FolderEntrada, got.FolderPath)
	}
}

// TestComposeAt_FolderPerStatus проверяет отображение статуса в папку.
func TestComposeAt_FolderPerStatus(t *testing.T) {
	now := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		status model.Status
		folder string
	}{
		{model.StatusEntrada, model.FolderEntrada},
		{model.StatusCatalogado, model.FolderCatalogado},
		{model.StatusProducao, model.FolderProducao},
		{model.StatusPublicado, model.FolderPublicado},
		{model.StatusArquivado, model.FolderArquivado},
		{model.Status("desconhecido"), model.FolderEntrada},
	}

	for _, c := range cases {
		got := composeAt("a.png", Classification{Status: c.status}, now, "FFFFFFFF")
		want := c.folder + "/2024/12/31"
		if got.FolderPath != want {
			t.Errorf("статус %q: ожидалась папка %q, получена %q", c.status, want, got.FolderPath)
		}
	}
}

// TestCompose_Shape проверяет Compose с реальной датой и токеном по regexp.
func TestCompose_Shape(t *testing.T) {
	meta := Classification{Area: "Boa Vista", Tema: "Família", Status: model.StatusCatalogado}
	got := Compose("foto.JPG", meta)

	pattern := regexp.MustCompile(`^\d{4}_\d{2}_\d{2}_BOAVISTA_GERAL_FAMILIA_CATALOGADO_[0-9A-F]{8}\.jpg$`)
	if !pattern.MatchString(got.FileName) {
		t.Errorf("имя файла не соответствует шаблону: %q", got.FileName)
	}
}

// TestParse_RoundTrip проверяет, что Parse восстанавливает компоненты Compose.
func TestParse_RoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	meta := Classification{
		Area:   "Boa Vista",
		Nucleo: "Núcleo Centro",
		Tema:   "Família",
		Status: model.StatusPublicado,
	}

	composed := composeAt("video.MOV", meta, now, "12AB34CD")
	parsed := Parse(composed.FileName)
	if parsed == nil {
		t.Fatalf("Parse вернул nil для %q", composed.FileName)
	}

	if parsed.Ano != "2024" || parsed.Mes != "03" || parsed.Dia != "05" {
		t.Errorf("дата: получено %s_%s_%s", parsed.Ano, parsed.Mes, parsed.Dia)
	}
	if parsed.Area != Slugify(meta.Area) {
		t.Errorf("Area: ожидалось %q, получено %q", Slugify(meta.Area), parsed.Area)
	}
	if parsed.Nucleo != Slugify(meta.Nucleo) {
		t.Errorf("Nucleo: ожидалось %q, получено %q", Slugify(meta.Nucleo), parsed.Nucleo)
	}
	if parsed.Tema != Slugify(meta.Tema) {
		t.Errorf("Tema: ожидалось %q, получено %q", Slugify(meta.Tema), parsed.Tema)
	}
	if parsed.Status != Slugify(string(meta.Status)) {
		t.Errorf("Status: ожидалось %q, получено %q", Slugify(string(meta.Status)), parsed.Status)
	}
	if parsed.Token != "12AB34CD" {
		t.Errorf("Token: получено %q", parsed.Token)
	}
	if parsed.Extensao != "mov" {
		t.Errorf("Extensao: получено %q", parsed.Extensao)
	}
}

// TestParse_Malformed проверяет, что нестандартные имена дают nil, не панику.
func TestParse_Malformed(t *testing.T) {
	cases := []string{
		"IMG_1234.jpg",
		"foto.png",
		"2024_03_05_soquatro.jpg",
		"",
	}

	for _, name := range cases {
		if got := Parse(name); got != nil {
			t.Errorf("Parse(%q): ожидался nil, получено %+v", name, got)
		}
	}
}

// TestParse_ExtraComponents проверяет, что лишние компоненты допускаются.
func TestParse_ExtraComponents(t *testing.T) {
	got := Parse("2024_03_05_AREA_NUCLEO_TEMA_STATUS_TOKEN123_EXTRA_MAIS.jpg")
	if got == nil {
		t.Fatal("Parse вернул nil для имени с лишними компонентами")
	}
	if got.Token != "TOKEN123" {
		t.Errorf("Token: получено %q", got.Token)
	}
}

// TestNewToken_Uniqueness проверяет отсутствие полных коллизий на 1000 токенов.
func TestNewToken_Uniqueness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	pattern := regexp.MustCompile(`^[0-9A-F]{8}$`)

	for i := 0; i < 1000; i++ {
		token := NewToken()
		if !pattern.MatchString(token) {
			t.Fatalf("токен не соответствует формату: %q", token)
		}
		seen[token] = true
	}

	// Вероятность коллизии на 1000 токенов из 16^8 пренебрежимо мала.
	if len(seen) != 1000 {
		t.Errorf("обнаружены коллизии: %d уникальных из 1000", len(seen))
	}
}
