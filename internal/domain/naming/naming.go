// Пакет naming — стандартизированная схема именования объектов каталога.
//
// Имя файла кодирует классификацию архива:
//
//	YYYY_MM_DD_AREA_NUCLEO_TEMA_STATUS_TOKEN.ext
//
// Папка выводится из статуса: {00_ENTRADA..04_ARQUIVADO}/{YYYY}/{MM}/{DD}.
// Compose и Parse — взаимно обратны по детерминированным компонентам
// (случайный токен непрозрачен). Пакет не выполняет I/O.
package naming

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/drivercagropecuaria-cyber/rc-acervo-v2/internal/domain/model"
)

// maxSlugLen — максимальная длина slug-компонента имени.
const maxSlugLen = 20

// tokenLen — длина случайного токена в имени файла.
const tokenLen = 8

// slugFallback — значение компонента при пустом slug.
const slugFallback = "GERAL"

// statusFallback — значение компонента статуса при пустом slug.
const statusFallback = "ENTRADA"

// Classification — классификация, кодируемая в имени файла.
type Classification struct {
	// Area — область архива (обязательна на уровне загрузки)
	Area string
	// Nucleo — ядро (опционально)
	Nucleo string
	// Tema — тема (обязательна на уровне загрузки)
	Tema string
	// Status — статус рабочего процесса
	Status model.Status
}

// Composed — результат композиции стандартизированного имени.
type Composed struct {
	// FileName — стандартизированное имя файла
	FileName string
	// FolderPath — путь папки {статус}/{год}/{месяц}/{день}
	FolderPath string
	// FullPath — FolderPath + "/" + FileName
	FullPath string
}

// Components — компоненты, извлечённые из стандартизированного имени.
type Components struct {
	Ano      string
	Mes      string
	Dia      string
	Area     string
	Nucleo   string
	Tema     string
	Status   string
	Token    string
	Extensao string
}

// diacriticsStripper удаляет комбинируемые диакритические знаки
// после NFD-декомпозиции.
var diacriticsStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Slugify нормализует значение классификации в компонент имени:
// убирает диакритику, отбрасывает не-алфавитно-цифровые символы,
// переводит в верхний регистр и обрезает до 20 символов.
// Пустой результат возвращается как есть — fallback применяет вызывающий.
func Slugify(s string) string {
	stripped, _, err := transform.String(diacriticsStripper, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	for _, r := range stripped {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}

	slug := b.String()
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	return slug
}

// NewToken генерирует случайный 8-символьный hex-токен в верхнем регистре.
// Пространство токена достаточно при низкой частоте записи каталога;
// проверка коллизий по существующим записям не выполняется.
func NewToken() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:tokenLen])
}

// Compose строит стандартизированное имя и путь для новой загрузки,
// используя текущую дату (UTC) и свежий токен.
func Compose(originalFilename string, meta Classification) Composed {
	return composeAt(originalFilename, meta, time.Now().UTC(), NewToken())
}

// composeAt — детерминированное ядро Compose: дата и токен передаются явно.
func composeAt(originalFilename string, meta Classification, now time.Time, token string) Composed {
	ano := fmt.Sprintf("%04d", now.Year())
	mes := fmt.Sprintf("%02d", int(now.Month()))
	dia := fmt.Sprintf("%02d", now.Day())

	ext := extensionOf(originalFilename)

	areaSlug := slugOrFallback(meta.Area, slugFallback)
	nucleoSlug := slugOrFallback(meta.Nucleo, slugFallback)
	temaSlug := slugOrFallback(meta.Tema, slugFallback)
	statusSlug := slugOrFallback(string(meta.Status), statusFallback)

	fileName := fmt.Sprintf("%s_%s_%s_%s_%s_%s_%s_%s.%s",
		ano, mes, dia, areaSlug, nucleoSlug, temaSlug, statusSlug, token, ext)

	folderPath := fmt.Sprintf("%s/%s/%s/%s", model.FolderForStatus(meta.Status), ano, mes, dia)

	return Composed{
		FileName:   fileName,
		FolderPath: folderPath,
		FullPath:   folderPath + "/" + fileName,
	}
}

// Parse извлекает компоненты из стандартизированного имени файла.
// Возвращает nil, если имя не соответствует ожидаемой форме —
// legacy-имена обрабатываются вызывающим кодом без ошибки.
// Лишние завершающие компоненты допускаются и игнорируются.
func Parse(fileName string) *Components {
	base := fileName
	ext := ""
	if idx := strings.LastIndex(base, "."); idx != -1 {
		ext = base[idx+1:]
		base = base[:idx]
	}

	parts := strings.Split(base, "_")
	if len(parts) < 8 {
		return nil
	}

	return &Components{
		Ano:      parts[0],
		Mes:      parts[1],
		Dia:      parts[2],
		Area:     parts[3],
		Nucleo:   parts[4],
		Tema:     parts[5],
		Status:   parts[6],
		Token:    parts[7],
		Extensao: ext,
	}
}

// extensionOf возвращает расширение в нижнем регистре, по умолчанию jpg.
func extensionOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx == -1 || idx == len(filename)-1 {
		return "jpg"
	}
	return strings.ToLower(filename[idx+1:])
}

// slugOrFallback применяет Slugify и подставляет fallback при пустом результате.
func slugOrFallback(s, fallback string) string {
	if slug := Slugify(s); slug != "" {
		return slug
	}
	return fallback
}
