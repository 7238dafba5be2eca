// Package leaderboard содержит доменную модель лидерборда игроков:
// метрики ранжирования, режимы фильтрации и контракт страницы выдачи.
// Ранги плотные (dense): игроки с равным значением метрики делят номер, но
// порядок строк детерминирован вторичным ключом - идентификатором игрока.
package leaderboard

import (
	"math"
	"time"

	"github.com/tuforums/tuf-rankings/internal/domain/player"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metric - одна из пяти метрик ранжирования. Белый список: любое другое
// значение отклоняется валидацией и никогда не попадает в SQL.
type Metric string

const (
	// MetricRankedScore - затухающая сумма лучших прохождений.
	MetricRankedScore Metric = "rankedScore"
	// MetricGeneralScore - сумма очков всех прохождений.
	MetricGeneralScore Metric = "generalScore"
	// MetricPPScore - сумма очков 100%-прохождений.
	MetricPPScore Metric = "ppScore"
	// MetricWFScore - сумма базовых очков "world's first" прохождений.
	MetricWFScore Metric = "wfScore"
	// MetricScore12K - затухающая сумма лучших 12K-прохождений.
	MetricScore12K Metric = "score12K"
)

// AllMetrics возвращает все метрики в каноническом порядке.
func AllMetrics() []Metric {
	return []Metric{
		MetricRankedScore,
		MetricGeneralScore,
		MetricPPScore,
		MetricWFScore,
		MetricScore12K,
	}
}

// IsValid проверяет, что метрика входит в белый список.
func (m Metric) IsValid() bool {
	switch m {
	case MetricRankedScore, MetricGeneralScore, MetricPPScore, MetricWFScore, MetricScore12K:
		return true
	default:
		return false
	}
}

// Column возвращает имя колонки player_stats для метрики.
// Вызывается только после IsValid - это единственная точка, где метрика
// превращается в фрагмент SQL.
func (m Metric) Column() string {
	switch m {
	case MetricRankedScore:
		return "ranked_score"
	case MetricGeneralScore:
		return "general_score"
	case MetricPPScore:
		return "pp_score"
	case MetricWFScore:
		return "wf_score"
	case MetricScore12K:
		return "score_12k"
	default:
		return ""
	}
}

// RankColumn возвращает имя колонки ранга для метрики.
func (m Metric) RankColumn() string {
	return m.Column() + "_rank"
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY PARAMETERS
// ══════════════════════════════════════════════════════════════════════════════

// Order - направление сортировки.
type Order string

const (
	// OrderAsc - по возрастанию.
	OrderAsc Order = "asc"
	// OrderDesc - по убыванию.
	OrderDesc Order = "desc"
)

// IsValid проверяет направление сортировки.
func (o Order) IsValid() bool {
	return o == OrderAsc || o == OrderDesc
}

// BannedMode определяет видимость забаненных игроков в выдаче.
// На расчёт рангов режим не влияет: забаненные игроки всегда ранжируются.
type BannedMode string

const (
	// BannedShow - включать забаненных игроков.
	BannedShow BannedMode = "show"
	// BannedHide - исключать забаненных игроков.
	BannedHide BannedMode = "hide"
	// BannedOnly - только забаненные игроки.
	BannedOnly BannedMode = "only"
)

// IsValid проверяет режим видимости.
func (b BannedMode) IsValid() bool {
	return b == BannedShow || b == BannedHide || b == BannedOnly
}

// RangeFilter - включающий числовой диапазон по одной метрике.
type RangeFilter struct {
	// Min - нижняя граница (включительно).
	Min float64 `json:"min"`

	// Max - верхняя граница (включительно).
	Max float64 `json:"max"`
}

// Normalize приводит значения-сигналы (Inf, NaN) к представимым числовым
// границам: такие токены не должны достигать слоя запросов.
func (f RangeFilter) Normalize() RangeFilter {
	if math.IsNaN(f.Min) || math.IsInf(f.Min, -1) {
		f.Min = -math.MaxFloat64
	}
	if math.IsInf(f.Min, 1) {
		f.Min = math.MaxFloat64
	}
	if math.IsNaN(f.Max) || math.IsInf(f.Max, 1) {
		f.Max = math.MaxFloat64
	}
	if math.IsInf(f.Max, -1) {
		f.Max = -math.MaxFloat64
	}
	return f
}

// Пределы пагинации.
const (
	// MinLimit - минимальный размер страницы.
	MinLimit = 1
	// MaxLimit - максимальный размер страницы.
	MaxLimit = 100
	// DefaultLimit - размер страницы по умолчанию.
	DefaultLimit = 20
)

// ClampLimit приводит запрошенный размер страницы к диапазону [1, 100].
// Нулевой или отрицательный limit означает "страница по умолчанию" и даёт
// DefaultLimit, а не минимально допустимую страницу из одной строки.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// ClampOffset приводит смещение к неотрицательному значению.
func ClampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// ══════════════════════════════════════════════════════════════════════════════
// PAGE CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// PageQuery - нормализованные параметры страницы лидерборда,
// передаваемые хранилищу после валидации.
type PageQuery struct {
	// SortBy - метрика сортировки.
	SortBy Metric

	// Order - направление сортировки.
	Order Order

	// Banned - режим видимости забаненных игроков.
	Banned BannedMode

	// NameQuery - подстрока имени (без учёта регистра); пустая = без фильтра.
	NameQuery string

	// PlayerID - точечная выборка одного игрока (identity-запрос);
	// 0 = не используется.
	PlayerID uint64

	// Filters - диапазоны по метрикам (уже нормализованные).
	Filters map[Metric]RangeFilter

	// Offset - смещение страницы.
	Offset int

	// Limit - размер страницы.
	Limit int
}

// Row - строка лидерборда: игрок со всеми очками, рангами и
// побочными показателями.
type Row struct {
	// Player - данные игрока.
	Player player.Player

	// Stats - агрегированная статистика игрока.
	Stats player.Stats
}

// Page - страница лидерборда.
type Page struct {
	// Total - число строк, подходящих под все фильтры, до пагинации.
	Total int

	// Rows - строки текущей страницы.
	Rows []Row
}

// MaxFields - текущие максимумы по каждой фильтруемой метрике;
// используются для калибровки диапазонных фильтров на клиенте.
type MaxFields struct {
	// RankedScore - максимум RankedScore.
	RankedScore float64 `json:"rankedScore"`

	// GeneralScore - максимум GeneralScore.
	GeneralScore float64 `json:"generalScore"`

	// PPScore - максимум PPScore.
	PPScore float64 `json:"ppScore"`

	// WFScore - максимум WFScore.
	WFScore float64 `json:"wfScore"`

	// Score12K - максимум Score12K.
	Score12K float64 `json:"score12K"`

	// GeneratedAt - время расчёта максимумов.
	GeneratedAt time.Time `json:"generated_at"`
}
