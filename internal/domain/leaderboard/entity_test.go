package leaderboard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetric_IsValid(t *testing.T) {
	for _, m := range AllMetrics() {
		assert.True(t, m.IsValid(), "metric %s", m)
	}

	assert.False(t, Metric("").IsValid())
	assert.False(t, Metric("rankedscore").IsValid())
	assert.False(t, Metric("player_id; DROP TABLE player_stats").IsValid())
}

func TestMetric_Columns(t *testing.T) {
	assert.Equal(t, "ranked_score", MetricRankedScore.Column())
	assert.Equal(t, "score_12k", MetricScore12K.Column())
	assert.Equal(t, "pp_score_rank", MetricPPScore.RankColumn())

	// Каждая валидная метрика обязана давать непустую колонку.
	for _, m := range AllMetrics() {
		assert.NotEmpty(t, m.Column())
	}
	assert.Empty(t, Metric("bogus").Column())
}

func TestOrder_IsValid(t *testing.T) {
	assert.True(t, OrderAsc.IsValid())
	assert.True(t, OrderDesc.IsValid())
	assert.False(t, Order("ASC").IsValid())
	assert.False(t, Order("").IsValid())
}

func TestBannedMode_IsValid(t *testing.T) {
	assert.True(t, BannedShow.IsValid())
	assert.True(t, BannedHide.IsValid())
	assert.True(t, BannedOnly.IsValid())
	assert.False(t, BannedMode("all").IsValid())
}

func TestRangeFilter_Normalize(t *testing.T) {
	// Бесконечности приводятся к представимым границам.
	f := RangeFilter{Min: math.Inf(-1), Max: math.Inf(1)}.Normalize()
	assert.Equal(t, -math.MaxFloat64, f.Min)
	assert.Equal(t, math.MaxFloat64, f.Max)

	// NaN трактуется как отсутствие границы.
	f = RangeFilter{Min: math.NaN(), Max: math.NaN()}.Normalize()
	assert.Equal(t, -math.MaxFloat64, f.Min)
	assert.Equal(t, math.MaxFloat64, f.Max)

	// Обычные значения проходят без изменений.
	f = RangeFilter{Min: 10, Max: 20}.Normalize()
	assert.Equal(t, RangeFilter{Min: 10, Max: 20}, f)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-5))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, MaxLimit, ClampLimit(100))
	assert.Equal(t, MaxLimit, ClampLimit(5000))
}

func TestClampOffset(t *testing.T) {
	assert.Equal(t, 0, ClampOffset(-1))
	assert.Equal(t, 0, ClampOffset(0))
	assert.Equal(t, 40, ClampOffset(40))
}
