package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/domain/level"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
)

func testServer(cfg Config) *Server {
	return NewServer(cfg, Dependencies{})
}

func TestParseRangeFilters(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/api/v1/leaderboard?minRankedScore=100&maxRankedScore=500&maxScore12K=50", nil)

	filters := parseRangeFilters(r)
	require.Len(t, filters, 2)

	ranked := filters["rankedScore"]
	assert.Equal(t, 100.0, ranked.Min)
	assert.Equal(t, 500.0, ranked.Max)

	// Односторонний фильтр: вторая граница остаётся бесконечной.
	twelve := filters["score12K"]
	assert.True(t, math.IsInf(twelve.Min, -1))
	assert.Equal(t, 50.0, twelve.Max)
}

func TestParseRangeFilters_IgnoresGarbage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/api/v1/leaderboard?minRankedScore=abc", nil)

	filters := parseRangeFilters(r)
	require.Len(t, filters, 1)
	assert.True(t, math.IsInf(filters["rankedScore"].Min, -1))
}

func TestParseRangeFilters_Empty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil)
	assert.Empty(t, parseRangeFilters(r))
}

func TestHealth_WithoutDatabase(t *testing.T) {
	s := testServer(DefaultConfig())

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteErrorFor_StatusMapping(t *testing.T) {
	s := testServer(DefaultConfig())

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", shared.ErrPassNotFound, http.StatusNotFound},
		{"already exists", shared.ErrLikeExists, http.StatusConflict},
		{"validation", shared.ErrInvalidSortColumn, http.StatusBadRequest},
		{"state conflict", shared.ErrPassAlreadyDeleted, http.StatusBadRequest},
		{"vote out of range", level.ErrVoteOutOfRange, http.StatusBadRequest},
		{"vote missing reference", level.ErrVoteMissingReference, http.StatusBadRequest},
		{"unknown", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.writeErrorFor(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)

			var resp JSONResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
		})
	}
}

func TestRequireAPIKey_DisabledWithoutHashes(t *testing.T) {
	s := testServer(DefaultConfig())

	called := false
	h := s.requireAPIKey(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/passes", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAPIKey_RejectsBadKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.APIKeyHashes = []string{string(hash)}
	s := testServer(cfg)

	h := s.requireAPIKey(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Без ключа.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/passes", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// С неверным ключом.
	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/passes", nil)
	r.Header.Set("X-API-Key", "wrong")
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// С верным ключом.
	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/api/v1/passes", nil)
	r.Header.Set("X-API-Key", "secret-key")
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")
	assert.Equal(t, "10.0.0.1", getClientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", getClientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.5:4567"
	assert.Equal(t, "192.168.1.5", getClientIP(r))
}

func TestUpperFirst(t *testing.T) {
	assert.Equal(t, "RankedScore", upperFirst("rankedScore"))
	assert.Equal(t, "", upperFirst(""))
}

func TestMetricFilterParamsCoverAllMetrics(t *testing.T) {
	// Каждая метрика адресуется парой min<Metric>/max<Metric>.
	q := ""
	for _, m := range leaderboard.AllMetrics() {
		q += "&min" + upperFirst(string(m)) + "=1"
	}
	r := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?"+q[1:], nil)

	filters := parseRangeFilters(r)
	assert.Len(t, filters, len(leaderboard.AllMetrics()))
}
