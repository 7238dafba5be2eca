package query

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/domain/player"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/external/identity"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/redis"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test doubles
// ─────────────────────────────────────────────────────────────────────────────

type stubLeaderboardRepo struct {
	page     *leaderboard.Page
	lastPage leaderboard.PageQuery
	calls    int
}

func (s *stubLeaderboardRepo) GetPage(ctx context.Context, q leaderboard.PageQuery) (*leaderboard.Page, error) {
	s.calls++
	s.lastPage = q
	if s.page != nil {
		return s.page, nil
	}
	return &leaderboard.Page{Rows: []leaderboard.Row{}}, nil
}

func (s *stubLeaderboardRepo) GetMaxFields(ctx context.Context) (*leaderboard.MaxFields, error) {
	return &leaderboard.MaxFields{RankedScore: 1000}, nil
}

func (s *stubLeaderboardRepo) ReassignRanks(ctx context.Context, metric leaderboard.Metric) error {
	return nil
}

type stubPlayerRepo struct {
	byDiscord map[uint64]*player.Player
}

func (s *stubPlayerRepo) GetByID(ctx context.Context, id uint64) (*player.Player, error) {
	return nil, shared.ErrPlayerNotFound
}

func (s *stubPlayerRepo) GetByDiscordID(ctx context.Context, discordID uint64) (*player.Player, error) {
	if p, ok := s.byDiscord[discordID]; ok {
		return p, nil
	}
	return nil, shared.ErrIdentityNotFound
}

func (s *stubPlayerRepo) ListIDs(ctx context.Context) ([]uint64, error) {
	return nil, nil
}

type stubIdentity struct {
	users map[string]*identity.User
	err   error
}

func (s *stubIdentity) LookupByID(ctx context.Context, id uint64) (*identity.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return nil, identity.ErrUserNotFound
}

func (s *stubIdentity) LookupByHandle(ctx context.Context, handle string) (*identity.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[handle]; ok {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}

// mapCache держит значения в памяти; ошибок не возвращает.
type mapCache struct {
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := c.entries[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, tags ...string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *mapCache) InvalidateTag(ctx context.Context, tag string) error {
	c.entries = make(map[string][]byte)
	return nil
}

func newTestHandler(lb *stubLeaderboardRepo, players *stubPlayerRepo, id *stubIdentity) *GetLeaderboardHandler {
	if lb == nil {
		lb = &stubLeaderboardRepo{}
	}
	if players == nil {
		players = &stubPlayerRepo{}
	}
	if id == nil {
		id = &stubIdentity{}
	}
	return NewGetLeaderboardHandler(lb, players, id, newMapCache(), nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Normalization
// ─────────────────────────────────────────────────────────────────────────────

func TestGetLeaderboardQuery_Defaults(t *testing.T) {
	pq, err := GetLeaderboardQuery{}.normalize()
	require.NoError(t, err)

	assert.Equal(t, leaderboard.MetricRankedScore, pq.SortBy)
	assert.Equal(t, leaderboard.OrderDesc, pq.Order)
	assert.Equal(t, leaderboard.BannedHide, pq.Banned)
	assert.Equal(t, leaderboard.DefaultLimit, pq.Limit)
	assert.Equal(t, 0, pq.Offset)
}

func TestGetLeaderboardQuery_Validation(t *testing.T) {
	_, err := GetLeaderboardQuery{SortBy: "passCount"}.normalize()
	assert.ErrorIs(t, err, shared.ErrInvalidSortColumn)

	_, err = GetLeaderboardQuery{Order: "down"}.normalize()
	assert.ErrorIs(t, err, shared.ErrInvalidSortOrder)

	_, err = GetLeaderboardQuery{ShowBanned: "maybe"}.normalize()
	assert.ErrorIs(t, err, shared.ErrInvalidBannedMode)

	_, err = GetLeaderboardQuery{
		Filters: map[string]leaderboard.RangeFilter{"bogus": {}},
	}.normalize()
	assert.ErrorIs(t, err, shared.ErrInvalidFilter)
}

func TestGetLeaderboardQuery_ClampsPagination(t *testing.T) {
	pq, err := GetLeaderboardQuery{Offset: -10, Limit: 9999}.normalize()
	require.NoError(t, err)

	assert.Equal(t, 0, pq.Offset)
	assert.Equal(t, leaderboard.MaxLimit, pq.Limit)
}

// ─────────────────────────────────────────────────────────────────────────────
// Cache keys
// ─────────────────────────────────────────────────────────────────────────────

func TestCacheParams_Deterministic(t *testing.T) {
	pq := leaderboard.PageQuery{
		SortBy: leaderboard.MetricGeneralScore,
		Order:  leaderboard.OrderAsc,
		Banned: leaderboard.BannedShow,
		Filters: map[leaderboard.Metric]leaderboard.RangeFilter{
			leaderboard.MetricScore12K:    {Min: 1, Max: 2},
			leaderboard.MetricRankedScore: {Min: 3, Max: 4},
		},
		Offset: 20,
		Limit:  50,
	}

	// Порядок обхода map не должен влиять на ключ.
	key := redis.PageKey(cacheParams(pq))
	for i := 0; i < 20; i++ {
		assert.Equal(t, key, redis.PageKey(cacheParams(pq)))
	}
}

func TestCacheParams_PlayerIDOnlyWhenSet(t *testing.T) {
	pq := leaderboard.PageQuery{SortBy: leaderboard.MetricRankedScore}

	params := cacheParams(pq)
	_, ok := params["playerId"]
	assert.False(t, ok)

	pq.PlayerID = 42
	params = cacheParams(pq)
	assert.Equal(t, "42", params["playerId"])
}

// ─────────────────────────────────────────────────────────────────────────────
// Search resolution
// ─────────────────────────────────────────────────────────────────────────────

func TestHandle_PlainTextBecomesNameQuery(t *testing.T) {
	lb := &stubLeaderboardRepo{}
	h := newTestHandler(lb, nil, nil)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{NameQuery: "  pixel  "})
	require.NoError(t, err)

	assert.Equal(t, "pixel", lb.lastPage.NameQuery)
	assert.Equal(t, uint64(0), lb.lastPage.PlayerID)
}

func TestHandle_IDSigilBindsPlayer(t *testing.T) {
	lb := &stubLeaderboardRepo{}
	players := &stubPlayerRepo{byDiscord: map[uint64]*player.Player{
		80351110224678912: {ID: 7, Name: "pixel"},
	}}
	h := newTestHandler(lb, players, nil)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{NameQuery: "#80351110224678912"})
	require.NoError(t, err)

	assert.Equal(t, uint64(7), lb.lastPage.PlayerID)
	assert.Empty(t, lb.lastPage.NameQuery)
}

func TestHandle_IDSigilUnknownGivesEmptyPage(t *testing.T) {
	lb := &stubLeaderboardRepo{}
	h := newTestHandler(lb, nil, nil)

	result, err := h.Handle(context.Background(), GetLeaderboardQuery{NameQuery: "#123456"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Players)
	assert.Equal(t, 0, lb.calls)
}

func TestHandle_MalformedIDSigilGivesEmptyPage(t *testing.T) {
	h := newTestHandler(nil, nil, nil)

	result, err := h.Handle(context.Background(), GetLeaderboardQuery{NameQuery: "#notanumber"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
}

func TestHandle_HandleSigilResolvesThroughProvider(t *testing.T) {
	lb := &stubLeaderboardRepo{}
	players := &stubPlayerRepo{byDiscord: map[uint64]*player.Player{
		42: {ID: 9, Name: "pixel"},
	}}
	id := &stubIdentity{users: map[string]*identity.User{
		"pixel": {ID: 42, Username: "pixel"},
	}}
	h := newTestHandler(lb, players, id)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{NameQuery: "@pixel"})
	require.NoError(t, err)

	assert.Equal(t, uint64(9), lb.lastPage.PlayerID)
}

func TestHandle_HandleSigilUnknownGivesEmptyPage(t *testing.T) {
	lb := &stubLeaderboardRepo{}
	h := newTestHandler(lb, nil, nil)

	result, err := h.Handle(context.Background(), GetLeaderboardQuery{NameQuery: "@ghost"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Total)
	assert.Equal(t, 0, lb.calls)
}

func TestHandle_ProviderOutageDegradesToNameSearch(t *testing.T) {
	lb := &stubLeaderboardRepo{}
	id := &stubIdentity{err: errors.New("connect: connection refused")}
	h := newTestHandler(lb, nil, id)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{NameQuery: "@pixel"})
	require.NoError(t, err)

	// Недоступный провайдер не валит запрос: ищем по имени.
	assert.Equal(t, "pixel", lb.lastPage.NameQuery)
	assert.Equal(t, 1, lb.calls)
}

// ─────────────────────────────────────────────────────────────────────────────
// Caching
// ─────────────────────────────────────────────────────────────────────────────

func TestHandle_SecondCallServedFromCache(t *testing.T) {
	lb := &stubLeaderboardRepo{page: &leaderboard.Page{
		Total: 1,
		Rows: []leaderboard.Row{{
			Player: player.Player{ID: 1, Name: "pixel", Country: "KZ"},
			Stats:  player.Stats{PlayerID: 1, RankedScore: 123.45, RankedScoreRank: 1},
		}},
	}}
	h := newTestHandler(lb, nil, nil)

	q := GetLeaderboardQuery{SortBy: "rankedScore"}

	first, err := h.Handle(context.Background(), q)
	require.NoError(t, err)
	second, err := h.Handle(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 1, lb.calls)
	assert.Equal(t, first.Total, second.Total)
	require.Len(t, second.Players, 1)
	assert.Equal(t, "pixel", second.Players[0].Name)
	assert.InDelta(t, 123.45, second.Players[0].RankedScore, 1e-9)
}
