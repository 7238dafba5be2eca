package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tuforums/tuf-rankings/internal/application/command"
	"github.com/tuforums/tuf-rankings/internal/application/query"
	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/domain/level"
	"github.com/tuforums/tuf-rankings/internal/domain/pass"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
	"github.com/tuforums/tuf-rankings/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]interface{}{"status": "ok"}
	code := http.StatusOK

	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}

	writeJSON(w, r, code, status)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD READS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := query.GetLeaderboardQuery{
		SortBy:     r.URL.Query().Get("sortBy"),
		Order:      r.URL.Query().Get("order"),
		ShowBanned: r.URL.Query().Get("showBanned"),
		NameQuery:  r.URL.Query().Get("query"),
		Offset:     queryInt(r, "offset", 0),
		Limit:      queryInt(r, "limit", 0),
		Filters:    parseRangeFilters(r),
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleGetMaxFields(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetMaxFieldsHandler.Handle(r.Context())
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// parseRangeFilters reads min<Metric>/max<Metric> query parameters. A bound
// that fails to parse is treated as absent rather than rejecting the request.
func parseRangeFilters(r *http.Request) map[string]leaderboard.RangeFilter {
	filters := make(map[string]leaderboard.RangeFilter)
	for _, metric := range leaderboard.AllMetrics() {
		name := upperFirst(string(metric))
		minRaw := r.URL.Query().Get("min" + name)
		maxRaw := r.URL.Query().Get("max" + name)
		if minRaw == "" && maxRaw == "" {
			continue
		}

		f := leaderboard.RangeFilter{Min: math.Inf(-1), Max: math.Inf(1)}
		if v, err := strconv.ParseFloat(minRaw, 64); err == nil {
			f.Min = v
		}
		if v, err := strconv.ParseFloat(maxRaw, 64); err == nil {
			f.Max = v
		}
		filters[string(metric)] = f
	}
	return filters
}

// ══════════════════════════════════════════════════════════════════════════════
// PASS WRITES
// ══════════════════════════════════════════════════════════════════════════════

type submitPassRequest struct {
	LevelID       uint64                 `json:"levelId"`
	PlayerID      uint64                 `json:"playerId"`
	Speed         float64                `json:"speed"`
	Is12K         bool                   `json:"is12K"`
	Is16K         bool                   `json:"is16K"`
	IsNoHoldTap   bool                   `json:"isNoHoldTap"`
	VidUploadTime time.Time              `json:"vidUploadTime"`
	VidLink       string                 `json:"vidLink"`
	FeelingRating string                 `json:"feelingRating"`
	Judgements    command.JudgementInput `json:"judgements"`
}

func (s *Server) handleSubmitPass(w http.ResponseWriter, r *http.Request) {
	var req submitPassRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.SubmitPassHandler.Handle(r.Context(), command.SubmitPassCommand{
		LevelID:       req.LevelID,
		PlayerID:      req.PlayerID,
		Speed:         req.Speed,
		Is12K:         req.Is12K,
		Is16K:         req.Is16K,
		IsNoHoldTap:   req.IsNoHoldTap,
		VidUploadTime: req.VidUploadTime,
		VidLink:       req.VidLink,
		FeelingRating: req.FeelingRating,
		Judgement:     req.Judgements,
	})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result)
}

type updatePassRequest struct {
	Speed         *float64                `json:"speed"`
	Is12K         *bool                   `json:"is12K"`
	Is16K         *bool                   `json:"is16K"`
	IsNoHoldTap   *bool                   `json:"isNoHoldTap"`
	IsDuplicate   *bool                   `json:"isDuplicate"`
	IsHidden      *bool                   `json:"isHidden"`
	VidUploadTime *time.Time              `json:"vidUploadTime"`
	VidLink       *string                 `json:"vidLink"`
	FeelingRating *string                 `json:"feelingRating"`
	Judgements    *command.JudgementInput `json:"judgements"`
}

func (s *Server) handleUpdatePass(w http.ResponseWriter, r *http.Request) {
	passID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updatePassRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.UpdatePassHandler.Handle(r.Context(), command.UpdatePassCommand{
		PassID:        pass.ID(passID),
		Speed:         req.Speed,
		Is12K:         req.Is12K,
		Is16K:         req.Is16K,
		IsNoHoldTap:   req.IsNoHoldTap,
		IsDuplicate:   req.IsDuplicate,
		IsHidden:      req.IsHidden,
		VidUploadTime: req.VidUploadTime,
		VidLink:       req.VidLink,
		FeelingRating: req.FeelingRating,
		Judgement:     req.Judgements,
	})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleDeletePass(w http.ResponseWriter, r *http.Request) {
	passID, ok := pathID(w, r)
	if !ok {
		return
	}
	restore := r.URL.Query().Get("restore") == "true"

	result, err := s.deps.DeletePassHandler.Handle(r.Context(), command.DeletePassCommand{
		PassID:  pass.ID(passID),
		Restore: restore,
	})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// VOTE / LIKE WRITES
// ══════════════════════════════════════════════════════════════════════════════

type voteRequest struct {
	PlayerID uint64 `json:"playerId"`
	Vote     int    `json:"vote"`
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	s.handleVote(w, r, false)
}

func (s *Server) handleRemoveVote(w http.ResponseWriter, r *http.Request) {
	s.handleVote(w, r, true)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, remove bool) {
	levelID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.CastVoteHandler.Handle(r.Context(), command.CastVoteCommand{
		LevelID:  levelID,
		PlayerID: req.PlayerID,
		Vote:     req.Vote,
		Remove:   remove,
	})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

type likeRequest struct {
	PlayerID uint64 `json:"playerId"`
}

func (s *Server) handleAddLike(w http.ResponseWriter, r *http.Request) {
	s.handleLike(w, r, true)
}

func (s *Server) handleRemoveLike(w http.ResponseWriter, r *http.Request) {
	s.handleLike(w, r, false)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request, liked bool) {
	levelID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req likeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.ToggleLikeHandler.Handle(r.Context(), command.ToggleLikeCommand{
		LevelID:  levelID,
		PlayerID: req.PlayerID,
		Liked:    liked,
	})
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE HOOKS
// Соседние подсистемы, пишущие в те же таблицы, дёргают эти хуки, чтобы
// запустить асинхронный конвейер без собственного доступа к шине событий.
// ══════════════════════════════════════════════════════════════════════════════

type passChangedHook struct {
	PassID uint64 `json:"passId"`
}

func (s *Server) handlePassChangedHook(w http.ResponseWriter, r *http.Request) {
	var req passChangedHook
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	p, err := s.deps.PassRepo.GetByID(r.Context(), pass.ID(req.PassID))
	if err != nil {
		s.writeErrorFor(w, err)
		return
	}

	event := shared.NewPassChangedEvent(
		shared.EventPassUpdated, uint64(p.ID), p.LevelID, p.PlayerID, []uint64{p.PlayerID},
	)
	if err := s.deps.Publisher.Publish(r.Context(), event); err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]uint64{"passId": req.PassID})
}

type voteChangedHook struct {
	LevelID uint64 `json:"levelId"`
	DiffID  uint64 `json:"diffId"`
}

func (s *Server) handleVoteChangedHook(w http.ResponseWriter, r *http.Request) {
	var req voteChangedHook
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.LevelID == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_level", "levelId is required")
		return
	}

	if err := s.deps.Publisher.Publish(r.Context(), shared.NewVoteChangedEvent(req.LevelID, req.DiffID)); err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]uint64{"levelId": req.LevelID})
}

type likeChangedHook struct {
	LevelID uint64 `json:"levelId"`
}

func (s *Server) handleLikeChangedHook(w http.ResponseWriter, r *http.Request) {
	var req likeChangedHook
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.LevelID == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_level", "levelId is required")
		return
	}

	if err := s.deps.Publisher.Publish(r.Context(), shared.NewLikeChangedEvent(req.LevelID)); err != nil {
		s.writeErrorFor(w, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]uint64{"levelId": req.LevelID})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING / PARSING HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// writeErrorFor maps an application error onto an HTTP status.
func (s *Server) writeErrorFor(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	case isValidationError(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		s.logger.Error("request failed", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// isValidationError reports whether the error belongs to the 400 class.
func isValidationError(err error) bool {
	for _, target := range []error{
		shared.ErrInvalidInput,
		shared.ErrValidation,
		shared.ErrInvalidID,
		shared.ErrValueOutOfRange,
		shared.ErrInvalidState,
		shared.ErrAlreadyProcessed,
		pass.ErrMissingReference,
		pass.ErrInvalidSpeed,
		pass.ErrMissingUploadTime,
		pass.ErrNegativeJudgement,
		level.ErrVoteOutOfRange,
		level.ErrVoteMissingReference,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func decodeJSON(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_id", "path id must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
