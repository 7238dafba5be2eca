// Package shared contains common domain types, errors and events that are
// used across all domain packages.
package shared

import (
	"context"
	"strconv"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Every aggregate-affecting write publishes one of these
// after its transaction commits; subscribers drive the asynchronous parts of
// the aggregation pipeline (stats recompute, rank refresh, cache drops).
const (
	// Pass events
	EventPassCreated  EventType = "pass.created"
	EventPassUpdated  EventType = "pass.updated"
	EventPassDeleted  EventType = "pass.deleted"
	EventPassRestored EventType = "pass.restored"

	// Vote events
	EventVoteChanged EventType = "vote.changed"

	// Like events
	EventLikeChanged EventType = "like.changed"

	// Aggregate events
	EventStatsRecomputed EventType = "stats.recomputed"
	EventRanksReassigned EventType = "ranks.reassigned"

	// System events
	EventAuditCompleted EventType = "system.audit_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// CONCRETE EVENTS
// ─────────────────────────────────────────────────────────────────────────────

// PassChangedEvent is published after any pass create/update/delete/restore.
type PassChangedEvent struct {
	BaseEvent
	PassID   uint64 `json:"pass_id"`
	LevelID  uint64 `json:"level_id"`
	PlayerID uint64 `json:"player_id"`

	// AffectedPlayerIDs lists every player whose aggregates the write
	// touched: the pass owner plus anyone whose world's-first flag flipped.
	AffectedPlayerIDs []uint64 `json:"affected_player_ids"`
}

// NewPassChangedEvent creates a pass change event of the given subtype.
func NewPassChangedEvent(eventType EventType, passID, levelID, playerID uint64, affected []uint64) *PassChangedEvent {
	return &PassChangedEvent{
		BaseEvent:         NewBaseEvent(eventType, uintID(passID)),
		PassID:            passID,
		LevelID:           levelID,
		PlayerID:          playerID,
		AffectedPlayerIDs: affected,
	}
}

// VoteChangedEvent is published after a rating-accuracy vote write.
type VoteChangedEvent struct {
	BaseEvent
	LevelID uint64 `json:"level_id"`
	DiffID  uint64 `json:"diff_id"`
}

// NewVoteChangedEvent creates a vote change event.
func NewVoteChangedEvent(levelID, diffID uint64) *VoteChangedEvent {
	return &VoteChangedEvent{
		BaseEvent: NewBaseEvent(EventVoteChanged, uintID(levelID)),
		LevelID:   levelID,
		DiffID:    diffID,
	}
}

// LikeChangedEvent is published after a like toggle.
type LikeChangedEvent struct {
	BaseEvent
	LevelID uint64 `json:"level_id"`
}

// NewLikeChangedEvent creates a like change event.
func NewLikeChangedEvent(levelID uint64) *LikeChangedEvent {
	return &LikeChangedEvent{
		BaseEvent: NewBaseEvent(EventLikeChanged, uintID(levelID)),
		LevelID:   levelID,
	}
}

// StatsRecomputedEvent is published after a player's stats row was rebuilt.
type StatsRecomputedEvent struct {
	BaseEvent
	PlayerID uint64 `json:"player_id"`
}

// NewStatsRecomputedEvent creates a stats recompute event.
func NewStatsRecomputedEvent(playerID uint64) *StatsRecomputedEvent {
	return &StatsRecomputedEvent{
		BaseEvent: NewBaseEvent(EventStatsRecomputed, uintID(playerID)),
		PlayerID:  playerID,
	}
}

// AuditCompletedEvent is published after a full aggregate reconciliation.
type AuditCompletedEvent struct {
	BaseEvent
	DriftCount        int `json:"drift_count"`
	PlayersRecomputed int `json:"players_recomputed"`
}

// NewAuditCompletedEvent creates an audit completion event.
func NewAuditCompletedEvent(driftCount, playersRecomputed int) *AuditCompletedEvent {
	return &AuditCompletedEvent{
		BaseEvent:         NewBaseEvent(EventAuditCompleted, "system"),
		DriftCount:        driftCount,
		PlayersRecomputed: playersRecomputed,
	}
}

// uintID renders a numeric aggregate id for the event envelope.
func uintID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// ─────────────────────────────────────────────────────────────────────────────
// EVENT BUS CONTRACTS
// ─────────────────────────────────────────────────────────────────────────────

// EventHandler processes a single domain event.
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event Event) error

// Handle implements EventHandler.
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
