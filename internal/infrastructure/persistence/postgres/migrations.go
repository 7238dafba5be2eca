// Package postgres implements the PostgreSQL persistence layer for the
// rankings service.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: DIFFICULTIES AND LEVELS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create difficulties and levels
-- Version: 001

CREATE TABLE IF NOT EXISTS difficulties (
    id BIGINT PRIMARY KEY,
    name VARCHAR(50) NOT NULL UNIQUE,
    base_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    sort_order INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT valid_base_score CHECK (base_score >= 0)
);

CREATE INDEX IF NOT EXISTS idx_difficulties_sort_order ON difficulties(sort_order);

CREATE TABLE IF NOT EXISTS levels (
    id BIGSERIAL PRIMARY KEY,
    song VARCHAR(255) NOT NULL,
    artist VARCHAR(255) NOT NULL DEFAULT '',
    creator VARCHAR(255) NOT NULL DEFAULT '',
    diff_id BIGINT NOT NULL REFERENCES difficulties(id),
    base_score DOUBLE PRECISION,

    -- Denormalized counters, maintained by the application after every
    -- pass / like / vote mutation. Never written by hand.
    clears INTEGER NOT NULL DEFAULT 0,
    likes INTEGER NOT NULL DEFAULT 0,
    rating_accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,

    is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
    is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_clears CHECK (clears >= 0),
    CONSTRAINT valid_likes CHECK (likes >= 0)
);

CREATE INDEX IF NOT EXISTS idx_levels_diff_id ON levels(diff_id);
CREATE INDEX IF NOT EXISTS idx_levels_visible ON levels(id) WHERE NOT is_deleted AND NOT is_hidden;
`

const migration001Down = `
DROP TABLE IF EXISTS levels;
DROP TABLE IF EXISTS difficulties;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: PLAYERS, PASSES AND JUDGEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create players, passes and judgements
-- Version: 002

CREATE TABLE IF NOT EXISTS players (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    country VARCHAR(2) NOT NULL DEFAULT 'XX',
    is_banned BOOLEAN NOT NULL DEFAULT FALSE,
    discord_id BIGINT,
    discord_handle VARCHAR(100),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_players_name ON players(LOWER(name));
CREATE UNIQUE INDEX IF NOT EXISTS idx_players_discord_id ON players(discord_id) WHERE discord_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS passes (
    id BIGSERIAL PRIMARY KEY,
    level_id BIGINT NOT NULL REFERENCES levels(id),
    player_id BIGINT NOT NULL REFERENCES players(id),

    score_v2 DOUBLE PRECISION NOT NULL DEFAULT 0,
    accuracy DOUBLE PRECISION,
    speed DOUBLE PRECISION NOT NULL DEFAULT 1.0,

    is_12k BOOLEAN NOT NULL DEFAULT FALSE,
    is_16k BOOLEAN NOT NULL DEFAULT FALSE,
    is_no_hold_tap BOOLEAN NOT NULL DEFAULT FALSE,
    is_worlds_first BOOLEAN NOT NULL DEFAULT FALSE,

    is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
    is_duplicate BOOLEAN NOT NULL DEFAULT FALSE,
    is_hidden BOOLEAN NOT NULL DEFAULT FALSE,

    vid_upload_time TIMESTAMP WITH TIME ZONE NOT NULL,
    vid_link TEXT NOT NULL DEFAULT '',
    feeling_rating VARCHAR(50) NOT NULL DEFAULT '',

    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_speed CHECK (speed > 0)
);

CREATE INDEX IF NOT EXISTS idx_passes_level_id ON passes(level_id);
CREATE INDEX IF NOT EXISTS idx_passes_player_id ON passes(player_id);
CREATE INDEX IF NOT EXISTS idx_passes_qualifying
    ON passes(player_id, score_v2 DESC)
    WHERE NOT is_deleted AND NOT is_duplicate AND NOT is_hidden;
CREATE INDEX IF NOT EXISTS idx_passes_wf_order
    ON passes(level_id, vid_upload_time, id)
    WHERE NOT is_deleted AND NOT is_duplicate AND NOT is_hidden;

-- Judgements share the pass primary key, one row per pass.
CREATE TABLE IF NOT EXISTS judgements (
    pass_id BIGINT PRIMARY KEY REFERENCES passes(id) ON DELETE CASCADE,
    early_double INTEGER NOT NULL DEFAULT 0,
    early_single INTEGER NOT NULL DEFAULT 0,
    e_perfect INTEGER NOT NULL DEFAULT 0,
    perfect INTEGER NOT NULL DEFAULT 0,
    l_perfect INTEGER NOT NULL DEFAULT 0,
    late_single INTEGER NOT NULL DEFAULT 0,
    late_double INTEGER NOT NULL DEFAULT 0,

    CONSTRAINT non_negative_judgements CHECK (
        early_double >= 0 AND early_single >= 0 AND e_perfect >= 0 AND
        perfect >= 0 AND l_perfect >= 0 AND late_single >= 0 AND late_double >= 0
    )
);
`

const migration002Down = `
DROP TABLE IF EXISTS judgements;
DROP TABLE IF EXISTS passes;
DROP TABLE IF EXISTS players;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: LIKES AND RATING ACCURACY VOTES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create level likes and rating accuracy votes
-- Version: 003

CREATE TABLE IF NOT EXISTS level_likes (
    level_id BIGINT NOT NULL REFERENCES levels(id) ON DELETE CASCADE,
    player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (level_id, player_id)
);

CREATE TABLE IF NOT EXISTS rating_accuracy_votes (
    id BIGSERIAL PRIMARY KEY,
    level_id BIGINT NOT NULL REFERENCES levels(id) ON DELETE CASCADE,
    player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
    diff_id BIGINT NOT NULL REFERENCES difficulties(id),
    vote SMALLINT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT vote_in_range CHECK (vote >= -5 AND vote <= 5),
    CONSTRAINT one_vote_per_player_diff UNIQUE (level_id, player_id, diff_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_level_diff ON rating_accuracy_votes(level_id, diff_id);
`

const migration003Down = `
DROP TABLE IF EXISTS rating_accuracy_votes;
DROP TABLE IF EXISTS level_likes;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: PLAYER STATS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Create player stats
-- Version: 004

-- One row per player, fully recomputed from qualifying passes.
-- Rank columns are reassigned in bulk by the worker; a rank of 0
-- means "not yet assigned".
CREATE TABLE IF NOT EXISTS player_stats (
    player_id BIGINT PRIMARY KEY REFERENCES players(id) ON DELETE CASCADE,

    ranked_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    general_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    pp_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    wf_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    score_12k DOUBLE PRECISION NOT NULL DEFAULT 0,

    ranked_score_rank INTEGER NOT NULL DEFAULT 0,
    general_score_rank INTEGER NOT NULL DEFAULT 0,
    pp_score_rank INTEGER NOT NULL DEFAULT 0,
    wf_score_rank INTEGER NOT NULL DEFAULT 0,
    score_12k_rank INTEGER NOT NULL DEFAULT 0,

    avg_xacc DOUBLE PRECISION NOT NULL DEFAULT 0,
    universal_pass_count INTEGER NOT NULL DEFAULT 0,
    worlds_first_count INTEGER NOT NULL DEFAULT 0,
    top_diff_id BIGINT NOT NULL DEFAULT 0,
    top_12k_diff_id BIGINT NOT NULL DEFAULT 0,
    total_passes INTEGER NOT NULL DEFAULT 0,

    last_updated TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_player_stats_ranked_score ON player_stats(ranked_score DESC);
CREATE INDEX IF NOT EXISTS idx_player_stats_general_score ON player_stats(general_score DESC);
CREATE INDEX IF NOT EXISTS idx_player_stats_pp_score ON player_stats(pp_score DESC);
CREATE INDEX IF NOT EXISTS idx_player_stats_wf_score ON player_stats(wf_score DESC);
CREATE INDEX IF NOT EXISTS idx_player_stats_score_12k ON player_stats(score_12k DESC);
`

const migration004Down = `
DROP TABLE IF EXISTS player_stats;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_levels",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_passes",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_social",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_player_stats",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}
