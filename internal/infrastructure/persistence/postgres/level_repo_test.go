package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Живое среднее rating accuracy считается только по голосам за текущую
// сложность уровня; после rerate старые голоса выпадают, а уровень без
// подходящих голосов возвращается к нулю.
func TestLevelRepository_RecalculateRatingAccuracy_ScopesToCurrentDiff(t *testing.T) {
	repo := NewLevelRepository(nil)
	q := &captureQuerier{}

	err := repo.RecalculateRatingAccuracy(context.Background(), q, 7)
	require.NoError(t, err)
	require.Len(t, q.executed, 1)

	stmt := q.executed[0]
	assert.Contains(t, stmt.sql, "AVG(v.vote)")
	assert.Contains(t, stmt.sql, "v.diff_id = l.diff_id")
	assert.Contains(t, stmt.sql, "COALESCE")
	assert.Equal(t, []interface{}{uint64(7)}, stmt.args)
}

func TestLevelRepository_RecalculateClears_CountsQualifyingOnly(t *testing.T) {
	repo := NewLevelRepository(nil)
	q := &captureQuerier{}

	err := repo.RecalculateClears(context.Background(), q, 7)
	require.NoError(t, err)
	require.Len(t, q.executed, 1)

	stmt := q.executed[0]
	assert.Contains(t, stmt.sql, "NOT is_deleted")
	assert.Contains(t, stmt.sql, "NOT is_duplicate")
	assert.Contains(t, stmt.sql, "NOT is_hidden")
}
