package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuforums/tuf-rankings/internal/domain/pass"
)

// capturedStatement - один выполненный SQL-запрос с аргументами.
type capturedStatement struct {
	sql  string
	args []interface{}
}

// captureQuerier записывает каждый запрос вместо обращения к базе.
type captureQuerier struct {
	executed []capturedStatement
}

func (q *captureQuerier) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	q.executed = append(q.executed, capturedStatement{sql: sql, args: args})
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (q *captureQuerier) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	q.executed = append(q.executed, capturedStatement{sql: sql, args: args})
	return nil, pgx.ErrNoRows
}

func (q *captureQuerier) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	q.executed = append(q.executed, capturedStatement{sql: sql, args: args})
	return nil
}

func TestPassRepository_Update_WritesModerationFlags(t *testing.T) {
	repo := NewPassRepository(nil)
	q := &captureQuerier{}

	p := &pass.Pass{
		ID:            42,
		LevelID:       7,
		PlayerID:      3,
		Speed:         1,
		IsDuplicate:   true,
		IsHidden:      true,
		VidUploadTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	err := repo.Update(context.Background(), q, p, nil)
	require.NoError(t, err)
	require.Len(t, q.executed, 1)

	stmt := q.executed[0]
	assert.Contains(t, stmt.sql, "is_duplicate")
	assert.Contains(t, stmt.sql, "is_hidden")

	// Флаги модерации привязаны к плейсхолдерам $9 и $10.
	assert.Equal(t, true, stmt.args[8])
	assert.Equal(t, true, stmt.args[9])
	// Последний аргумент остаётся идентификатором строки.
	assert.Equal(t, uint64(42), stmt.args[len(stmt.args)-1])
}

func TestPassRepository_Update_UpsertsJudgementWhenPresent(t *testing.T) {
	repo := NewPassRepository(nil)
	q := &captureQuerier{}

	p := &pass.Pass{ID: 42, LevelID: 7, PlayerID: 3, Speed: 1}
	j := &pass.Judgement{Perfect: 100}

	err := repo.Update(context.Background(), q, p, j)
	require.NoError(t, err)
	require.Len(t, q.executed, 2)

	assert.Contains(t, q.executed[0].sql, "UPDATE passes")
	assert.Contains(t, q.executed[1].sql, "INSERT INTO judgements")
	assert.Equal(t, p.ID, j.PassID)
}
