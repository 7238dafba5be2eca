package level

import (
	"context"
	"errors"
)

// Ошибки доменного уровня.
var (
	// ErrVoteOutOfRange - голос вне диапазона [-5, 5].
	ErrVoteOutOfRange = errors.New("level: vote out of range")

	// ErrVoteMissingReference - голос без уровня, игрока или сложности.
	ErrVoteMissingReference = errors.New("level: vote references are required")
)

// Repository описывает хранилище уровней и сложностей.
type Repository interface {
	// GetByID возвращает уровень по идентификатору.
	GetByID(ctx context.Context, id uint64) (*Level, error)

	// GetDifficulty возвращает сложность по идентификатору.
	GetDifficulty(ctx context.Context, id uint64) (*Difficulty, error)

	// ListDifficulties возвращает все сложности, упорядоченные по SortOrder.
	ListDifficulties(ctx context.Context) ([]Difficulty, error)
}
