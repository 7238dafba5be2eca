package pass

import (
	"context"
	"errors"
	"time"
)

// Ошибки доменного уровня для прохождений.
var (
	// ErrNegativeJudgement - счётчик нажатий отрицательный.
	ErrNegativeJudgement = errors.New("pass: judgement counter cannot be negative")

	// ErrMissingReference - прохождение не ссылается на уровень или игрока.
	ErrMissingReference = errors.New("pass: level and player references are required")

	// ErrInvalidSpeed - множитель скорости отрицательный.
	ErrInvalidSpeed = errors.New("pass: speed cannot be negative")

	// ErrMissingUploadTime - время загрузки видео не задано.
	ErrMissingUploadTime = errors.New("pass: video upload time is required")
)

// QualifyingPass - проекция прохождения, обогащённая данными уровня и
// сложности. Это вход агрегатора статистики игрока: уровень не удалён и не
// скрыт, прохождение участвует в агрегатах.
type QualifyingPass struct {
	// PassID - идентификатор прохождения.
	PassID ID

	// LevelID - идентификатор уровня.
	LevelID uint64

	// ScoreV2 - очки прохождения.
	ScoreV2 float64

	// Accuracy - зеркальная точность; nil без судейских данных.
	Accuracy *float64

	// Is12K - режим 12K.
	Is12K bool

	// IsWorldsFirst - флаг "world's first".
	IsWorldsFirst bool

	// DiffID - текущая сложность уровня.
	DiffID uint64

	// DiffSortOrder - порядок сложности (больше = сложнее).
	DiffSortOrder int

	// BaseScore - эффективный базовый счёт уровня: base_score уровня,
	// либо base_score сложности, когда на уровне он пуст или нулевой.
	BaseScore float64

	// VidUploadTime - хронологический ключ прохождения.
	VidUploadTime time.Time
}

// Repository описывает хранилище прохождений и судейских данных.
type Repository interface {
	// GetByID возвращает прохождение по идентификатору.
	GetByID(ctx context.Context, id ID) (*Pass, error)

	// GetJudgement возвращает судейские данные прохождения.
	GetJudgement(ctx context.Context, id ID) (*Judgement, error)

	// ListQualifyingByPlayer возвращает все подходящие прохождения игрока
	// вместе с данными уровня и сложности.
	ListQualifyingByPlayer(ctx context.Context, playerID uint64) ([]QualifyingPass, error)

	// ListLevelIDsByPlayer возвращает уровни, на которых у игрока есть
	// хотя бы одно прохождение (включая удалённые).
	ListLevelIDsByPlayer(ctx context.Context, playerID uint64) ([]uint64, error)
}
