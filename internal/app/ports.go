package app

import (
	"context"
	"time"

	"quiz-duel-service/internal/domain"
)

// GameStore persists games and runs mutations inside serialized transactions.
type GameStore interface {
	// InTx runs fn in a single transaction. Any error rolls back every write made through tx.
	InTx(ctx context.Context, fn func(ctx context.Context, tx GameTx) error) error
	GameByID(ctx context.Context, gameID string) (domain.Game, error)
	// OpenGameForPlayer returns the AWAITING_OPPONENT or ACTIVE game of playerID.
	OpenGameForPlayer(ctx context.Context, playerID string) (domain.Game, error)
}

// GameTx is the view of the store inside a transaction. Lookups return
// domain.ErrGameNotFound when nothing matches.
type GameTx interface {
	// LockWaitingRoom blocks until no other pairing transaction holds the waiting room.
	LockWaitingRoom(ctx context.Context) error
	OpenGameForPlayer(ctx context.Context, playerID string) (domain.Game, error)
	// WaitingGame returns the single AWAITING_OPPONENT game, locked for update.
	WaitingGame(ctx context.Context) (domain.Game, error)
	// ActiveGameForPlayer returns the ACTIVE game of playerID, locked for update.
	ActiveGameForPlayer(ctx context.Context, playerID string) (domain.Game, error)
	Game(ctx context.Context, gameID string) (domain.Game, error)

	CreateGame(ctx context.Context, game domain.Game) error
	// ActivateGame attaches the second session and question list; it fails with
	// domain.ErrPairingConflict when the game is no longer waiting.
	ActivateGame(ctx context.Context, game domain.Game) error
	// AppendAnswer stores answer at position and adds one point to the session when correct.
	AppendAnswer(ctx context.Context, answer domain.Answer, position int) error
	// FinishGame marks the game finished and grants the bonus point to bonusSessionID.
	FinishGame(ctx context.Context, gameID, bonusSessionID string, finishedAt time.Time) error
}

// PlayerDirectory resolves user ids.
type PlayerDirectory interface {
	Resolve(ctx context.Context, playerID string) (domain.Player, error)
}

// QuestionBank lists the currently published questions.
type QuestionBank interface {
	PublishedQuestions(ctx context.Context) ([]domain.Question, error)
}
