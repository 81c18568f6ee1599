package domain

import "errors"

var (
	// ErrGameNotFound is returned when a game id or a player's current game cannot be resolved.
	ErrGameNotFound = errors.New("game not found")
	// ErrPlayerNotFound is returned when the player directory has no such user.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrInsufficientQuestions indicates fewer published questions than a game needs.
	ErrInsufficientQuestions = errors.New("not enough published questions")
	// ErrNoActiveGame is returned when a player submits an answer outside an active game.
	ErrNoActiveGame = errors.New("player has no active game")

	// ErrAlreadyPaired is returned when a player already occupies an open game.
	ErrAlreadyPaired = errors.New("player already participates in a game")
	// ErrAllQuestionsAnswered is returned for submissions past the last question.
	ErrAllQuestionsAnswered = errors.New("all questions already answered")
	// ErrPairingConflict signals that a waiting game changed state under the caller.
	ErrPairingConflict = errors.New("waiting game was paired concurrently")

	// ErrTransient wraps lock contention and serialization failures that may be retried.
	ErrTransient = errors.New("transient storage conflict")
	// ErrUnavailable is returned once transient retries are exhausted.
	ErrUnavailable = errors.New("service temporarily unavailable")

	ErrInvalidArgument = errors.New("invalid argument")
)

// Kind groups errors for transports.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindUnavailable
	KindInvalid
)

// KindOf classifies err against the sentinel taxonomy.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrGameNotFound),
		errors.Is(err, ErrPlayerNotFound),
		errors.Is(err, ErrInsufficientQuestions),
		errors.Is(err, ErrNoActiveGame):
		return KindNotFound
	case errors.Is(err, ErrAlreadyPaired),
		errors.Is(err, ErrAllQuestionsAnswered),
		errors.Is(err, ErrPairingConflict):
		return KindConflict
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTransient):
		return KindUnavailable
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalid
	}
	return KindInternal
}
