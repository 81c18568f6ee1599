package domain

import "time"

// QuestionsPerGame is the fixed size of a game's question list.
const QuestionsPerGame = 5

// GameStatus is the lifecycle state of a game.
type GameStatus string

const (
	GameAwaitingOpponent GameStatus = "AWAITING_OPPONENT"
	GameActive           GameStatus = "ACTIVE"
	GameFinished         GameStatus = "FINISHED"
)

// Valid reports whether s is one of the known statuses.
func (s GameStatus) Valid() bool {
	switch s {
	case GameAwaitingOpponent, GameActive, GameFinished:
		return true
	}
	return false
}

// Open reports whether a game in this status still occupies its players.
func (s GameStatus) Open() bool {
	return s == GameAwaitingOpponent || s == GameActive
}

// AnswerStatus is the verdict recorded for a submitted answer.
type AnswerStatus string

const (
	AnswerCorrect   AnswerStatus = "CORRECT"
	AnswerIncorrect AnswerStatus = "INCORRECT"
)

// Valid reports whether s is one of the known verdicts.
func (s AnswerStatus) Valid() bool {
	return s == AnswerCorrect || s == AnswerIncorrect
}

// Player is the directory entry of a user.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Question is a published trivia question together with its accepted answers.
type Question struct {
	ID              string   `json:"id"`
	Body            string   `json:"body"`
	AcceptedAnswers []string `json:"acceptedAnswers"`
}

// Accepts reports whether text matches one of the accepted answers exactly.
func (q Question) Accepts(text string) bool {
	for _, a := range q.AcceptedAnswers {
		if a == text {
			return true
		}
	}
	return false
}

// Answer is one submission of a player session.
type Answer struct {
	ID         string
	SessionID  string
	QuestionID string
	Body       string
	Status     AnswerStatus
	AddedAt    time.Time
}

// PlayerSession is one player's participation in a single game.
type PlayerSession struct {
	ID           string
	Player       Player
	Score        int
	BonusAwarded bool
	Answers      []Answer
}

// Done reports whether the session has answered every question.
func (s *PlayerSession) Done() bool {
	return len(s.Answers) >= QuestionsPerGame
}

// CorrectCount returns the number of correct answers.
func (s *PlayerSession) CorrectCount() int {
	n := 0
	for _, a := range s.Answers {
		if a.Status == AnswerCorrect {
			n++
		}
	}
	return n
}

// LastAnsweredAt returns the timestamp of the latest answer, or the zero time.
func (s *PlayerSession) LastAnsweredAt() time.Time {
	if len(s.Answers) == 0 {
		return time.Time{}
	}
	return s.Answers[len(s.Answers)-1].AddedAt
}

// Game is the pairing unit and aggregate root of the engine.
type Game struct {
	ID            string
	Status        GameStatus
	First         *PlayerSession
	Second        *PlayerSession
	Questions     []Question
	PairCreatedAt time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
}

// SessionFor returns the session owned by playerID, if any.
func (g *Game) SessionFor(playerID string) (*PlayerSession, bool) {
	if g.First != nil && g.First.Player.ID == playerID {
		return g.First, true
	}
	if g.Second != nil && g.Second.Player.ID == playerID {
		return g.Second, true
	}
	return nil, false
}

// AnswerResult is returned to the caller after a submission.
type AnswerResult struct {
	QuestionID string       `json:"questionId"`
	Status     AnswerStatus `json:"status"`
	AddedAt    time.Time    `json:"addedAt"`
}
