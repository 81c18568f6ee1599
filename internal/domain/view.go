package domain

import "time"

// QuestionView exposes a question without its accepted answers.
type QuestionView struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// AnswerView is a revealed answer of a session.
type AnswerView struct {
	QuestionID string       `json:"questionId"`
	Status     AnswerStatus `json:"status"`
	AddedAt    time.Time    `json:"addedAt"`
}

// SessionView is the public progress of one player.
type SessionView struct {
	ID           string       `json:"id"`
	Player       Player       `json:"player"`
	Score        int          `json:"score"`
	BonusAwarded bool         `json:"bonusAwarded"`
	Answers      []AnswerView `json:"answers"`
}

// GameView is the externally visible state of a game.
type GameView struct {
	ID            string         `json:"id"`
	Status        GameStatus     `json:"status"`
	FirstPlayer   SessionView    `json:"firstPlayerProgress"`
	SecondPlayer  *SessionView   `json:"secondPlayerProgress"`
	Questions     []QuestionView `json:"questions"`
	PairCreatedAt time.Time      `json:"pairCreatedDate"`
	StartedAt     *time.Time     `json:"startGameDate"`
	FinishedAt    *time.Time     `json:"finishGameDate"`
}

// NewGameView projects a game into its public view. Question bodies are only
// exposed once the game has left the waiting room.
func NewGameView(g Game) GameView {
	view := GameView{
		ID:            g.ID,
		Status:        g.Status,
		Questions:     []QuestionView{},
		PairCreatedAt: g.PairCreatedAt,
		StartedAt:     g.StartedAt,
		FinishedAt:    g.FinishedAt,
	}
	if g.First != nil {
		view.FirstPlayer = newSessionView(g.First)
	}
	if g.Second != nil {
		second := newSessionView(g.Second)
		view.SecondPlayer = &second
	}
	if g.Status != GameAwaitingOpponent {
		for _, q := range g.Questions {
			view.Questions = append(view.Questions, QuestionView{ID: q.ID, Body: q.Body})
		}
	}
	return view
}

func newSessionView(s *PlayerSession) SessionView {
	answers := make([]AnswerView, 0, len(s.Answers))
	for _, a := range s.Answers {
		answers = append(answers, AnswerView{QuestionID: a.QuestionID, Status: a.Status, AddedAt: a.AddedAt})
	}
	return SessionView{
		ID:           s.ID,
		Player:       s.Player,
		Score:        s.Score,
		BonusAwarded: s.BonusAwarded,
		Answers:      answers,
	}
}
