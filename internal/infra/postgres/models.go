package postgres

import (
	"fmt"
	"time"

	"quiz-duel-service/internal/domain"

	"github.com/uptrace/bun"
)

type gameModel struct {
	bun.BaseModel `bun:"table:games,alias:g"`

	ID              string     `bun:"id,pk"`
	Status          string     `bun:"status,notnull"`
	FirstSessionID  string     `bun:"first_session_id,notnull"`
	SecondSessionID *string    `bun:"second_session_id"`
	PairCreatedAt   time.Time  `bun:"pair_created_at,notnull"`
	StartedAt       *time.Time `bun:"started_at"`
	FinishedAt      *time.Time `bun:"finished_at"`
}

type sessionModel struct {
	bun.BaseModel `bun:"table:player_sessions,alias:s"`

	ID           string `bun:"id,pk"`
	PlayerID     string `bun:"player_id,notnull"`
	DisplayName  string `bun:"display_name,notnull"`
	Score        int    `bun:"score,notnull"`
	BonusAwarded bool   `bun:"bonus_awarded,notnull"`
}

type gameQuestionModel struct {
	bun.BaseModel `bun:"table:game_questions,alias:gq"`

	GameID          string   `bun:"game_id,notnull"`
	Position        int      `bun:"position,notnull"`
	QuestionID      string   `bun:"question_id,notnull"`
	Body            string   `bun:"body,notnull"`
	AcceptedAnswers []string `bun:"accepted_answers,array"`
}

type answerModel struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID         string    `bun:"id,pk"`
	SessionID  string    `bun:"session_id,notnull"`
	QuestionID string    `bun:"question_id,notnull"`
	Body       string    `bun:"body,notnull"`
	Status     string    `bun:"status,notnull"`
	Position   int       `bun:"position,notnull"`
	AddedAt    time.Time `bun:"added_at,notnull"`
}

func newSessionModel(s *domain.PlayerSession) *sessionModel {
	return &sessionModel{
		ID:           s.ID,
		PlayerID:     s.Player.ID,
		DisplayName:  s.Player.DisplayName,
		Score:        s.Score,
		BonusAwarded: s.BonusAwarded,
	}
}

func (m sessionModel) toDomain(answers []answerModel) (*domain.PlayerSession, error) {
	s := &domain.PlayerSession{
		ID:           m.ID,
		Player:       domain.Player{ID: m.PlayerID, DisplayName: m.DisplayName},
		Score:        m.Score,
		BonusAwarded: m.BonusAwarded,
		Answers:      make([]domain.Answer, 0, len(answers)),
	}
	for _, a := range answers {
		status := domain.AnswerStatus(a.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("answer %s: unknown status %q", a.ID, a.Status)
		}
		s.Answers = append(s.Answers, domain.Answer{
			ID:         a.ID,
			SessionID:  a.SessionID,
			QuestionID: a.QuestionID,
			Body:       a.Body,
			Status:     status,
			AddedAt:    a.AddedAt.UTC(),
		})
	}
	return s, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
