package postgres

import (
	"context"
	"fmt"

	"quiz-duel-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionBank reads published questions from Postgres. It never writes.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) PublishedQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx, `SELECT id, body, accepted_answers FROM questions WHERE published ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query published questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Body, &q.AcceptedAnswers); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return questions, nil
}
