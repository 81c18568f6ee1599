package http

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/infra/memory"
	"quiz-duel-service/internal/monitoring"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	questions := make([]memory.StaticQuestion, 0, 6)
	for i := 0; i < 6; i++ {
		questions = append(questions, memory.StaticQuestion{
			Question: domain.Question{
				ID:              fmt.Sprintf("q%d", i),
				Body:            fmt.Sprintf("Question %d", i),
				AcceptedAnswers: []string{fmt.Sprintf("answer-%d", i)},
			},
			Published: true,
		})
	}
	players := memory.NewPlayerDirectory(
		domain.Player{ID: "alice", DisplayName: "Alice"},
		domain.Player{ID: "bob", DisplayName: "Bob"},
	)
	service := app.NewGameService(
		memory.NewGameStore(),
		players,
		memory.NewQuestionCache(memory.NewStaticQuestionBank(questions...), time.Minute),
	)
	return NewHandler(service, monitoring.NewMetrics(), nil)
}

func answerFor(questionID string) string {
	return "answer-" + strings.TrimPrefix(questionID, "q")
}
