package app

import (
	"math/rand"
	"sync"
	"time"

	"quiz-duel-service/internal/domain"
)

// QuestionPicker draws question sets for new games. It keeps no memory between calls.
type QuestionPicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionPicker(rnd *rand.Rand) *QuestionPicker {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &QuestionPicker{rnd: rnd}
}

// PickFive returns domain.QuestionsPerGame distinct questions chosen uniformly from pool.
func (p *QuestionPicker) PickFive(pool []domain.Question) ([]domain.Question, error) {
	seen := make(map[string]struct{}, len(pool))
	unique := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		unique = append(unique, q)
	}
	if len(unique) < domain.QuestionsPerGame {
		return nil, domain.ErrInsufficientQuestions
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// partial Fisher-Yates over the first QuestionsPerGame slots
	for i := 0; i < domain.QuestionsPerGame; i++ {
		j := i + p.rnd.Intn(len(unique)-i)
		unique[i], unique[j] = unique[j], unique[i]
	}
	picked := make([]domain.Question, domain.QuestionsPerGame)
	copy(picked, unique[:domain.QuestionsPerGame])
	return picked, nil
}
