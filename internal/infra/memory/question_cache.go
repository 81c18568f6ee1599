package memory

import (
	"context"
	"math/rand"
	"slices"
	"sync"
	"time"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuestionCache keeps the published question pool in process with a TTL to avoid
// hitting the question bank on every pairing.
type QuestionCache struct {
	loader app.QuestionBank
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	pool      []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(loader app.QuestionBank, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) PublishedQuestions(ctx context.Context) ([]domain.Question, error) {
	if pool, ok := c.cached(c.clock()); ok {
		return pool, nil
	}

	result, err, _ := c.sf.Do("published", func() (interface{}, error) {
		now := c.clock()
		if pool, ok := c.cached(now); ok {
			return pool, nil
		}

		pool, err := c.loader.PublishedQuestions(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.pool = slices.Clone(pool)
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(result.([]domain.Question)), nil
}

// Invalidate drops the cached pool so the next read reloads it.
func (c *QuestionCache) Invalidate() {
	c.mu.Lock()
	c.pool = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *QuestionCache) cached(now time.Time) ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pool != nil && c.expiresAt.After(now) {
		return slices.Clone(c.pool), true
	}
	return nil, false
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticQuestionBank serves a fixed question list (useful for tests/demos).
// Only questions flagged as published are returned.
type StaticQuestionBank struct {
	mu        sync.RWMutex
	questions []StaticQuestion
}

// StaticQuestion is a bank entry with its published flag.
type StaticQuestion struct {
	domain.Question
	Published bool
}

func NewStaticQuestionBank(questions ...StaticQuestion) *StaticQuestionBank {
	return &StaticQuestionBank{questions: slices.Clone(questions)}
}

func (b *StaticQuestionBank) PublishedQuestions(context.Context) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Question, 0, len(b.questions))
	for _, q := range b.questions {
		if q.Published {
			out = append(out, q.Question)
		}
	}
	return out, nil
}

// SetPublished flips the published flag of a question.
func (b *StaticQuestionBank) SetPublished(questionID string, published bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.questions {
		if b.questions[i].ID == questionID {
			b.questions[i].Published = published
		}
	}
}
