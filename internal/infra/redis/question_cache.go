package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const publishedKey = "questions:published"

// QuestionCache caches the published question pool in Redis and falls back to
// the question bank on a miss. The pool is stored as one JSON document:
// SET questions:published [{"id":...,"body":...,"acceptedAnswers":[...]}] EX ttl
type QuestionCache struct {
	client *redis.Client
	loader app.QuestionBank
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader app.QuestionBank, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) PublishedQuestions(ctx context.Context) ([]domain.Question, error) {
	if pool, ok := c.cached(ctx); ok {
		return pool, nil
	}

	result, err, _ := c.sf.Do(publishedKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := c.cached(ctx); ok {
			return pool, nil
		}

		pool, err := c.loader.PublishedQuestions(ctx)
		if err != nil {
			return nil, err
		}
		if c.ttl <= 0 {
			// a zero expiry would keep the key forever
			return pool, nil
		}
		data, err := json.Marshal(pool)
		if err != nil {
			return nil, fmt.Errorf("marshal question pool: %w", err)
		}
		// a failed write only costs a reload on the next call
		_ = c.client.Set(ctx, publishedKey, data, c.ttlWithJitter()).Err()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate removes the cached pool, e.g. after questions were (un)published.
func (c *QuestionCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, publishedKey).Err()
}

func (c *QuestionCache) cached(ctx context.Context) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, publishedKey).Bytes()
	if err != nil {
		return nil, false
	}
	var pool []domain.Question
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, false
	}
	return pool, true
}

// Ping reports whether the server is reachable.
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
