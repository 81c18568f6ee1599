package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingBank{bank: memory.NewStaticQuestionBank(sampleQuestions()...)}
	cache := NewQuestionCache(newClient(mr), loader, time.Minute)

	pool, err := cache.PublishedQuestions(context.Background())
	if err != nil {
		t.Fatalf("published questions: %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("expected 2 published questions, got %d", len(pool))
	}
	if !mr.Exists(publishedKey) {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL(publishedKey); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with jitter, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	pool, _ = cache.PublishedQuestions(context.Background())
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls.Load())
	}
	if pool[0].AcceptedAnswers[0] != "4" {
		t.Fatalf("expected accepted answers to survive the round trip, got %+v", pool[0])
	}
}

func TestQuestionCacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingBank{bank: memory.NewStaticQuestionBank(sampleQuestions()...)}
	cache := NewQuestionCache(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	_, _ = cache.PublishedQuestions(ctx)
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists(publishedKey) {
		t.Fatalf("expected redis key to be removed")
	}
	_, _ = cache.PublishedQuestions(ctx)
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls.Load())
	}

	mr.FastForward(2 * time.Minute)
	_, _ = cache.PublishedQuestions(ctx)
	if loader.calls.Load() != 3 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls.Load())
	}
}

func TestQuestionCacheWithoutTTLDoesNotStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingBank{bank: memory.NewStaticQuestionBank(sampleQuestions()...)}
	cache := NewQuestionCache(newClient(mr), loader, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		pool, err := cache.PublishedQuestions(ctx)
		if err != nil {
			t.Fatalf("published questions: %v", err)
		}
		if len(pool) != 2 {
			t.Fatalf("expected 2 published questions, got %d", len(pool))
		}
	}
	if mr.Exists(publishedKey) {
		t.Fatalf("expected no redis key without a ttl")
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected every call to hit the loader, calls=%d", loader.calls.Load())
	}
}

func TestPing(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	if err := Ping(context.Background(), client); err != nil {
		t.Fatalf("ping: %v", err)
	}
	mr.Close()
	if err := Ping(context.Background(), client); err == nil {
		t.Fatalf("expected ping to fail once server is gone")
	}
}

type countingBank struct {
	bank  *memory.StaticQuestionBank
	calls atomic.Int32
}

func (b *countingBank) PublishedQuestions(ctx context.Context) ([]domain.Question, error) {
	b.calls.Add(1)
	return b.bank.PublishedQuestions(ctx)
}

func sampleQuestions() []memory.StaticQuestion {
	return []memory.StaticQuestion{
		{Question: domain.Question{ID: "q1", Body: "What is 2 + 2?", AcceptedAnswers: []string{"4", "four"}}, Published: true},
		{Question: domain.Question{ID: "q2", Body: "Capital of France?", AcceptedAnswers: []string{"Paris"}}, Published: true},
		{Question: domain.Question{ID: "q3", Body: "Draft", AcceptedAnswers: []string{"x"}}, Published: false},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
