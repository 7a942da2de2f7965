package redis

import (
	"context"
	"testing"
	"time"

	"github.com/RD1707/project-recall-sub001/internal/domain"
	"github.com/RD1707/project-recall-sub001/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuestionSourceCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	loader := &countingLoader{
		DeckLoader: memory.NewStaticDeckLoader(map[string][]domain.Question{
			"deck-1": sampleDeck(),
		}),
	}
	source := NewQuestionSource(client, loader, time.Minute)

	questions, err := source.FetchQuestions(context.Background(), "deck-1", 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("deck:deck-1:questions") {
		t.Fatalf("expected cache key in redis")
	}

	// Second call should hit the redis cache, loader not incremented.
	questions, err = source.FetchQuestions(context.Background(), "deck-1", 2)
	if err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(questions) != 2 {
		t.Fatalf("expected limit applied on cache hit, got %d", len(questions))
	}
}

type countingLoader struct {
	memory.DeckLoader
	calls int
}

func (l *countingLoader) LoadDeck(ctx context.Context, deckID string) ([]domain.Question, error) {
	l.calls++
	return l.DeckLoader.LoadDeck(ctx, deckID)
}

func sampleDeck() []domain.Question {
	return []domain.Question{
		{ID: "q1", Prompt: "What is 2 + 2?", Answer: "4"},
		{ID: "q2", Prompt: "Capital of France?", Answer: "Paris"},
		{ID: "q3", Prompt: "Largest planet?", Answer: "Jupiter"},
	}
}
