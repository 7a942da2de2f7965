package memory

import (
	"context"
	"testing"
	"time"

	"github.com/RD1707/project-recall-sub001/internal/domain"
)

func TestQuestionSourceCaches(t *testing.T) {
	loader := &countingLoader{
		DeckLoader: NewStaticDeckLoader(map[string][]domain.Question{
			"deck-1": sampleDeck(),
		}),
	}
	source := NewQuestionSource(loader, time.Minute)

	if _, err := source.FetchQuestions(context.Background(), "deck-1", 10); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := source.FetchQuestions(context.Background(), "deck-1", 10); err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionSourceAppliesLimit(t *testing.T) {
	source := NewQuestionSource(NewStaticDeckLoader(map[string][]domain.Question{
		"deck-1": sampleDeck(),
	}), time.Minute)

	questions, err := source.FetchQuestions(context.Background(), "deck-1", 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected limit applied, got %d questions", len(questions))
	}
}

func TestQuestionSourceUnknownDeck(t *testing.T) {
	source := NewQuestionSource(NewStaticDeckLoader(nil), time.Minute)

	if _, err := source.FetchQuestions(context.Background(), "missing", 10); err != domain.ErrDeckNotFound {
		t.Fatalf("expected deck-not-found, got %v", err)
	}
}

type countingLoader struct {
	DeckLoader
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
