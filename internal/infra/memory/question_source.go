package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/RD1707/project-recall-sub001/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DeckLoader fetches deck questions from a backing store (e.g., document DB).
type DeckLoader interface {
	LoadDeck(ctx context.Context, deckID string) ([]domain.Question, error)
}

// QuestionSource caches deck questions with TTL to avoid repeated DB hits
// when several rooms are created from the same deck.
type QuestionSource struct {
	loader DeckLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	// singleflight serializes per deck key, not across keys, so jitter
	// draws from rnd must hold rndMu.
	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedDeck
}

type cachedDeck struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionSource(loader DeckLoader, ttl time.Duration) *QuestionSource {
	return &QuestionSource{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedDeck),
	}
}

func (s *QuestionSource) FetchQuestions(ctx context.Context, deckID string, limit int) ([]domain.Question, error) {
	now := s.clock()

	s.mu.RLock()
	if entry, ok := s.cache[deckID]; ok && entry.expiresAt.After(now) {
		s.mu.RUnlock()
		return capQuestions(entry.questions, limit), nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do(deckID, func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if entry, ok := s.cache[deckID]; ok && entry.expiresAt.After(now) {
			s.mu.RUnlock()
			return entry.questions, nil
		}
		s.mu.RUnlock()

		questions, err := s.loader.LoadDeck(ctx, deckID)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cache[deckID] = cachedDeck{
			questions: questions,
			expiresAt: now.Add(s.ttlWithJitter()),
		}
		s.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return capQuestions(result.([]domain.Question), limit), nil
}

func capQuestions(questions []domain.Question, limit int) []domain.Question {
	out := append([]domain.Question(nil), questions...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *QuestionSource) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

// StaticDeckLoader is a simple loader backed by an in-memory map (useful
// for tests/demos).
type StaticDeckLoader struct {
	decks map[string][]domain.Question
}

func NewStaticDeckLoader(decks map[string][]domain.Question) *StaticDeckLoader {
	return &StaticDeckLoader{decks: decks}
}

func (l *StaticDeckLoader) LoadDeck(_ context.Context, deckID string) ([]domain.Question, error) {
	if questions, ok := l.decks[deckID]; ok {
		return questions, nil
	}
	return nil, domain.ErrDeckNotFound
}
