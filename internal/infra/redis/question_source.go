package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/RD1707/project-recall-sub001/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DeckLoader fetches deck questions from a backing store (e.g., document DB).
type DeckLoader interface {
	LoadDeck(ctx context.Context, deckID string) ([]domain.Question, error)
}

// QuestionSource caches deck questions in Redis and falls back to a loader
// on cache miss. Questions are stored as one JSON blob per deck:
// SET deck:{deckID}:questions {json}
type QuestionSource struct {
	client *redis.Client
	loader DeckLoader
	ttl    time.Duration
	sf     singleflight.Group

	// singleflight serializes per deck key, not across keys, so jitter
	// draws from rnd must hold rndMu.
	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionSource(client *redis.Client, loader DeckLoader, ttl time.Duration) *QuestionSource {
	return &QuestionSource{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *QuestionSource) FetchQuestions(ctx context.Context, deckID string, limit int) ([]domain.Question, error) {
	key := s.key(deckID)

	if cached, err := s.client.Get(ctx, key).Bytes(); err == nil {
		if questions, ok := decodeQuestions(cached); ok {
			return capQuestions(questions, limit), nil
		}
	}

	result, err, _ := s.sf.Do(deckID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, err := s.client.Get(ctx, key).Bytes(); err == nil {
			if questions, ok := decodeQuestions(cached); ok {
				return questions, nil
			}
		}

		questions, err := s.loader.LoadDeck(ctx, deckID)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(questions); err == nil {
			_ = s.client.Set(ctx, key, data, s.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return capQuestions(result.([]domain.Question), limit), nil
}

func (s *QuestionSource) key(deckID string) string {
	return "deck:" + deckID + ":questions"
}

func decodeQuestions(data []byte) ([]domain.Question, bool) {
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
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
	jitterMax := int64(s.ttl) / 10
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
