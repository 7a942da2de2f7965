package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/RD1707/project-recall-sub001/internal/domain"
)

// Outbound event names shared by the service and the gateway.
const (
	EventCreated      = "quiz:created"
	EventRoom         = "quiz:room"
	EventStarted      = "quiz:started"
	EventQuestion     = "quiz:question"
	EventAnswerResult = "quiz:answer-result"
	EventFinished     = "quiz:finished"
	EventError        = "quiz:error"
)

const (
	minQuestions        = 2
	defaultMaxQuestions = 10
	defaultAdvanceDelay = 4 * time.Second
	defaultFetchTimeout = 5 * time.Second
	roomCodeLength      = 5
	maxCodeAttempts     = 100
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomRegistry is the process-wide table of live rooms.
type RoomRegistry interface {
	Create(room *Room) error
	Get(code string) (*Room, bool)
	Delete(code string) bool
}

// QuestionSource loads deck questions (from cache/backing store). It is
// consumed once per room, at creation time.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, deckID string, limit int) ([]domain.Question, error)
}

// Gateway is the transport the service instructs but never implements:
// room membership, room-wide broadcast, and private error replies.
type Gateway interface {
	JoinRoom(connectionID, roomCode string)
	Broadcast(roomCode, event string, payload any)
	ReplyError(connectionID, message string)
}

// Options tunes the service; zero values fall back to defaults.
type Options struct {
	MaxQuestions int
	AdvanceDelay time.Duration
	FetchTimeout time.Duration
	// CodeGenerator overrides room-code generation (tests rig collisions
	// through this).
	CodeGenerator func(length int) string
}

// QuizService contains the quiz session use cases: create, join, start,
// submit, and the timer-driven progression between questions.
type QuizService struct {
	rooms   RoomRegistry
	decks   QuestionSource
	gateway Gateway

	maxQuestions int
	advanceDelay time.Duration
	fetchTimeout time.Duration
	newCode      func(length int) string

	// rnd is shared across connection goroutines and is not safe for
	// concurrent use on its own; rndMu guards every call into it.
	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizService(rooms RoomRegistry, decks QuestionSource, gateway Gateway, opts Options) *QuizService {
	s := &QuizService{
		rooms:        rooms,
		decks:        decks,
		gateway:      gateway,
		maxQuestions: opts.MaxQuestions,
		advanceDelay: opts.AdvanceDelay,
		fetchTimeout: opts.FetchTimeout,
		newCode:      opts.CodeGenerator,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if s.maxQuestions <= 0 {
		s.maxQuestions = defaultMaxQuestions
	}
	if s.advanceDelay <= 0 {
		s.advanceDelay = defaultAdvanceDelay
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = defaultFetchTimeout
	}
	if s.newCode == nil {
		s.newCode = s.randomCode
	}
	return s
}

// CreateQuiz builds a room from a deck: fetch questions, validate, shuffle,
// allocate a collision-checked code, register, and pull the host into the
// room. The deck fetch is the only external I/O and is bounded.
func (s *QuizService) CreateQuiz(ctx context.Context, deckID string, host PlayerIdentity) (domain.RoomSnapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	questions, err := s.decks.FetchQuestions(fetchCtx, deckID, s.maxQuestions)
	if err != nil {
		if errors.Is(err, domain.ErrDeckNotFound) {
			return domain.RoomSnapshot{}, domain.ErrDeckNotFound
		}
		log.Printf("fetch questions for deck %s: %v", deckID, err)
		return domain.RoomSnapshot{}, domain.ErrDeckUnavailable
	}
	if len(questions) < minQuestions {
		return domain.RoomSnapshot{}, domain.ErrDeckTooSmall
	}

	shuffled := append([]domain.Question(nil), questions...)
	s.rndMu.Lock()
	s.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.rndMu.Unlock()
	if len(shuffled) > s.maxQuestions {
		shuffled = shuffled[:s.maxQuestions]
	}

	room, err := s.registerWithFreshCode(deckID, host, shuffled)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}

	s.gateway.JoinRoom(host.ConnectionID, room.Code())
	return room.Snapshot(), nil
}

// registerWithFreshCode retries code generation until the registry accepts
// the room.
func (s *QuizService) registerWithFreshCode(deckID string, host PlayerIdentity, questions []domain.Question) (*Room, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		room := NewRoom(s.newCode(roomCodeLength), deckID, host, questions)
		err := s.rooms.Create(room)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, domain.ErrRoomCodeTaken) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("allocate room code: %w", domain.ErrRoomCodeTaken)
}

func (s *QuizService) randomCode(length int) string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = codeAlphabet[s.rnd.Intn(len(codeAlphabet))]
	}
	return string(buf)
}

// Join adds a player to a waiting room (or rebinds an existing player's
// connection) and broadcasts the updated snapshot to every member.
func (s *QuizService) Join(code string, p PlayerIdentity) (domain.RoomSnapshot, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.RoomSnapshot{}, domain.ErrRoomNotFound
	}
	snapshot, err := room.join(p)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}
	s.gateway.JoinRoom(p.ConnectionID, code)
	s.gateway.Broadcast(code, EventRoom, snapshot)
	return snapshot, nil
}

// Start activates a waiting room (host only) and reveals the first
// question with its answer stripped.
func (s *QuizService) Start(code, connectionID string) error {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	first, err := room.start(connectionID)
	if err != nil {
		return err
	}
	s.gateway.Broadcast(code, EventStarted, room.Snapshot())
	s.gateway.Broadcast(code, EventQuestion, first)
	return nil
}

// SubmitAnswer scores a submission, broadcasts the reveal, and arms the
// progression timer if no advance is pending for this question yet.
func (s *QuizService) SubmitAnswer(code, connectionID, answer string) error {
	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	result, schedule, token, err := room.submitAnswer(connectionID, answer)
	if err != nil {
		return err
	}
	s.gateway.Broadcast(code, EventAnswerResult, result)
	if schedule {
		time.AfterFunc(s.advanceDelay, func() {
			s.advance(code, token)
		})
	}
	return nil
}

// advance is the progression timer body. A room deleted mid-delay or a
// stale token makes it a no-op; nothing it does may crash the process.
func (s *QuizService) advance(code string, token uint64) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("advance failed for room %s: %v", code, rec)
			s.gateway.Broadcast(code, EventError, map[string]string{"message": "internal error while advancing the quiz"})
		}
	}()

	room, ok := s.rooms.Get(code)
	if !ok {
		return
	}
	outcome, ok := room.advance(token)
	if !ok {
		return
	}
	if outcome.finished {
		s.gateway.Broadcast(code, EventFinished, map[string]any{"ranking": outcome.ranking})
		return
	}
	s.gateway.Broadcast(code, EventQuestion, outcome.next)
}

// RoomEmptied is called by the gateway when the last member of a room
// disconnects. Finished rooms are removed from the registry; waiting and
// active rooms stay, so members can reconnect by identity.
func (s *QuizService) RoomEmptied(code string) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return
	}
	if room.Status() == domain.StatusFinished {
		s.rooms.Delete(code)
	}
}
