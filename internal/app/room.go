package app

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RD1707/project-recall-sub001/internal/domain"
)

// scorePerCorrectAnswer is the canonical award for a correct submission.
const scorePerCorrectAnswer = 1

// PlayerIdentity is the inbound identity of a participant: a stable player
// ID plus the transient connection it currently speaks through.
type PlayerIdentity struct {
	ID           string
	Username     string
	ConnectionID string
}

// Room is the in-memory aggregate of one quiz session. All mutation goes
// through its methods under the room lock; the question list is fixed at
// creation and never modified.
type Room struct {
	code      string
	deckID    string
	hostID    string
	createdAt time.Time
	now       func() time.Time

	mu           sync.Mutex
	players      []*domain.Player
	questions    []domain.Question
	currentIndex int
	status       domain.RoomStatus

	// advancePending and advanceToken guard the progression timer: only
	// one advance may be armed at a time, and a fired timer acts only if
	// its token still matches.
	advancePending bool
	advanceToken   uint64
}

// NewRoom builds a waiting room with the host as its first player.
func NewRoom(code, deckID string, host PlayerIdentity, questions []domain.Question) *Room {
	return NewRoomWithClock(code, deckID, host, questions, time.Now)
}

// NewRoomWithClock allows deterministic timestamps in tests.
func NewRoomWithClock(code, deckID string, host PlayerIdentity, questions []domain.Question, now func() time.Time) *Room {
	return &Room{
		code:      code,
		deckID:    deckID,
		hostID:    host.ID,
		createdAt: now(),
		now:       now,
		players: []*domain.Player{{
			ID:           host.ID,
			Username:     host.Username,
			ConnectionID: host.ConnectionID,
			Score:        0,
		}},
		questions: questions,
		status:    domain.StatusWaiting,
	}
}

// Code returns the room's registry key.
func (r *Room) Code() string {
	return r.code
}

// Status returns the current lifecycle phase.
func (r *Room) Status() domain.RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Snapshot returns the broadcastable state of the room, answers excluded.
func (r *Room) Snapshot() domain.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() domain.RoomSnapshot {
	return domain.RoomSnapshot{
		Code:          r.code,
		DeckID:        r.deckID,
		HostID:        r.hostID,
		Status:        r.status,
		Players:       r.playerViewsLocked(),
		CurrentIndex:  r.currentIndex,
		QuestionCount: len(r.questions),
		CreatedAt:     r.createdAt,
	}
}

func (r *Room) playerViewsLocked() []domain.PlayerView {
	views := make([]domain.PlayerView, 0, len(r.players))
	for _, p := range r.players {
		views = append(views, domain.PlayerView{ID: p.ID, Username: p.Username, Score: p.Score})
	}
	return views
}

func (r *Room) playerByConnectionLocked(connectionID string) *domain.Player {
	for _, p := range r.players {
		if p.ConnectionID == connectionID {
			return p
		}
	}
	return nil
}

// join adds a new player, or rebinds the connection of an existing player
// ID without touching its score. Only waiting rooms accept joins.
func (r *Room) join(p PlayerIdentity) (domain.RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusWaiting {
		return domain.RoomSnapshot{}, domain.ErrQuizAlreadyStarted
	}
	for _, existing := range r.players {
		if existing.ID == p.ID {
			existing.ConnectionID = p.ConnectionID
			return r.snapshotLocked(), nil
		}
	}
	r.players = append(r.players, &domain.Player{
		ID:           p.ID,
		Username:     p.Username,
		ConnectionID: p.ConnectionID,
		Score:        0,
	})
	return r.snapshotLocked(), nil
}

// start moves the room to active and returns the first question view.
// Only the host's connection may start, and only from waiting.
func (r *Room) start(connectionID string) (domain.QuestionView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusWaiting {
		return domain.QuestionView{}, domain.ErrQuizAlreadyStarted
	}
	player := r.playerByConnectionLocked(connectionID)
	if player == nil {
		return domain.QuestionView{}, domain.ErrPlayerNotFound
	}
	if player.ID != r.hostID {
		return domain.QuestionView{}, domain.ErrNotHost
	}

	r.status = domain.StatusActive
	r.currentIndex = 0
	return r.questions[0].View(0, len(r.questions)), nil
}

// submitAnswer scores a submission against the current question. The
// returned schedule flag is true for exactly one submission per question:
// the one that arms the progression timer. token identifies that timer.
func (r *Room) submitAnswer(connectionID, raw string) (result domain.AnswerResult, schedule bool, token uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusActive {
		return domain.AnswerResult{}, false, 0, domain.ErrQuizNotActive
	}
	player := r.playerByConnectionLocked(connectionID)
	if player == nil {
		return domain.AnswerResult{}, false, 0, domain.ErrPlayerNotFound
	}

	question := r.questions[r.currentIndex]
	correct := answersMatch(raw, question.Answer)
	if correct {
		player.Score += scorePerCorrectAnswer
	}

	if !r.advancePending {
		r.advancePending = true
		r.advanceToken++
		schedule = true
		token = r.advanceToken
	}

	return domain.AnswerResult{
		PlayerID:      player.ID,
		QuestionID:    question.ID,
		Correct:       correct,
		CorrectAnswer: question.Answer,
		Players:       r.playerViewsLocked(),
	}, schedule, token, nil
}

// answersMatch compares submissions case-insensitively after trimming
// surrounding whitespace.
func answersMatch(raw, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), strings.TrimSpace(answer))
}

// advanceOutcome is what a fired progression timer broadcasts: either the
// next question or the final ranking.
type advanceOutcome struct {
	finished bool
	next     domain.QuestionView
	ranking  []domain.RankingEntry
}

// advance moves to the next question or finishes the room. It acts only if
// the room is still active and token matches the armed timer; a stale or
// duplicate timer is a no-op.
func (r *Room) advance(token uint64) (advanceOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusActive || !r.advancePending || token != r.advanceToken {
		return advanceOutcome{}, false
	}
	r.advancePending = false

	if r.currentIndex+1 < len(r.questions) {
		r.currentIndex++
		next := r.questions[r.currentIndex]
		return advanceOutcome{next: next.View(r.currentIndex, len(r.questions))}, true
	}

	r.status = domain.StatusFinished
	return advanceOutcome{finished: true, ranking: r.rankingLocked()}, true
}

// rankingLocked sorts players by descending score. The sort is stable, so
// ties keep join order.
func (r *Room) rankingLocked() []domain.RankingEntry {
	views := r.playerViewsLocked()
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Score > views[j].Score
	})
	ranking := make([]domain.RankingEntry, 0, len(views))
	for i, v := range views {
		ranking = append(ranking, domain.RankingEntry{
			Rank:     i + 1,
			PlayerID: v.ID,
			Username: v.Username,
			Score:    v.Score,
		})
	}
	return ranking
}
