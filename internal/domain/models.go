package domain

import "time"

// RoomStatus is the lifecycle phase of a quiz room. The only legal
// transition path is waiting -> active -> finished.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusActive   RoomStatus = "active"
	StatusFinished RoomStatus = "finished"
)

// Player is a participant identity with a running score. ConnectionID is
// transient and rebindable; ID is the stable identity rooms are keyed on.
type Player struct {
	ID           string
	Username     string
	ConnectionID string
	Score        int
}

// Question is one flashcard turned quiz item. Answer must never reach
// clients before reveal.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Answer  string   `json:"answer"`
	Options []string `json:"options,omitempty"`
	Kind    string   `json:"kind"`
}

// QuestionView is the client-facing form of a question with the answer
// stripped.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
	Kind    string   `json:"kind"`
	Index   int      `json:"index"`
	Total   int      `json:"total"`
}

// View strips the answer and tags the question with its position.
func (q Question) View(index, total int) QuestionView {
	return QuestionView{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Options: q.Options,
		Kind:    q.Kind,
		Index:   index,
		Total:   total,
	}
}

// PlayerView is a snapshot-friendly view of a player.
type PlayerView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// RoomSnapshot is the broadcastable state of a room. It carries no answers.
type RoomSnapshot struct {
	Code          string       `json:"code"`
	DeckID        string       `json:"deckId"`
	HostID        string       `json:"hostId"`
	Status        RoomStatus   `json:"status"`
	Players       []PlayerView `json:"players"`
	CurrentIndex  int          `json:"currentIndex"`
	QuestionCount int          `json:"questionCount"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// AnswerResult is broadcast after each submission; this is the only point
// at which the correct answer is disclosed.
type AnswerResult struct {
	PlayerID      string       `json:"playerId"`
	QuestionID    string       `json:"questionId"`
	Correct       bool         `json:"correct"`
	CorrectAnswer string       `json:"correctAnswer"`
	Players       []PlayerView `json:"players"`
}

// RankingEntry is one row of the final scoreboard.
type RankingEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}
