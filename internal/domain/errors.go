package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code does not map to a live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomCodeTaken signals a code collision inside the registry.
	ErrRoomCodeTaken = errors.New("room code already in use")
	// ErrQuizAlreadyStarted is returned when joining or starting a room that left waiting.
	ErrQuizAlreadyStarted = errors.New("quiz already started")
	// ErrQuizNotActive is returned when answers arrive outside the active phase.
	ErrQuizNotActive = errors.New("quiz is not active")
	// ErrNotHost is returned when anyone but the host tries to start the quiz.
	ErrNotHost = errors.New("only the host can start the quiz")
	// ErrPlayerNotFound is returned when a connection submits without having joined.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrDeckTooSmall is returned when a deck cannot sustain a session.
	ErrDeckTooSmall = errors.New("deck must contain at least 2 items")
	// ErrDeckNotFound indicates the deck content could not be located.
	ErrDeckNotFound = errors.New("deck not found")
	// ErrDeckUnavailable is the caller-facing form of a question-fetch failure.
	ErrDeckUnavailable = errors.New("could not load deck questions")
)
