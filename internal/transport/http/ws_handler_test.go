package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RD1707/project-recall-sub001/internal/app"
	"github.com/RD1707/project-recall-sub001/internal/domain"
	"github.com/RD1707/project-recall-sub001/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := memory.NewRoomRegistry()
	source := memory.NewQuestionSource(memory.NewStaticDeckLoader(map[string][]domain.Question{
		"deck-1": {
			{ID: "q1", Prompt: "What is 2 + 2?", Answer: "4", Kind: "short"},
			{ID: "q2", Prompt: "Capital of France?", Answer: "Paris", Kind: "short"},
		},
	}), time.Minute)
	hub := NewHub()
	service := app.NewQuizService(registry, source, hub, app.Options{
		AdvanceDelay: 50 * time.Millisecond,
	})
	handler := NewWSHandler(service, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil reads messages until one of the wanted type arrives, skipping
// everything else.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return msg.Payload
		}
	}
}

func player(id, username string) map[string]any {
	return map[string]any{"id": id, "username": username}
}

func TestWebSocketFullQuizScenario(t *testing.T) {
	server := newTestServer(t)
	answers := map[string]string{
		"What is 2 + 2?":     "4",
		"Capital of France?": "Paris",
	}

	host := dial(t, server)
	bob := dial(t, server)
	cleo := dial(t, server)

	send(t, host, "quiz:create", map[string]any{"deckId": "deck-1", "player": player("a", "Anna")})
	created := readUntil(t, host, "quiz:created")
	code, _ := created["code"].(string)
	if len(code) != 5 || code != strings.ToUpper(code) {
		t.Fatalf("expected 5-char uppercase room code, got %q", code)
	}

	send(t, bob, "quiz:join", map[string]any{"code": code, "player": player("b", "Bob")})
	readUntil(t, bob, "quiz:room")
	send(t, cleo, "quiz:join", map[string]any{"code": code, "player": player("c", "Cleo")})
	snapshot := readUntil(t, cleo, "quiz:room")
	if players, ok := snapshot["players"].([]any); !ok || len(players) != 3 {
		t.Fatalf("expected 3 players in snapshot, got %v", snapshot["players"])
	}

	// Only the host may start.
	send(t, bob, "quiz:start", map[string]any{"code": code})
	if msg := readUntil(t, bob, "quiz:error"); msg["message"] == "" {
		t.Fatalf("expected private error for non-host start")
	}
	send(t, host, "quiz:start", map[string]any{"code": code})
	readUntil(t, host, "quiz:started")

	question := readUntil(t, bob, "quiz:question")
	prompt, _ := question["prompt"].(string)
	if _, hidden := question["answer"]; hidden {
		t.Fatalf("question broadcast leaked the answer: %v", question)
	}

	send(t, bob, "quiz:answer", map[string]any{"code": code, "answer": answers[prompt]})
	send(t, cleo, "quiz:answer", map[string]any{"code": code, "answer": "five"})

	result := readUntil(t, host, "quiz:answer-result")
	if result["correctAnswer"] != answers[prompt] {
		t.Fatalf("expected revealed answer %q, got %v", answers[prompt], result["correctAnswer"])
	}

	// After the delay the second question is revealed to everyone.
	question = readUntil(t, cleo, "quiz:question")
	prompt, _ = question["prompt"].(string)
	send(t, bob, "quiz:answer", map[string]any{"code": code, "answer": answers[prompt]})
	send(t, cleo, "quiz:answer", map[string]any{"code": code, "answer": "no idea"})

	finished := readUntil(t, bob, "quiz:finished")
	ranking, ok := finished["ranking"].([]any)
	if !ok || len(ranking) != 3 {
		t.Fatalf("expected ranking of 3, got %v", finished["ranking"])
	}
	top := ranking[0].(map[string]any)
	if top["playerId"] != "b" || top["score"] != float64(2) {
		t.Fatalf("expected Bob on top with 2 points, got %v", top)
	}
}

func TestWebSocketRejectsMalformedAndUnknown(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server)

	send(t, conn, "quiz:join", map[string]any{})
	if msg := readUntil(t, conn, "quiz:error"); !strings.Contains(msg["message"].(string), "invalid join payload") {
		t.Fatalf("expected validation error, got %v", msg)
	}

	send(t, conn, "quiz:join", map[string]any{"code": "ZZZZZ", "player": player("x", "Xena")})
	if msg := readUntil(t, conn, "quiz:error"); msg["message"] != domain.ErrRoomNotFound.Error() {
		t.Fatalf("expected room-not-found, got %v", msg)
	}

	send(t, conn, "something:else", map[string]any{})
	if msg := readUntil(t, conn, "quiz:error"); msg["message"] != "unsupported message type" {
		t.Fatalf("expected unsupported-type error, got %v", msg)
	}

	send(t, conn, "quiz:create", map[string]any{"deckId": "missing", "player": player("x", "Xena")})
	if msg := readUntil(t, conn, "quiz:error"); msg["message"] != domain.ErrDeckNotFound.Error() {
		t.Fatalf("expected deck-not-found, got %v", msg)
	}
}
