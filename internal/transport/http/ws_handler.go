package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/RD1707/project-recall-sub001/internal/app"
	"github.com/RD1707/project-recall-sub001/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Inbound event names.
const (
	eventCreate = "quiz:create"
	eventJoin   = "quiz:join"
	eventStart  = "quiz:start"
	eventAnswer = "quiz:answer"
)

// Per-connection inbound budget: sustained rate and burst.
const (
	inboundRate  = 20
	inboundBurst = 40
)

type WSHandler struct {
	service  *app.QuizService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type playerPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type createPayload struct {
	DeckID string        `json:"deckId"`
	Player playerPayload `json:"player"`
}

type joinPayload struct {
	Code   string        `json:"code"`
	Player playerPayload `json:"player"`
}

type startPayload struct {
	Code string `json:"code"`
}

type answerPayload struct {
	Code   string `json:"code"`
	Answer string `json:"answer"`
}

type createdPayload struct {
	Code string              `json:"code"`
	Room domain.RoomSnapshot `json:"room"`
}

// ServeWS upgrades HTTP requests to websockets and dispatches inbound
// events into the quiz use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connectionID := uuid.NewString()
	h.hub.Register(connectionID, conn)
	defer func() {
		for _, code := range h.hub.Unregister(connectionID) {
			h.service.RoomEmptied(code)
		}
	}()

	limiter := rate.NewLimiter(rate.Limit(inboundRate), inboundBurst)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !limiter.Allow() {
			h.hub.ReplyError(connectionID, "too many messages, slow down")
			continue
		}
		h.dispatch(r, connectionID, inbound)
	}
}

func (h *WSHandler) dispatch(r *http.Request, connectionID string, inbound inboundMessage) {
	switch inbound.Type {
	case eventCreate:
		var payload createPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.DeckID == "" || payload.Player.ID == "" || payload.Player.Username == "" {
			h.hub.ReplyError(connectionID, "invalid create payload: deckId and player are required")
			return
		}
		snapshot, err := h.service.CreateQuiz(r.Context(), payload.DeckID, app.PlayerIdentity{
			ID:           payload.Player.ID,
			Username:     payload.Player.Username,
			ConnectionID: connectionID,
		})
		if err != nil {
			h.hub.ReplyError(connectionID, err.Error())
			return
		}
		h.hub.EmitTo(connectionID, app.EventCreated, createdPayload{Code: snapshot.Code, Room: snapshot})

	case eventJoin:
		var payload joinPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Code == "" || payload.Player.ID == "" || payload.Player.Username == "" {
			h.hub.ReplyError(connectionID, "invalid join payload: code and player are required")
			return
		}
		if _, err := h.service.Join(payload.Code, app.PlayerIdentity{
			ID:           payload.Player.ID,
			Username:     payload.Player.Username,
			ConnectionID: connectionID,
		}); err != nil {
			h.hub.ReplyError(connectionID, err.Error())
		}

	case eventStart:
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Code == "" {
			h.hub.ReplyError(connectionID, "invalid start payload: code is required")
			return
		}
		if err := h.service.Start(payload.Code, connectionID); err != nil {
			h.hub.ReplyError(connectionID, err.Error())
		}

	case eventAnswer:
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Code == "" {
			h.hub.ReplyError(connectionID, "invalid answer payload: code is required")
			return
		}
		if err := h.service.SubmitAnswer(payload.Code, connectionID, payload.Answer); err != nil {
			h.hub.ReplyError(connectionID, err.Error())
		}

	default:
		h.hub.ReplyError(connectionID, "unsupported message type")
	}
}
