package http

import (
	"sync"
	"testing"
)

// discardWriter stands in for a websocket connection; the writer
// goroutine drains into it and throws the payload away.
type discardWriter struct{}

func (discardWriter) WriteJSON(interface{}) error { return nil }

func TestHubUnregisterReportsEmptiedRooms(t *testing.T) {
	hub := NewHub()
	hub.Register("conn-a", discardWriter{})
	hub.Register("conn-b", discardWriter{})
	hub.JoinRoom("conn-a", "AB123")
	hub.JoinRoom("conn-b", "AB123")

	if emptied := hub.Unregister("conn-a"); len(emptied) != 0 {
		t.Fatalf("room still has a member, got emptied=%v", emptied)
	}
	emptied := hub.Unregister("conn-b")
	if len(emptied) != 1 || emptied[0] != "AB123" {
		t.Fatalf("expected AB123 emptied, got %v", emptied)
	}
	if emptied := hub.Unregister("conn-b"); emptied != nil {
		t.Fatalf("second unregister must be a no-op, got %v", emptied)
	}
}

func TestHubEmitToSurvivesConcurrentUnregister(t *testing.T) {
	hub := NewHub()
	hub.Register("conn-a", discardWriter{})

	// EmitTo must never send on the channel Unregister closes; racing the
	// two would panic on send-on-closed-channel without the lock held
	// across the send.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			hub.EmitTo("conn-a", "quiz:error", errorPayload{Message: "x"})
		}
	}()
	go func() {
		defer wg.Done()
		hub.Unregister("conn-a")
	}()
	wg.Wait()

	// After unregister the connection is unknown; EmitTo is a no-op.
	hub.EmitTo("conn-a", "quiz:error", errorPayload{Message: "y"})
}
