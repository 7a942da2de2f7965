package redis

import (
	"context"
	"sync"
	"time"

	"github.com/RD1707/project-recall-sub001/internal/app"
	"github.com/RD1707/project-recall-sub001/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RoomRegistry is a Redis-aware implementation of app.RoomRegistry.
// Notes:
//   - Rooms themselves stay in a local in-memory map: the aggregate holds
//     live timers and mutexes that do not serialize.
//   - Redis marks room-code liveness, so an operator (or a future
//     multi-instance router) can see which codes are taken.
//   - For true distribution you'd pair this with pub/sub routing of room
//     events across instances.
type RoomRegistry struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	rooms  map[string]*app.Room
}

func NewRoomRegistry(client *redis.Client, ttl time.Duration) *RoomRegistry {
	return &RoomRegistry{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
	}
}

func (r *RoomRegistry) Create(room *app.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.Code()]; ok {
		return domain.ErrRoomCodeTaken
	}
	r.rooms[room.Code()] = room
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(room.Code()), "1", r.ttl).Err()
	return nil
}

func (r *RoomRegistry) Get(code string) (*app.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

func (r *RoomRegistry) Delete(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[code]; !ok {
		return false
	}
	delete(r.rooms, code)
	_ = r.client.Del(context.Background(), r.key(code)).Err()
	return true
}

func (r *RoomRegistry) key(code string) string {
	return "quiz:room:" + code
}
