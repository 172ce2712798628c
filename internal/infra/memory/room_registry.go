package memory

import (
	"sync"

	"livequiz-service/internal/app"
)

// RoomRegistry is the in-memory implementation of app.RoomRegistry.
type RoomRegistry struct {
	mu      sync.RWMutex
	rooms   map[string]*app.Room
	newRoom func(code string) *app.Room
}

// NewRoomRegistry builds a registry that constructs rooms with the given
// factory on first use of a code.
func NewRoomRegistry(newRoom func(code string) *app.Room) *RoomRegistry {
	return &RoomRegistry{
		rooms:   make(map[string]*app.Room),
		newRoom: newRoom,
	}
}

func (r *RoomRegistry) GetOrCreate(code string) *app.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[code]; ok {
		return room
	}
	room := r.newRoom(code)
	r.rooms[code] = room
	return room
}

func (r *RoomRegistry) Get(code string) (*app.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

func (r *RoomRegistry) DeleteIfDisposable(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return
	}
	if room.Disposable() {
		delete(r.rooms, code)
	}
}
