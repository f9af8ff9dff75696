// Package registry owns the live room set: code generation, collision
// handling and lookup. Rooms are held in memory only; a room that
// empties out is removed and its code becomes reusable.
package registry

import (
	"sort"
	"sync"

	"github.com/victornm/battlebrains/internal/domain"
	"github.com/victornm/battlebrains/internal/errors"
	"github.com/victornm/battlebrains/internal/game"
)

// codeAttempts bounds collision retries; with a 32^6 code space this
// only trips when the RNG is broken.
const codeAttempts = 10

type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*game.Room
}

func New() *Registry {
	return &Registry{rooms: make(map[string]*game.Room)}
}

// Create allocates an unused code, builds the room via newRoom and
// registers it atomically.
func (r *Registry) Create(newRoom func(code string) (*game.Room, error)) (*game.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var code string
	for i := 0; ; i++ {
		if i == codeAttempts {
			return nil, errors.New(errors.CodeResourceExhausted, errors.WithMessage("could not allocate a room code"))
		}
		c, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		if _, taken := r.rooms[c]; !taken {
			code = c
			break
		}
	}

	room, err := newRoom(code)
	if err != nil {
		return nil, err
	}
	r.rooms[code] = room

	roomsActive.Set(float64(len(r.rooms)))
	roomsCreated.WithLabelValues(string(room.Mode())).Inc()
	return room, nil
}

// Get looks up a room by code.
func (r *Registry) Get(code string) (*game.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

// Remove drops the room. Idempotent.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, code)
	roomsActive.Set(float64(len(r.rooms)))
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// RoomInfo is the admin view of one room.
type RoomInfo struct {
	Code    string        `json:"code"`
	Mode    domain.Mode   `json:"mode"`
	Status  domain.Status `json:"status"`
	Players int           `json:"players"`
}

// List returns a code-ordered summary of every live room.
func (r *Registry) List() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]RoomInfo, 0, len(r.rooms))
	for code, room := range r.rooms {
		list = append(list, RoomInfo{
			Code:    code,
			Mode:    room.Mode(),
			Status:  room.Status(),
			Players: room.PlayerCount(),
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}
