// Package store holds the live room registry and the snapshot
// persistence mirror.
package store

import (
	"time"

	"sync"

	"tictactoe-online/internal/game"
)

// RegistryError is a sentinel registry error.
type RegistryError string

func (e RegistryError) Error() string { return string(e) }

const (
	ErrCodeTaken RegistryError = "room code already taken"
)

type cachedRoom struct {
	room      *game.Room
	expiresAt time.Time
}

// Registry is the authoritative in-process map of live rooms. The base
// map provides atomic insert-if-absent and delete-if-present; per-room
// mutation serialization is the room's own lock, not the registry's.
//
// A small TTL cache fronts read-heavy paths. The cache is never
// authoritative: mutations always go through the base map first and
// invalidate cache entries.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*game.Room

	cacheMu    sync.Mutex
	cache      map[string]cachedRoom
	allCache   []*game.Room
	allCacheAt time.Time

	roomTTL time.Duration
	allTTL  time.Duration
}

// NewRegistry creates an empty registry with the given cache TTLs.
func NewRegistry(roomTTL, allTTL time.Duration) *Registry {
	return &Registry{
		rooms:   make(map[string]*game.Room),
		cache:   make(map[string]cachedRoom),
		roomTTL: roomTTL,
		allTTL:  allTTL,
	}
}

// Create inserts a room, failing on code collision.
func (r *Registry) Create(room *game.Room) error {
	r.mu.Lock()
	if _, exists := r.rooms[room.Code]; exists {
		r.mu.Unlock()
		return ErrCodeTaken
	}
	r.rooms[room.Code] = room
	r.mu.Unlock()

	r.invalidate(room.Code)
	return nil
}

// TryGet returns the room for a code, consulting the cache first.
func (r *Registry) TryGet(code string) (*game.Room, bool) {
	now := time.Now()

	r.cacheMu.Lock()
	if entry, ok := r.cache[code]; ok && now.Before(entry.expiresAt) {
		r.cacheMu.Unlock()
		return entry.room, true
	}
	r.cacheMu.Unlock()

	r.mu.RLock()
	room, ok := r.rooms[code]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	r.cacheMu.Lock()
	r.cache[code] = cachedRoom{room: room, expiresAt: now.Add(r.roomTTL)}
	r.cacheMu.Unlock()
	return room, true
}

// Update refreshes the cache entry for a room. Rooms are mutated in
// place under their own lock, so the base map needs no write.
func (r *Registry) Update(room *game.Room) {
	r.mu.RLock()
	_, ok := r.rooms[room.Code]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.invalidate(room.Code)
}

// Delete removes a room if present.
func (r *Registry) Delete(code string) bool {
	r.mu.Lock()
	_, ok := r.rooms[code]
	if ok {
		delete(r.rooms, code)
	}
	r.mu.Unlock()

	r.invalidate(code)
	return ok
}

// All returns every live room, served from the list cache when fresh.
func (r *Registry) All() []*game.Room {
	now := time.Now()

	r.cacheMu.Lock()
	if r.allCache != nil && now.Sub(r.allCacheAt) < r.allTTL {
		out := make([]*game.Room, len(r.allCache))
		copy(out, r.allCache)
		r.cacheMu.Unlock()
		return out
	}
	r.cacheMu.Unlock()

	r.mu.RLock()
	all := make([]*game.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		all = append(all, room)
	}
	r.mu.RUnlock()

	r.cacheMu.Lock()
	r.allCache = all
	r.allCacheAt = now
	r.cacheMu.Unlock()

	out := make([]*game.Room, len(all))
	copy(out, all)
	return out
}

// Exists reports whether a code is registered.
func (r *Registry) Exists(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[code]
	return ok
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Clear drops every room and the whole cache.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.rooms = make(map[string]*game.Room)
	r.mu.Unlock()

	r.cacheMu.Lock()
	r.cache = make(map[string]cachedRoom)
	r.allCache = nil
	r.cacheMu.Unlock()
}

func (r *Registry) invalidate(code string) {
	r.cacheMu.Lock()
	delete(r.cache, code)
	r.allCache = nil
	r.cacheMu.Unlock()
}
