package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tictactoe-online/internal/game"
)

const (
	roomKeyPrefix = "room:"
	roomTTL       = 24 * time.Hour
)

// Store persists serializable room snapshots so an operator can
// inspect live rooms out of process. It mirrors the registry and is
// never authoritative; writes are best-effort.
type Store interface {
	SaveRoom(ctx context.Context, room *RoomData) error
	GetRoom(ctx context.Context, code string) (*RoomData, error)
	DeleteRoom(ctx context.Context, code string) error
}

// RoomData is the serializable room state.
type RoomData struct {
	Code           string       `json:"code"`
	State          string       `json:"state"`
	Board          []int        `json:"board"`
	Players        []PlayerData `json:"players"`
	CurrentTurn    string       `json:"currentTurn,omitempty"`
	IsGameOver     bool         `json:"isGameOver"`
	Winner         string       `json:"winner,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	LastActivityAt time.Time    `json:"lastActivityAt"`
}

// PlayerData is the serializable player state.
type PlayerData struct {
	PlayerID  string `json:"playerId"`
	Symbol    string `json:"symbol,omitempty"`
	Connected bool   `json:"connected"`
	GraceUsed bool   `json:"graceUsed"`
}

// Snapshot captures a RoomData from a live room.
// Caller holds the room lock.
func Snapshot(r *game.Room) *RoomData {
	data := &RoomData{
		Code:           r.Code,
		State:          string(r.Machine.Current()),
		Board:          append([]int(nil), r.Board...),
		CurrentTurn:    string(r.CurrentTurn),
		IsGameOver:     r.IsGameOver,
		Winner:         string(r.Winner),
		CreatedAt:      r.CreatedAt,
		LastActivityAt: r.LastActivityAt,
	}
	for _, id := range r.PlayerOrder {
		p := r.Players[id]
		data.Players = append(data.Players, PlayerData{
			PlayerID:  p.ID,
			Symbol:    string(p.Symbol),
			Connected: p.Connected(),
			GraceUsed: p.GraceUsed,
		})
	}
	return data
}

// RedisStore implements Store using Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// SaveRoom saves a room snapshot to Redis.
func (s *RedisStore) SaveRoom(ctx context.Context, room *RoomData) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	key := roomKeyPrefix + room.Code
	if err := s.client.Set(ctx, key, data, roomTTL).Err(); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}
	return nil
}

// GetRoom retrieves a room snapshot from Redis.
func (s *RedisStore) GetRoom(ctx context.Context, code string) (*RoomData, error) {
	data, err := s.client.Get(ctx, roomKeyPrefix+code).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	var room RoomData
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &room, nil
}

// DeleteRoom removes a room snapshot from Redis.
func (s *RedisStore) DeleteRoom(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, roomKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return nil
}

// MemoryStore implements Store using an in-memory map (for testing
// and single-node deployments without Redis).
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*RoomData
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*RoomData)}
}

func (s *MemoryStore) SaveRoom(ctx context.Context, room *RoomData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.Code] = room
	return nil
}

func (s *MemoryStore) GetRoom(ctx context.Context, code string) (*RoomData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[code], nil
}

func (s *MemoryStore) DeleteRoom(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	return nil
}
